package capi

import (
	"github.com/wippyai/tiledb-go/capi/internal/stats"
	"github.com/wippyai/tiledb-go/errors"
)

// StatsEnable starts collecting process-wide statistics.
func StatsEnable() Status {
	stats.Enable()
	return OK
}

func StatsDisable() Status {
	stats.Disable()
	return OK
}

func StatsReset() Status {
	stats.GlobalSet().Reset()
	return OK
}

// StatsDumpStr renders the process-wide statistics as indented JSON.
func StatsDumpStr(out *string) Status {
	s, err := stats.GlobalSet().Dump()
	if err != nil {
		Logger().Warn("stats dump failed")
		return statusOf(errors.Wrap(errors.PhaseNative, errors.KindNative, err, "stats dump"))
	}
	*out = s
	return OK
}

// StatsRawDumpStr renders the process-wide statistics as compact JSON.
func StatsRawDumpStr(out *string) Status {
	s, err := stats.GlobalSet().RawDump()
	if err != nil {
		return statusOf(errors.Wrap(errors.PhaseNative, errors.KindNative, err, "stats raw dump"))
	}
	*out = s
	return OK
}
