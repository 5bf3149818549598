package tiledb

import (
	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

// Process-wide engine statistics. Collection is off until StatsEnable.

func stats(what string, st capi.Status) error {
	if st == capi.OK {
		return nil
	}
	return errors.Native(int32(st), what+" failed")
}

func StatsEnable() error {
	return stats("stats enable", capi.StatsEnable())
}

func StatsDisable() error {
	return stats("stats disable", capi.StatsDisable())
}

// StatsReset zeroes all counters.
func StatsReset() error {
	return stats("stats reset", capi.StatsReset())
}

// StatsDump renders the counters as indented JSON.
func StatsDump() (string, error) {
	var s string
	err := stats("stats dump", capi.StatsDumpStr(&s))
	return s, err
}

// StatsRawDump renders the counters as compact JSON.
func StatsRawDump() (string, error) {
	var s string
	err := stats("stats raw dump", capi.StatsRawDumpStr(&s))
	return s, err
}
