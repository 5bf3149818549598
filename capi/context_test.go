package capi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCtxTags(t *testing.T) {
	ctx := newTestCtx(t)
	must(t, ctx, CtxSetTag(ctx, "team", "storage"), "CtxSetTag")
	if st := CtxSetTag(ctx, "", "x"); st != Err {
		t.Errorf("empty tag key = %d, want Err", st)
	}
	var tags []string
	must(t, ctx, CtxGetTags(ctx, &tags), "CtxGetTags")
	want := []string{"team=storage", "x-tiledb-api-language=go"}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestCtxSupportedFS(t *testing.T) {
	ctx := newTestCtx(t)
	tests := []struct {
		fs   Filesystem
		want bool
	}{
		{FilesystemMemFS, true},
		{FilesystemS3, false},
		{FilesystemHDFS, false},
	}
	for _, tt := range tests {
		var got bool
		must(t, ctx, CtxIsSupportedFS(ctx, tt.fs, &got), "CtxIsSupportedFS")
		if got != tt.want {
			t.Errorf("fs %d supported = %v, want %v", tt.fs, got, tt.want)
		}
	}
	var got bool
	if st := CtxIsSupportedFS(ctx, Filesystem(42), &got); st != Err {
		t.Errorf("unknown fs = %d, want Err", st)
	}
}

func TestCtxConfigIsCopied(t *testing.T) {
	cfg := newTestConfig(t)
	var e Error
	ConfigSet(cfg, "sm.dedup_coords", "true", &e)

	var ctx Ctx
	if st := CtxAlloc(cfg, &ctx); st != OK {
		t.Fatalf("CtxAlloc = %d", st)
	}
	defer CtxFree(&ctx)
	ConfigSet(cfg, "sm.dedup_coords", "false", &e)

	var got Config
	must(t, ctx, CtxGetConfig(ctx, &got), "CtxGetConfig")
	defer ConfigFree(&got)
	var v string
	var found bool
	ConfigGet(got, "sm.dedup_coords", &v, &found, &e)
	if v != "true" {
		t.Errorf("context config sm.dedup_coords = %q, want the value at alloc time", v)
	}
}

func TestCtxCancelTasksRestartsWork(t *testing.T) {
	ctx := newTestCtx(t)
	uri := dense4x4(t, ctx)
	must(t, ctx, CtxCancelTasks(ctx), "CtxCancelTasks")

	arr := openArray(t, ctx, uri, QueryTypeRead)
	defer closeArray(t, ctx, &arr)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	defer QueryFree(&q)
	data := make([]byte, 64)
	size := uint64(len(data))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit after cancel")
}

func TestStats(t *testing.T) {
	ctx := newTestCtx(t)
	dense4x4(t, ctx)

	var out string
	must(t, ctx, CtxGetStats(ctx, &out), "CtxGetStats")
	if !strings.Contains(out, "query_submit_total{status=COMPLETED,type=WRITE}") {
		t.Errorf("context stats = %s", out)
	}

	StatsEnable()
	defer StatsDisable()
	StatsReset()
	small := createArray(t, ctx, "again", ArrayDense,
		[]dimSpec{{"d", DatatypeInt32, i32(1, 2), i32(2)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})
	arr := openArray(t, ctx, small, QueryTypeRead)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeRead, &q), "QueryAlloc")
	data := make([]byte, 8)
	size := uint64(len(data))
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", data, &size), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")

	var qs string
	must(t, ctx, QueryGetStats(ctx, q, &qs), "QueryGetStats")
	if !strings.Contains(qs, "type=READ") {
		t.Errorf("query stats = %s", qs)
	}
	QueryFree(&q)
	closeArray(t, ctx, &arr)

	if st := StatsRawDumpStr(&out); st != OK {
		t.Fatalf("StatsRawDumpStr = %d", st)
	}
	if !strings.Contains(out, "type=READ") || strings.Contains(out, "\n") {
		t.Errorf("raw dump = %s", out)
	}
	if st := StatsDumpStr(&out); st != OK {
		t.Fatalf("StatsDumpStr = %d", st)
	}
	if !strings.HasPrefix(out, "[\n") {
		t.Errorf("dump = %s", out)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		name string
		to   func(*string) Status
		from func(string) (uint32, Status)
		want string
		code uint32
	}{
		{"layout", func(s *string) Status { return LayoutToStr(LayoutColMajor, s) },
			func(s string) (uint32, Status) { var v Layout; st := LayoutFromStr(s, &v); return uint32(v), st },
			"col-major", uint32(LayoutColMajor)},
		{"query type", func(s *string) Status { return QueryTypeToStr(QueryTypeWrite, s) },
			func(s string) (uint32, Status) { var v QueryType; st := QueryTypeFromStr(s, &v); return uint32(v), st },
			"WRITE", uint32(QueryTypeWrite)},
		{"datatype", func(s *string) Status { return DatatypeToStr(DatatypeStringUTF8, s) },
			func(s string) (uint32, Status) { var v Datatype; st := DatatypeFromStr(s, &v); return uint32(v), st },
			"STRING_UTF8", uint32(DatatypeStringUTF8)},
		{"filter", func(s *string) Status { return FilterTypeToStr(FilterZstd, s) },
			func(s string) (uint32, Status) { var v FilterType; st := FilterTypeFromStr(s, &v); return uint32(v), st },
			"ZSTD", uint32(FilterZstd)},
		{"vfs mode", func(s *string) Status { return VFSModeToStr(VFSModeAppend, s) },
			func(s string) (uint32, Status) { var v VFSMode; st := VFSModeFromStr(s, &v); return uint32(v), st },
			"VFS_APPEND", uint32(VFSModeAppend)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s string
			if st := tt.to(&s); st != OK || s != tt.want {
				t.Fatalf("to string = %d %q, want %q", st, s, tt.want)
			}
			code, st := tt.from(s)
			if st != OK || code != tt.code {
				t.Fatalf("from string = %d %d, want %d", st, code, tt.code)
			}
			if _, st := tt.from("NOT_A_NAME"); st != Err {
				t.Errorf("unknown name = %d, want Err", st)
			}
		})
	}

	var s string
	if st := LayoutToStr(Layout(99), &s); st != Err {
		t.Errorf("LayoutToStr(99) = %d, want Err", st)
	}
	if DatatypeSize(DatatypeFloat64) != 8 {
		t.Errorf("DatatypeSize(FLOAT64) = %d", DatatypeSize(DatatypeFloat64))
	}
}

func TestVersion(t *testing.T) {
	var major, minor, rev int32
	Version(&major, &minor, &rev)
	if major != VersionMajor || minor != VersionMinor || rev != VersionPatch {
		t.Errorf("Version = %d.%d.%d", major, minor, rev)
	}
}
