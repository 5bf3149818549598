package capi

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestConfig(t *testing.T) Config {
	t.Helper()
	var cfg Config
	var e Error
	if st := ConfigAlloc(&cfg, &e); st != OK {
		t.Fatalf("ConfigAlloc = %d", st)
	}
	t.Cleanup(func() { ConfigFree(&cfg) })
	return cfg
}

func errorText(e Error) string {
	var msg string
	ErrorMessage(e, &msg)
	return msg
}

func TestConfigSetGet(t *testing.T) {
	cfg := newTestConfig(t)
	var e Error

	tests := []struct {
		name  string
		key   string
		value string
		ok    bool
	}{
		{"bool param", "sm.dedup_coords", "true", true},
		{"bad bool", "sm.check_coord_dups", "maybe", false},
		{"uint param", "sm.memory_budget", "1024", true},
		{"negative uint", "sm.memory_budget", "-1", false},
		{"enum param", "rest.server_serialization_format", "JSON", true},
		{"bad enum", "rest.server_serialization_format", "XML", false},
		{"octal", "vfs.file.posix_file_permissions", "640", true},
		{"bad octal", "vfs.file.posix_file_permissions", "999", false},
		{"unknown key", "custom.key", "anything", true},
		{"empty key", "", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := ConfigSet(cfg, tt.key, tt.value, &e)
			if tt.ok {
				if st != OK || e != 0 {
					t.Fatalf("ConfigSet = %d: %s", st, errorText(e))
				}
				var got string
				var found bool
				if st := ConfigGet(cfg, tt.key, &got, &found, &e); st != OK || !found || got != tt.value {
					t.Errorf("ConfigGet = %d %v %q", st, found, got)
				}
				return
			}
			if st != Err || e == 0 {
				t.Fatalf("ConfigSet = %d, error %d; want Err with error", st, e)
			}
			if msg := errorText(e); tt.key != "" && !strings.Contains(msg, tt.key) {
				t.Errorf("message %q does not name the key", msg)
			}
			ErrorFree(&e)
		})
	}
}

func TestConfigDefaultsAndUnset(t *testing.T) {
	cfg := newTestConfig(t)
	var e Error
	var v string
	var found bool

	if ConfigGet(cfg, "sm.check_coord_dups", &v, &found, &e); !found || v != "true" {
		t.Errorf("default sm.check_coord_dups = %q %v", v, found)
	}
	if ConfigGet(cfg, "no.such.key", &v, &found, &e); found {
		t.Errorf("unknown key found with %q", v)
	}

	ConfigSet(cfg, "sm.check_coord_dups", "false", &e)
	ConfigUnset(cfg, "sm.check_coord_dups", &e)
	if ConfigGet(cfg, "sm.check_coord_dups", &v, &found, &e); v != "true" {
		t.Errorf("after unset = %q, want default", v)
	}
}

func TestConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("TILEDB_SM_MEMORY_BUDGET", "77")
	cfg := newTestConfig(t)
	var e Error
	var v string
	var found bool
	ConfigGet(cfg, "sm.memory_budget", &v, &found, &e)
	if v != "77" {
		t.Errorf("sm.memory_budget = %q, want env value", v)
	}
	ConfigSet(cfg, "sm.memory_budget", "5", &e)
	ConfigGet(cfg, "sm.memory_budget", &v, &found, &e)
	if v != "5" {
		t.Errorf("explicit value = %q, want 5", v)
	}
}

func TestConfigSaveLoad(t *testing.T) {
	cfg := newTestConfig(t)
	var e Error
	ConfigSet(cfg, "sm.dedup_coords", "true", &e)
	ConfigSet(cfg, "rest.username", "alice", &e)

	uri := memURI(t, "config.txt")
	if st := ConfigSaveToFile(cfg, uri, &e); st != OK {
		t.Fatalf("ConfigSaveToFile = %d: %s", st, errorText(e))
	}
	loaded := newTestConfig(t)
	if st := ConfigLoadFromFile(loaded, uri, &e); st != OK {
		t.Fatalf("ConfigLoadFromFile = %d: %s", st, errorText(e))
	}
	var equal bool
	if ConfigCompare(cfg, loaded, &equal); !equal {
		t.Error("loaded config differs from saved one")
	}

	if st := ConfigLoadFromFile(loaded, memURI(t, "missing.txt"), &e); st != Err {
		t.Errorf("loading a missing file = %d, want Err", st)
	}
	ErrorFree(&e)
}

func TestConfigIter(t *testing.T) {
	cfg := newTestConfig(t)
	var e Error
	ConfigSet(cfg, "sm.check_coord_oob", "false", &e)

	var it ConfigIter
	if st := ConfigIterAlloc(cfg, "sm.check_", &it, &e); st != OK {
		t.Fatalf("ConfigIterAlloc = %d", st)
	}
	defer ConfigIterFree(&it)

	got := map[string]string{}
	for {
		var done bool
		ConfigIterDone(it, &done, &e)
		if done {
			break
		}
		var k, v string
		if st := ConfigIterHere(it, &k, &v, &e); st != OK {
			t.Fatalf("ConfigIterHere = %d", st)
		}
		got[k] = v
		ConfigIterNext(it, &e)
	}
	want := map[string]string{"coord_dups": "true", "coord_oob": "false"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("iterated params mismatch (-want +got):\n%s", diff)
	}

	var k, v string
	if st := ConfigIterHere(it, &k, &v, &e); st != Err {
		t.Errorf("ConfigIterHere past end = %d, want Err", st)
	}
	ErrorFree(&e)
}

func TestQueryConfigOverridesContext(t *testing.T) {
	ctx := newTestCtx(t)
	uri := createArray(t, ctx, "sparse", ArraySparse,
		[]dimSpec{{"d", DatatypeInt64, i64(1, 10), i64(5)}},
		[]attrSpec{{name: "a", dt: DatatypeInt32}})

	cfg := newTestConfig(t)
	var e Error
	ConfigSet(cfg, "sm.dedup_coords", "true", &e)

	arr := openArray(t, ctx, uri, QueryTypeWrite)
	var q Query
	must(t, ctx, QueryAlloc(ctx, arr, QueryTypeWrite, &q), "QueryAlloc")
	must(t, ctx, QuerySetConfig(ctx, q, cfg), "QuerySetConfig")
	d, a := i64(3, 3, 4), i32(1, 2, 3)
	sizes := []uint64{uint64(len(d)), uint64(len(a))}
	must(t, ctx, QuerySetDataBuffer(ctx, q, "d", d, &sizes[0]), "set d")
	must(t, ctx, QuerySetDataBuffer(ctx, q, "a", a, &sizes[1]), "set a")
	must(t, ctx, QuerySubmit(ctx, q), "QuerySubmit")
	if st := QuerySetConfig(ctx, q, cfg); st != Err {
		t.Errorf("QuerySetConfig after submit = %d, want Err", st)
	}
	QueryFree(&q)
	closeArray(t, ctx, &arr)

	var fi FragmentInfo
	must(t, ctx, FragmentInfoAlloc(ctx, uri, &fi), "FragmentInfoAlloc")
	defer FragmentInfoFree(&fi)
	must(t, ctx, FragmentInfoLoad(ctx, fi), "FragmentInfoLoad")
	var n uint64
	must(t, ctx, FragmentInfoGetTotalCellNum(ctx, fi, &n), "FragmentInfoGetTotalCellNum")
	if n != 2 {
		t.Errorf("cells after dedup = %d, want 2", n)
	}
}
