// Package format defines the on-disk layout of arrays and groups: schema
// files, fragments, metadata and group member logs.
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/tiledb-go/capi/internal/storage"
)

// Version is the format version written into new names and fragments.
const Version = 22

const (
	SchemaDir        = "__schema"
	FragmentsDir     = "__fragments"
	MetaDir          = "__meta"
	GroupDir         = "__group"
	GroupMarker      = "__tiledb_group.tdb"
	FragmentMetaFile = "__fragment_metadata.tdb"
)

var lastTimestamp atomic.Int64

// Now returns the current time in milliseconds. Successive calls in the
// process are strictly increasing so writes issued back to back keep their
// order.
func Now() uint64 {
	for {
		last := lastTimestamp.Load()
		now := time.Now().UnixMilli()
		if now <= last {
			now = last + 1
		}
		if lastTimestamp.CompareAndSwap(last, now) {
			return uint64(now)
		}
	}
}

// NewName returns a unique entry name for the timestamp range [t1, t2].
func NewName(t1, t2 uint64) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("__%d_%d_%s_%d", t1, t2, id, Version)
}

// ParseName extracts the timestamp range from a name made by NewName.
func ParseName(name string) (t1, t2 uint64, ok bool) {
	if !strings.HasPrefix(name, "__") {
		return 0, 0, false
	}
	parts := strings.Split(name[2:], "_")
	if len(parts) != 4 {
		return 0, 0, false
	}
	t1, err1 := strconv.ParseUint(parts[0], 10, 64)
	t2, err2 := strconv.ParseUint(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return t1, t2, true
}

// entry is a timestamped file or directory in one of the array's
// bookkeeping directories.
type entry struct {
	uri  string
	name string
	t1   uint64
	t2   uint64
}

// sortEntries orders entries by timestamp range, then by name.
func sortEntries(es []entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].t1 != es[j].t1 {
			return es[i].t1 < es[j].t1
		}
		if es[i].t2 != es[j].t2 {
			return es[i].t2 < es[j].t2
		}
		return es[i].name < es[j].name
	})
}

// listEntries returns the entries of dir whose timestamp range lies in
// [start, end], oldest first. A missing directory yields no entries.
func listEntries(v *storage.VFS, dir string, start, end uint64) ([]entry, error) {
	if !v.IsDir(dir) {
		return nil, nil
	}
	children, err := v.List(dir)
	if err != nil {
		return nil, err
	}
	var out []entry
	for _, c := range children {
		name := storage.Base(c)
		t1, t2, ok := ParseName(name)
		if !ok || t1 < start || t2 > end {
			continue
		}
		out = append(out, entry{uri: c, name: name, t1: t1, t2: t2})
	}
	sortEntries(out)
	return out, nil
}
