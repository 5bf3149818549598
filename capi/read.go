package capi

import (
	"encoding/binary"
	"slices"
	"sort"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

// maxDenseCells bounds the cells a single dense read may enumerate.
const maxDenseCells = 1 << 28

// resultSet is the full result of a read, computed once and handed out in
// pieces that fit the caller's buffers.
type resultSet struct {
	n    int
	cols map[string]*format.Column
}

func (r *resultSet) has(names []string) bool {
	for _, n := range names {
		if _, ok := r.cols[n]; !ok {
			return false
		}
	}
	return true
}

// fragmentCols loads fragment columns on first use.
type fragmentCols struct {
	c     *ctxObj
	q     *queryObj
	frags []*format.Fragment
	cache []map[string]*format.Column
}

func newFragmentCols(c *ctxObj, q *queryObj) *fragmentCols {
	l := &fragmentCols{c: c, q: q, frags: q.array.fragments}
	l.cache = make([]map[string]*format.Column, len(l.frags))
	for i := range l.cache {
		l.cache[i] = make(map[string]*format.Column)
	}
	return l
}

// get returns nil when the fragment predates the field.
func (l *fragmentCols) get(i int, name string) (*format.Column, error) {
	if col, ok := l.cache[i][name]; ok {
		return col, nil
	}
	col, err := format.LoadColumn(l.c.task(), l.c.vfs, l.frags[i], name, l.c.filterOptions("read", l.q.stats))
	if errors.KindOf(err) == errors.KindNotFound {
		col, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.cache[i][name] = col
	return col, nil
}

// box returns the non-empty domain of fragment i as keys.
func (l *fragmentCols) box(i int) []span {
	f := l.frags[i]
	dims := l.q.array.schema.Dimensions
	out := make([]span, len(dims))
	for d, dim := range dims {
		n := dim.Datatype.Size()
		if d >= len(f.NonEmpty) || len(f.NonEmpty[d]) < 2*n {
			return nil
		}
		out[d] = makeSpan(dim.Datatype, f.NonEmpty[d][:n], f.NonEmpty[d][n:2*n])
	}
	return out
}

func (r *ranges) overlaps(box []span) bool {
	if box == nil {
		return false
	}
	for d, b := range box {
		hit := false
		for _, s := range r.spans[d] {
			if s.klo <= b.khi && b.klo <= s.khi {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func appendFill(col *format.Column, f field) {
	if f.attr == nil {
		col.Append(make([]byte, f.cellSize), false)
		return
	}
	col.Append(f.attr.FillValue, f.attr.FillValid)
}

// resultFor returns a result set covering the bound buffers plus extra. A
// result already being paged is reused when it covers them; a recomputed
// one keeps the cursor.
func (q *queryObj) resultFor(c *ctxObj, extra []string) (*resultSet, error) {
	names := q.names()
	for _, e := range extra {
		if !slices.Contains(names, e) {
			names = append(names, e)
		}
	}
	if q.result != nil && q.result.has(names) {
		return q.result, nil
	}
	fields := make([]field, len(names))
	for i, n := range names {
		f, err := q.field(n)
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	var res *resultSet
	var err error
	if q.array.schema.ArrayType == format.Dense {
		res, err = q.readDense(c, fields)
	} else {
		res, err = q.readSparse(c, fields)
	}
	if err != nil {
		return nil, err
	}
	if q.result == nil || q.result.n != res.n {
		q.cursor = 0
	}
	q.result = res
	return res, nil
}

func newResult(fields []field) *resultSet {
	res := &resultSet{cols: make(map[string]*format.Column, len(fields))}
	for _, f := range fields {
		res.cols[f.name] = format.NewColumn(f.cellSize, f.nullable)
	}
	return res
}

func (q *queryObj) readDense(c *ctxObj, fields []field) (*resultSet, error) {
	s := q.array.schema
	nd := len(s.Dimensions)
	axes := make([][]int64, nd)
	total := uint64(1)
	for d := range s.Dimensions {
		var n uint64
		for _, sp := range q.r.spans[d] {
			n += cellCount(sp.klo, sp.khi)
		}
		if n > maxDenseCells || total*n > maxDenseCells {
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Cannot read; subarray covers more than %d cells", maxDenseCells)
		}
		total *= n
		for _, sp := range q.r.spans[d] {
			for k := sp.klo; ; k++ {
				axes[d] = append(axes[d], k)
				if k == sp.khi {
					break
				}
			}
		}
	}

	l := newFragmentCols(c, q)
	boxes := make([][]span, len(l.frags))
	for i, f := range l.frags {
		if f.ArrayType == format.Dense {
			boxes[i] = l.box(i)
		}
	}

	res := newResult(fields)
	res.n = int(total)
	keys := make([]int64, nd)
	for i := 0; i < res.n; i++ {
		rem := i
		if q.layout == LayoutColMajor {
			for d := 0; d < nd; d++ {
				keys[d] = axes[d][rem%len(axes[d])]
				rem /= len(axes[d])
			}
		} else {
			for d := nd - 1; d >= 0; d-- {
				keys[d] = axes[d][rem%len(axes[d])]
				rem /= len(axes[d])
			}
		}
		frag, pos := -1, 0
		for fi := len(boxes) - 1; fi >= 0; fi-- {
			if p, ok := boxPosition(boxes[fi], keys); ok {
				frag, pos = fi, p
				break
			}
		}
		for _, f := range fields {
			out := res.cols[f.name]
			if f.isDim() {
				out.Append(format.Raw(f.dt, keys[f.dim]), true)
				continue
			}
			if frag < 0 {
				appendFill(out, f)
				continue
			}
			src, err := l.get(frag, f.name)
			if err != nil {
				return nil, err
			}
			if src == nil {
				appendFill(out, f)
				continue
			}
			out.AppendFrom(src, pos)
		}
	}
	return res, nil
}

// boxPosition returns the row-major position of keys inside box.
func boxPosition(box []span, keys []int64) (int, bool) {
	if box == nil {
		return 0, false
	}
	pos := 0
	for d, b := range box {
		if !b.contains(keys[d]) {
			return 0, false
		}
		pos = pos*int(b.khi-b.klo+1) + int(keys[d]-b.klo)
	}
	return pos, true
}

type hit struct {
	frag int
	idx  int
	keys []int64
}

// compareKeys orders coordinates lexicographically, from the last
// dimension when colMajor is set.
func compareKeys(a, b []int64, colMajor bool) int {
	n := len(a)
	for i := 0; i < n; i++ {
		d := i
		if colMajor {
			d = n - 1 - i
		}
		switch {
		case a[d] < b[d]:
			return -1
		case a[d] > b[d]:
			return 1
		}
	}
	return 0
}

func coordKey(keys []int64) string {
	b := make([]byte, 0, 8*len(keys))
	for _, k := range keys {
		b = binary.LittleEndian.AppendUint64(b, uint64(k))
	}
	return string(b)
}

// colMajorOrder reports whether the cells of a sparse result are ordered
// from the last dimension.
func (q *queryObj) colMajorOrder() bool {
	switch q.layout {
	case LayoutColMajor:
		return true
	case LayoutGlobalOrder, LayoutUnordered:
		return q.array.schema.CellOrder == format.ColMajor
	}
	return false
}

func (q *queryObj) readSparse(c *ctxObj, fields []field) (*resultSet, error) {
	s := q.array.schema
	l := newFragmentCols(c, q)
	var hits []hit
	for fi := range l.frags {
		if !q.r.overlaps(l.box(fi)) {
			continue
		}
		dims := make([]*format.Column, len(s.Dimensions))
		for d, dim := range s.Dimensions {
			col, err := l.get(fi, dim.Name)
			if err != nil {
				return nil, err
			}
			if col == nil {
				return nil, errors.Corrupt(l.frags[fi].URI, "sparse fragment is missing dimension "+dim.Name)
			}
			dims[d] = col
		}
		for i := 0; i < int(l.frags[fi].CellNum); i++ {
			keys := make([]int64, len(dims))
			for d, col := range dims {
				keys[d] = format.Key(s.Dimensions[d].Datatype, col.Cell(i))
			}
			if q.r.contains(keys) {
				hits = append(hits, hit{frag: fi, idx: i, keys: keys})
			}
		}
	}

	if !s.AllowsDups {
		latest := make(map[string]int, len(hits))
		for i, h := range hits {
			latest[coordKey(h.keys)] = i
		}
		kept := hits[:0]
		for i, h := range hits {
			if latest[coordKey(h.keys)] == i {
				kept = append(kept, h)
			}
		}
		hits = kept
	}

	colMajor := q.colMajorOrder()
	sort.SliceStable(hits, func(i, j int) bool {
		return compareKeys(hits[i].keys, hits[j].keys, colMajor) < 0
	})

	res := newResult(fields)
	res.n = len(hits)
	for _, f := range fields {
		out := res.cols[f.name]
		for _, h := range hits {
			src, err := l.get(h.frag, f.name)
			if err != nil {
				return nil, err
			}
			if src == nil {
				appendFill(out, f)
				continue
			}
			out.AppendFrom(src, h.idx)
		}
	}
	return res, nil
}

func (q *queryObj) checkReadBuffers(names []string) error {
	if len(names) == 0 {
		return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit read; No buffers set")
	}
	for _, name := range names {
		f, _ := q.field(name)
		b := q.buffers[name]
		if f.cellSize == 0 && b.offSize == nil {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit read; Offsets buffer for %q is not set", name)
		}
		if f.nullable && b.valSize == nil {
			return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit read; Validity buffer for %q is not set", name)
		}
	}
	return nil
}

func (q *queryObj) read(c *ctxObj) error {
	names := q.names()
	if err := q.checkReadBuffers(names); err != nil {
		return err
	}
	res, err := q.resultFor(c, nil)
	if err != nil {
		return err
	}
	q.deliver(res, names)
	return nil
}

// fitting returns how many cells starting at the cursor fit every buffer.
func (q *queryObj) fitting(res *resultSet, names []string) int {
	k := res.n - q.cursor
	for _, name := range names {
		b, col := q.buffers[name], res.cols[name]
		if col.Var() {
			k = min(k, b.offCap)
			used, fit := 0, 0
			for fit < k {
				sz := len(col.Cell(q.cursor + fit))
				if used+sz > b.dataCap {
					break
				}
				used += sz
				fit++
			}
			k = fit
		} else {
			k = min(k, b.dataCap/col.CellSize)
		}
		if col.Nullable {
			k = min(k, b.valCap)
		}
	}
	return k
}

// deliver copies the next cells of res into the bound buffers and updates
// the size cells and the query status.
func (q *queryObj) deliver(res *resultSet, names []string) {
	k := q.fitting(res, names)
	from, to := q.cursor, q.cursor+k
	for _, name := range names {
		b, col := q.buffers[name], res.cols[name]
		if col.Var() {
			start, end := uint64(len(col.Data)), uint64(len(col.Data))
			if from < col.Len() {
				start = col.Offsets[from]
			}
			if to < col.Len() {
				end = col.Offsets[to]
			}
			for j := 0; j < k; j++ {
				b.offsets[j] = col.Offsets[from+j] - start
			}
			*b.offSize = uint64(8 * k)
			*b.dataSize = uint64(copy(b.data, col.Data[start:end]))
		} else {
			*b.dataSize = uint64(copy(b.data, col.Data[from*col.CellSize:to*col.CellSize]))
		}
		if col.Nullable {
			*b.valSize = uint64(copy(b.validity, col.Validity[from:to]))
		}
	}
	q.returned = k
	q.cursor = to
	if q.cursor >= res.n {
		q.status = QueryCompleted
		q.result, q.cursor = nil, 0
		return
	}
	q.status = QueryIncomplete
	q.reason = ReasonUserBufferSize
}
