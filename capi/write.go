package capi

import (
	"bytes"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

// batch is a set of cells on their way into a fragment. keys holds the
// coordinates of sparse cells.
type batch struct {
	n    int
	cols map[string]*format.Column
	keys [][]int64
}

func (b *batch) empty() *batch {
	out := &batch{cols: make(map[string]*format.Column, len(b.cols))}
	for name, col := range b.cols {
		out.cols[name] = format.NewColumn(col.CellSize, col.Nullable)
	}
	return out
}

func (b *batch) appendCell(src *batch, i int) {
	for name, col := range src.cols {
		b.cols[name].AppendFrom(col, i)
	}
	if src.keys != nil {
		b.keys = append(b.keys, src.keys[i])
	}
	b.n++
}

// userColumn copies the caller's buffers for one field.
func (q *queryObj) userColumn(f field) (*format.Column, error) {
	b := q.buffers[f.name]
	if b == nil || b.dataSize == nil {
		return nil, errors.InvalidState(errors.PhaseNative, "Query: Cannot submit write; Buffer for %q is not set", f.name)
	}
	size := *b.dataSize
	if size > uint64(len(b.data)) {
		return nil, errors.InvalidInput(errors.PhaseNative, "Query: Buffer size of %q (%d) exceeds its length (%d)", f.name, size, len(b.data))
	}
	col := format.NewColumn(f.cellSize, f.nullable)
	col.Data = bytes.Clone(b.data[:size])
	if f.cellSize > 0 {
		if size%uint64(f.cellSize) != 0 {
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Buffer size of %q is not a multiple of the cell size %d", f.name, f.cellSize)
		}
	} else {
		if b.offSize == nil {
			return nil, errors.InvalidState(errors.PhaseNative, "Query: Cannot submit write; Offsets buffer for %q is not set", f.name)
		}
		n := *b.offSize / 8
		if n > uint64(len(b.offsets)) {
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Offsets size of %q exceeds its length", f.name)
		}
		offs := b.offsets[:n]
		for i, o := range offs {
			if o > size || (i > 0 && o < offs[i-1]) {
				return nil, errors.InvalidInput(errors.PhaseNative, "Query: Invalid offsets for %q; offsets must be non-decreasing and within the data buffer", f.name)
			}
		}
		col.Offsets = append([]uint64(nil), offs...)
	}
	if f.nullable {
		if b.valSize == nil {
			return nil, errors.InvalidState(errors.PhaseNative, "Query: Cannot submit write; Validity buffer for %q is not set", f.name)
		}
		n := *b.valSize
		if n > uint64(len(b.validity)) {
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Validity size of %q exceeds its length", f.name)
		}
		col.Validity = bytes.Clone(b.validity[:n])
		if len(col.Validity) != col.Len() {
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Validity buffer of %q holds %d values for %d cells", f.name, len(col.Validity), col.Len())
		}
	}
	return col, nil
}

// collect gathers the cells of one write submit.
func (q *queryObj) collect() (*batch, error) {
	s := q.array.schema
	var fields []field
	for _, d := range s.Dimensions {
		if s.ArrayType == format.Dense {
			if _, ok := q.buffers[d.Name]; ok {
				return nil, errors.Unsupported(errors.PhaseNative, "Query: Dense writes with coordinates are not supported")
			}
			continue
		}
		f, _ := q.field(d.Name)
		fields = append(fields, f)
	}
	for _, a := range s.Attributes {
		f, _ := q.field(a.Name)
		fields = append(fields, f)
	}
	b := &batch{n: -1, cols: make(map[string]*format.Column, len(fields))}
	for _, f := range fields {
		col, err := q.userColumn(f)
		if err != nil {
			return nil, err
		}
		switch {
		case b.n < 0:
			b.n = col.Len()
		case col.Len() != b.n:
			return nil, errors.InvalidInput(errors.PhaseNative, "Query: Buffer sizes differ; %q has %d cells, expected %d", f.name, col.Len(), b.n)
		}
		b.cols[f.name] = col
	}
	if b.n < 0 {
		b.n = 0
	}
	return b, nil
}

func (q *queryObj) write(c *ctxObj) error {
	if q.finalized {
		return errors.InvalidState(errors.PhaseNative, "Query: Cannot submit; query was finalized")
	}
	b, err := q.collect()
	if err != nil {
		return err
	}
	if q.array.schema.ArrayType == format.Dense {
		err = q.writeDense(c, b)
	} else {
		err = q.writeSparse(c, b)
	}
	if err != nil {
		return err
	}
	q.returned = b.n
	q.status = QueryCompleted
	return nil
}

// denseBox returns the single range per dimension a dense write covers and
// its cell count.
func (q *queryObj) denseBox() ([]span, uint64, error) {
	if !q.r.single() {
		return nil, 0, errors.Unsupported(errors.PhaseNative, "Query: Dense writes support a single range per dimension")
	}
	box := make([]span, len(q.r.spans))
	total := uint64(1)
	for d, s := range q.r.spans {
		box[d] = s[0]
		total *= cellCount(s[0].klo, s[0].khi)
	}
	return box, total, nil
}

func boxNonEmpty(box []span) [][]byte {
	out := make([][]byte, len(box))
	for d, s := range box {
		out[d] = append(bytes.Clone(s.lo), s.hi...)
	}
	return out
}

func (q *queryObj) writeDense(c *ctxObj, b *batch) error {
	box, total, err := q.denseBox()
	if err != nil {
		return err
	}
	if q.layout == LayoutGlobalOrder {
		if uint64(q.pendingCells()+b.n) > total {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot write; global order write exceeds the %d cells of the subarray", total)
		}
		q.accumulate(b)
		return nil
	}
	if uint64(b.n) != total {
		return errors.InvalidInput(errors.PhaseNative, "Query: Cannot write; expected %d cells for the subarray, got %d", total, b.n)
	}
	if q.layout == LayoutColMajor {
		b = toRowMajor(b, box)
	}
	return q.persist(c, b, boxNonEmpty(box))
}

// toRowMajor reorders the cells of a col-major dense write.
func toRowMajor(b *batch, box []span) *batch {
	nd := len(box)
	ext := make([]int, nd)
	for d, s := range box {
		ext[d] = int(s.khi - s.klo + 1)
	}
	out := b.empty()
	idx := make([]int, nd)
	for r := 0; r < b.n; r++ {
		rem := r
		for d := nd - 1; d >= 0; d-- {
			idx[d] = rem % ext[d]
			rem /= ext[d]
		}
		ci := 0
		for d := nd - 1; d >= 0; d-- {
			ci = ci*ext[d] + idx[d]
		}
		out.appendCell(b, ci)
	}
	return out
}

func (q *queryObj) writeSparse(c *ctxObj, b *batch) error {
	s := q.array.schema
	b.keys = make([][]int64, b.n)
	checkOOB := q.param(c, "sm.check_coord_oob") == "true"
	for i := 0; i < b.n; i++ {
		keys := make([]int64, len(s.Dimensions))
		for d, dim := range s.Dimensions {
			raw := b.cols[dim.Name].Cell(i)
			keys[d] = format.Key(dim.Datatype, raw)
			if lo, hi := dim.Bounds(); checkOOB && (keys[d] < lo || keys[d] > hi) {
				return errors.New(errors.PhaseNative, errors.KindOutOfBounds).
					Path("query", dim.Name).
					Detail("Query: Cannot write; Coordinate %s on dimension %q is out of domain bounds", format.FormatValue(dim.Datatype, raw), dim.Name).
					Build()
			}
		}
		b.keys[i] = keys
	}
	colMajor := s.CellOrder == format.ColMajor
	switch q.layout {
	case LayoutUnordered:
		b = sortBatch(b, colMajor)
	case LayoutGlobalOrder:
		prev := q.pending
		for i := 0; i < b.n; i++ {
			var last []int64
			switch {
			case i > 0:
				last = b.keys[i-1]
			case prev != nil && prev.n > 0:
				last = prev.keys[prev.n-1]
			}
			if last != nil && compareKeys(last, b.keys[i], colMajor) > 0 {
				return errors.InvalidInput(errors.PhaseNative, "Query: Cannot write; Coordinates are not in global order")
			}
		}
		q.accumulate(b)
		return nil
	}
	b, err := q.dedup(c, b)
	if err != nil {
		return err
	}
	return q.persist(c, b, mbr(s, b))
}

func sortBatch(b *batch, colMajor bool) *batch {
	perm := make([]int, b.n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return compareKeys(b.keys[perm[i]], b.keys[perm[j]], colMajor) < 0
	})
	out := b.empty()
	for _, i := range perm {
		out.appendCell(b, i)
	}
	return out
}

// dedup handles equal coordinates in a sorted sparse batch: kept when the
// array allows duplicates, dropped with sm.dedup_coords, rejected with
// sm.check_coord_dups.
func (q *queryObj) dedup(c *ctxObj, b *batch) (*batch, error) {
	s := q.array.schema
	if s.AllowsDups {
		return b, nil
	}
	drop := q.param(c, "sm.dedup_coords") == "true"
	check := q.param(c, "sm.check_coord_dups") == "true"
	if !drop && !check {
		return b, nil
	}
	out := b.empty()
	for i := 0; i < b.n; i++ {
		if i > 0 && compareKeys(b.keys[i-1], b.keys[i], false) == 0 {
			if !drop {
				coords := make([]string, len(s.Dimensions))
				for d, dim := range s.Dimensions {
					coords[d] = format.FormatValue(dim.Datatype, b.cols[dim.Name].Cell(i))
				}
				return nil, errors.InvalidInput(errors.PhaseNative, "Query: Duplicate coordinates (%s) are not allowed", strings.Join(coords, ", "))
			}
			continue
		}
		out.appendCell(b, i)
	}
	return out, nil
}

// mbr returns the bounding box of a sparse batch as fragment non-empty
// domain.
func mbr(s *format.Schema, b *batch) [][]byte {
	out := make([][]byte, len(s.Dimensions))
	for d, dim := range s.Dimensions {
		lo, hi := 0, 0
		for i := 1; i < b.n; i++ {
			if b.keys[i][d] < b.keys[lo][d] {
				lo = i
			}
			if b.keys[i][d] > b.keys[hi][d] {
				hi = i
			}
		}
		col := b.cols[dim.Name]
		out[d] = append(bytes.Clone(col.Cell(lo)), col.Cell(hi)...)
	}
	return out
}

func (q *queryObj) pendingCells() int {
	if q.pending == nil {
		return 0
	}
	return q.pending.n
}

// accumulate keeps the cells of a global-order submit until finalize.
func (q *queryObj) accumulate(b *batch) {
	if q.pending == nil {
		q.pending = b.empty()
		if b.keys != nil {
			q.pending.keys = [][]int64{}
		}
		q.array.writers = append(q.array.writers, q)
	}
	for i := 0; i < b.n; i++ {
		q.pending.appendCell(b, i)
	}
}

// finalize persists the cells of a global-order write. Other queries have
// nothing to flush.
func (q *queryObj) finalize(c *ctxObj) error {
	if q.qtype != QueryTypeWrite || q.layout != LayoutGlobalOrder || q.finalized {
		return nil
	}
	q.finalized = true
	q.array.forget(q)
	b := q.pending
	q.pending = nil
	if b == nil || b.n == 0 {
		return nil
	}
	s := q.array.schema
	if s.ArrayType == format.Dense {
		box, total, err := q.denseBox()
		if err != nil {
			return err
		}
		if uint64(b.n) != total {
			return errors.InvalidInput(errors.PhaseNative, "Query: Cannot finalize; global order write holds %d of %d cells", b.n, total)
		}
		return q.persist(c, b, boxNonEmpty(box))
	}
	b, err := q.dedup(c, b)
	if err != nil {
		return err
	}
	return q.persist(c, b, mbr(s, b))
}

// persist writes b as a new fragment.
func (q *queryObj) persist(c *ctxObj, b *batch, nonEmpty [][]byte) error {
	if b.n == 0 {
		return nil
	}
	s := q.array.schema
	ts := q.array.writeTimestamp()
	f := &format.Fragment{
		T1:         ts,
		T2:         ts,
		ArrayType:  s.ArrayType,
		CellNum:    uint64(b.n),
		SchemaName: s.Name,
		NonEmpty:   nonEmpty,
	}
	var fields []format.FieldWrite
	if s.ArrayType == format.Sparse {
		for _, d := range s.Dimensions {
			fields = append(fields, format.FieldWrite{
				Name:     d.Name,
				Column:   b.cols[d.Name],
				ElemSize: d.Datatype.Size(),
				Filters:  s.DimensionFilters(d),
			})
		}
	}
	for _, a := range s.Attributes {
		fields = append(fields, format.FieldWrite{
			Name:            a.Name,
			Column:          b.cols[a.Name],
			ElemSize:        a.Datatype.Size(),
			Filters:         a.Filters,
			OffsetsFilters:  s.OffsetsFilters,
			ValidityFilters: s.ValidityFilters,
		})
	}
	if err := format.WriteFragment(c.task(), c.vfs, q.array.uri, f, fields, c.filterOptions("write", q.stats)); err != nil {
		return err
	}
	q.written = append(q.written, f)
	c.sink(q.stats).VFS("write", int(f.Size))
	c.log.Debug("fragment written",
		zap.String("uri", f.URI),
		zap.Uint64("cells", f.CellNum),
		zap.Uint64("bytes", f.Size))
	return nil
}
