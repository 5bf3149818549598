package format

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

// Column holds the cells of one field in memory. Fixed-size columns keep
// CellSize bytes per cell; variable-sized columns keep the start offset of
// every cell in Offsets.
type Column struct {
	CellSize int
	Data     []byte
	Offsets  []uint64
	Validity []byte
	Nullable bool
}

// NewColumn returns an empty column. cellSize is 0 for variable-sized cells.
func NewColumn(cellSize int, nullable bool) *Column {
	return &Column{CellSize: cellSize, Nullable: nullable}
}

func (c *Column) Var() bool { return c.CellSize == 0 }

// Len returns the number of cells.
func (c *Column) Len() int {
	if c.Var() {
		return len(c.Offsets)
	}
	return len(c.Data) / c.CellSize
}

// Cell returns the bytes of cell i. The slice aliases the column.
func (c *Column) Cell(i int) []byte {
	if !c.Var() {
		return c.Data[i*c.CellSize : (i+1)*c.CellSize]
	}
	end := uint64(len(c.Data))
	if i+1 < len(c.Offsets) {
		end = c.Offsets[i+1]
	}
	return c.Data[c.Offsets[i]:end]
}

// Valid reports whether cell i is non-null.
func (c *Column) Valid(i int) bool {
	return !c.Nullable || c.Validity[i] != 0
}

// Append adds one cell.
func (c *Column) Append(cell []byte, valid bool) {
	if c.Var() {
		c.Offsets = append(c.Offsets, uint64(len(c.Data)))
	}
	c.Data = append(c.Data, cell...)
	if c.Nullable {
		v := byte(0)
		if valid {
			v = 1
		}
		c.Validity = append(c.Validity, v)
	}
}

// AppendFrom copies cell i of src.
func (c *Column) AppendFrom(src *Column, i int) {
	c.Append(src.Cell(i), src.Valid(i))
}

// Stream describes one stored file of a field.
type Stream struct {
	File    string
	Size    uint64
	Raw     uint64
	Filters FilterList
}

// FieldMeta describes how a field is stored in a fragment.
type FieldMeta struct {
	Name     string
	CellSize uint32
	ElemSize uint32
	Var      bool
	Nullable bool
	Data     Stream
	Offsets  Stream
	Validity Stream
}

// Fragment is the metadata of one immutable write.
type Fragment struct {
	URI        string
	Name       string
	T1         uint64
	T2         uint64
	ArrayType  uint32
	CellNum    uint64
	SchemaName string
	// NonEmpty holds, per dimension, the lower bound followed by the upper
	// bound. Dense fragments store cells in row-major order over this box.
	NonEmpty [][]byte
	Fields   []FieldMeta
	Size     uint64
}

// Field returns the stored description of a field.
func (f *Fragment) Field(name string) (*FieldMeta, bool) {
	for i := range f.Fields {
		if f.Fields[i].Name == name {
			return &f.Fields[i], true
		}
	}
	return nil, false
}

// FieldWrite is one field passed to WriteFragment.
type FieldWrite struct {
	Name            string
	Column          *Column
	ElemSize        int
	Filters         FilterList
	OffsetsFilters  FilterList
	ValidityFilters FilterList
}

func encodeFilterList(e *encoder, l FilterList) {
	e.u32(l.MaxChunkSize)
	e.u32(uint32(len(l.Filters)))
	for _, f := range l.Filters {
		e.u32(uint32(f.Type))
		e.i32(f.Level)
	}
}

func decodeFilterList(d *decoder) FilterList {
	l := FilterList{MaxChunkSize: d.u32()}
	n := d.u32()
	for i := uint32(0); i < n && d.err == nil; i++ {
		l.Filters = append(l.Filters, Filter{Type: filter.Type(d.u32()), Level: d.i32()})
	}
	return l
}

func encodeStream(e *encoder, s Stream) {
	e.str(s.File)
	e.u64(s.Size)
	e.u64(s.Raw)
	encodeFilterList(e, s.Filters)
}

func decodeStream(d *decoder) Stream {
	return Stream{File: d.str(), Size: d.u64(), Raw: d.u64(), Filters: decodeFilterList(d)}
}

func encodeFragment(f *Fragment) []byte {
	var e encoder
	e.u32(Version)
	e.u32(f.ArrayType)
	e.u64(f.CellNum)
	e.str(f.SchemaName)
	e.u32(uint32(len(f.NonEmpty)))
	for _, r := range f.NonEmpty {
		e.bytes(r)
	}
	e.u32(uint32(len(f.Fields)))
	for _, fm := range f.Fields {
		e.str(fm.Name)
		e.u32(fm.CellSize)
		e.u32(fm.ElemSize)
		e.bool(fm.Var)
		e.bool(fm.Nullable)
		encodeStream(&e, fm.Data)
		encodeStream(&e, fm.Offsets)
		encodeStream(&e, fm.Validity)
	}
	return e.compressed()
}

func decodeFragment(uri string, data []byte) (*Fragment, error) {
	d, err := newDecoder(uri, data)
	if err != nil {
		return nil, err
	}
	if v := d.u32(); d.err == nil && v > Version {
		return nil, errors.Unsupported(errors.PhaseStorage, "fragment format version too new")
	}
	f := &Fragment{ArrayType: d.u32(), CellNum: d.u64(), SchemaName: d.str()}
	nd := d.u32()
	for i := uint32(0); i < nd && d.err == nil; i++ {
		f.NonEmpty = append(f.NonEmpty, d.bytes())
	}
	nf := d.u32()
	for i := uint32(0); i < nf && d.err == nil; i++ {
		fm := FieldMeta{Name: d.str(), CellSize: d.u32(), ElemSize: d.u32(), Var: d.bool(), Nullable: d.bool()}
		fm.Data = decodeStream(d)
		fm.Offsets = decodeStream(d)
		fm.Validity = decodeStream(d)
		f.Fields = append(f.Fields, fm)
	}
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

func offsetsBytes(offs []uint64) []byte {
	out := make([]byte, 8*len(offs))
	for i, o := range offs {
		binary.LittleEndian.PutUint64(out[8*i:], o)
	}
	return out
}

func bytesOffsets(b []byte) []uint64 {
	out := make([]uint64, len(b)/8)
	for i := range out {
		out[i] = binary.LittleEndian.Uint64(b[8*i:])
	}
	return out
}

func writeStream(ctx context.Context, v *storage.VFS, dir, file string, data []byte, elemSize int, l FilterList, opts filter.Options) (Stream, error) {
	framed, err := l.Pipeline().Encode(ctx, data, elemSize, opts)
	if err != nil {
		return Stream{}, err
	}
	if err := v.WriteFile(storage.Join(dir, file), framed); err != nil {
		return Stream{}, err
	}
	return Stream{File: file, Size: uint64(len(framed)), Raw: uint64(len(data)), Filters: l}, nil
}

// WriteFragment stores the fields of f under the array at arrayURI and
// fills in f.URI, f.Fields and f.Size. The metadata file is written last;
// a fragment directory without it is ignored by readers.
func WriteFragment(ctx context.Context, v *storage.VFS, arrayURI string, f *Fragment, fields []FieldWrite, opts filter.Options) error {
	if f.Name == "" {
		f.Name = NewName(f.T1, f.T2)
	}
	dir := storage.Join(arrayURI, FragmentsDir, f.Name)
	if err := v.MkdirAll(dir); err != nil {
		return err
	}
	f.URI = dir
	f.Fields = f.Fields[:0]
	f.Size = 0
	for i, fw := range fields {
		col := fw.Column
		fm := FieldMeta{
			Name:     fw.Name,
			CellSize: uint32(col.CellSize),
			ElemSize: uint32(fw.ElemSize),
			Var:      col.Var(),
			Nullable: col.Nullable,
		}
		base := fieldFile(i)
		var err error
		if fm.Data, err = writeStream(ctx, v, dir, base+".tdb", col.Data, fw.ElemSize, fw.Filters, opts); err != nil {
			return err
		}
		f.Size += fm.Data.Size
		if fm.Var {
			if fm.Offsets, err = writeStream(ctx, v, dir, base+"_var.tdb", offsetsBytes(col.Offsets), 8, fw.OffsetsFilters, opts); err != nil {
				return err
			}
			f.Size += fm.Offsets.Size
		}
		if fm.Nullable {
			if fm.Validity, err = writeStream(ctx, v, dir, base+"_validity.tdb", col.Validity, 1, fw.ValidityFilters, opts); err != nil {
				return err
			}
			f.Size += fm.Validity.Size
		}
		f.Fields = append(f.Fields, fm)
	}
	meta := encodeFragment(f)
	f.Size += uint64(len(meta))
	return v.WriteFile(storage.Join(dir, FragmentMetaFile), meta)
}

func fieldFile(i int) string {
	return "a" + strconv.Itoa(i)
}

// ListFragments returns the committed fragments of the array whose
// timestamp range lies in [start, end], oldest first.
func ListFragments(v *storage.VFS, arrayURI string, start, end uint64) ([]*Fragment, error) {
	entries, err := listEntries(v, storage.Join(arrayURI, FragmentsDir), start, end)
	if err != nil {
		return nil, err
	}
	out := make([]*Fragment, 0, len(entries))
	for _, e := range entries {
		metaURI := storage.Join(e.uri, FragmentMetaFile)
		if !v.IsFile(metaURI) {
			continue
		}
		data, err := v.ReadFile(metaURI)
		if err != nil {
			return nil, err
		}
		f, err := decodeFragment(metaURI, data)
		if err != nil {
			return nil, err
		}
		f.URI, f.Name, f.T1, f.T2 = e.uri, e.name, e.t1, e.t2
		f.Size = uint64(len(data))
		for _, fm := range f.Fields {
			f.Size += fm.Data.Size + fm.Offsets.Size + fm.Validity.Size
		}
		out = append(out, f)
	}
	return out, nil
}

func readStream(ctx context.Context, v *storage.VFS, dir string, s Stream, elemSize int, opts filter.Options) ([]byte, error) {
	framed, err := v.ReadFile(storage.Join(dir, s.File))
	if err != nil {
		return nil, err
	}
	data, err := s.Filters.Pipeline().Decode(ctx, framed, elemSize, opts)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != s.Raw {
		return nil, errors.Corrupt(s.File, "stream length mismatch")
	}
	return data, nil
}

// LoadColumn reads one field of a fragment.
func LoadColumn(ctx context.Context, v *storage.VFS, f *Fragment, name string, opts filter.Options) (*Column, error) {
	fm, ok := f.Field(name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseStorage, "field", name)
	}
	col := &Column{CellSize: int(fm.CellSize), Nullable: fm.Nullable}
	if fm.Var {
		col.CellSize = 0
	}
	var err error
	if col.Data, err = readStream(ctx, v, f.URI, fm.Data, int(fm.ElemSize), opts); err != nil {
		return nil, err
	}
	if fm.Var {
		raw, err := readStream(ctx, v, f.URI, fm.Offsets, 8, opts)
		if err != nil {
			return nil, err
		}
		col.Offsets = bytesOffsets(raw)
	}
	if fm.Nullable {
		if col.Validity, err = readStream(ctx, v, f.URI, fm.Validity, 1, opts); err != nil {
			return nil, err
		}
	}
	if uint64(col.Len()) != f.CellNum {
		return nil, errors.Corrupt(f.URI, "field "+name+" has the wrong number of cells")
	}
	return col, nil
}

// DeleteFragments removes the fragments whose timestamp range lies in
// [start, end] and returns how many were removed.
func DeleteFragments(v *storage.VFS, arrayURI string, start, end uint64) (int, error) {
	entries, err := listEntries(v, storage.Join(arrayURI, FragmentsDir), start, end)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := v.RemoveDir(e.uri); err != nil {
			return 0, err
		}
	}
	return len(entries), nil
}

// FragmentRange returns the union of the non-empty domains of fs for a
// dimension of type dt, or ok=false when fs is empty.
func FragmentRange(fs []*Fragment, dim int, dt Datatype) (lo, hi []byte, ok bool) {
	n := dt.Size()
	loKey, hiKey := int64(math.MaxInt64), int64(math.MinInt64)
	for _, f := range fs {
		if dim >= len(f.NonEmpty) || len(f.NonEmpty[dim]) < 2*n {
			continue
		}
		r := f.NonEmpty[dim]
		if k := Key(dt, r[:n]); k <= loKey {
			loKey, lo = k, r[:n]
		}
		if k := Key(dt, r[n:2*n]); k >= hiKey {
			hiKey, hi = k, r[n:2*n]
		}
		ok = true
	}
	return lo, hi, ok
}
