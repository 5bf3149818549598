package format

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/pelletier/go-toml"

	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/storage"
	"github.com/wippyai/tiledb-go/errors"
)

// ArrayType values match the ABI's array type enum.
const (
	Dense  uint32 = 0
	Sparse uint32 = 1
)

// Layout values match the ABI's layout enum.
const (
	RowMajor    uint32 = 0
	ColMajor    uint32 = 1
	GlobalOrder uint32 = 2
	Unordered   uint32 = 3
	Hilbert     uint32 = 4
)

// VarNum marks a variable number of values per cell.
const VarNum = math.MaxUint32

const defaultCapacity = 10000

// Filter is one configured filter with its options.
type Filter struct {
	Type                   filter.Type
	Level                  int32
	BitWidthMaxWindow      uint32
	PositiveDeltaMaxWindow uint32
	ScaleFloatByteWidth    uint64
	ScaleFloatFactor       float64
	ScaleFloatOffset       float64
	ReinterpretDatatype    uint8
}

// NewFilter returns a filter with default options.
func NewFilter(t filter.Type) *Filter {
	return &Filter{
		Type:                   t,
		Level:                  filter.DefaultCompression,
		BitWidthMaxWindow:      256,
		PositiveDeltaMaxWindow: 1024,
		ScaleFloatByteWidth:    8,
		ScaleFloatFactor:       1,
	}
}

type FilterList struct {
	Filters      []Filter
	MaxChunkSize uint32
}

// NewFilterList returns an empty list with the default chunk size.
func NewFilterList() *FilterList {
	return &FilterList{MaxChunkSize: filter.DefaultChunkSize}
}

func (l FilterList) Clone() FilterList {
	out := l
	out.Filters = append([]Filter(nil), l.Filters...)
	return out
}

// Pipeline converts the list into a runnable filter pipeline.
func (l FilterList) Pipeline() filter.Pipeline {
	p := filter.Pipeline{ChunkSize: l.MaxChunkSize}
	for _, f := range l.Filters {
		p.Filters = append(p.Filters, filter.Spec{Type: f.Type, Level: f.Level})
	}
	return p
}

type Dimension struct {
	Name       string
	Datatype   Datatype
	CellValNum uint32
	// Domain holds the lower bound followed by the upper bound.
	Domain     []byte
	TileExtent []byte
	Filters    FilterList
	HasFilters bool
}

func (d *Dimension) Clone() *Dimension {
	out := *d
	out.Domain = bytes.Clone(d.Domain)
	out.TileExtent = bytes.Clone(d.TileExtent)
	out.Filters = d.Filters.Clone()
	return &out
}

// Bounds returns the domain bounds as comparable keys.
func (d *Dimension) Bounds() (lo, hi int64) {
	n := d.Datatype.Size()
	return Key(d.Datatype, d.Domain[:n]), Key(d.Datatype, d.Domain[n:2*n])
}

type Attribute struct {
	Name        string
	Datatype    Datatype
	CellValNum  uint32
	Nullable    bool
	FillValue   []byte
	FillValid   bool
	Filters     FilterList
	Enumeration string
}

// NewAttribute returns an attribute with one value per cell and the
// default fill value for dt.
func NewAttribute(name string, dt Datatype) *Attribute {
	return &Attribute{
		Name:       name,
		Datatype:   dt,
		CellValNum: 1,
		FillValue:  DefaultFill(dt),
		Filters:    *NewFilterList(),
	}
}

func (a *Attribute) Clone() *Attribute {
	out := *a
	out.FillValue = bytes.Clone(a.FillValue)
	out.Filters = a.Filters.Clone()
	return &out
}

func (a *Attribute) VarSized() bool { return a.CellValNum == VarNum }

// CellSize returns the bytes per cell, or 0 for variable-sized attributes.
func (a *Attribute) CellSize() int {
	if a.VarSized() {
		return 0
	}
	return a.Datatype.Size() * int(a.CellValNum)
}

type Enumeration struct {
	Name       string
	Datatype   Datatype
	CellValNum uint32
	Ordered    bool
	Data       []byte
	Offsets    []byte
}

func (e *Enumeration) Clone() *Enumeration {
	out := *e
	out.Data = bytes.Clone(e.Data)
	out.Offsets = bytes.Clone(e.Offsets)
	return &out
}

type Schema struct {
	ArrayType       uint32
	CellOrder       uint32
	TileOrder       uint32
	Capacity        uint64
	AllowsDups      bool
	Dimensions      []*Dimension
	Attributes      []*Attribute
	Enumerations    []*Enumeration
	CoordsFilters   FilterList
	OffsetsFilters  FilterList
	ValidityFilters FilterList
	Name            string
	TimestampStart  uint64
	TimestampEnd    uint64
	HasDomain       bool
}

// NewSchema returns an empty schema of the given array type.
func NewSchema(arrayType uint32) *Schema {
	return &Schema{
		ArrayType:       arrayType,
		CellOrder:       RowMajor,
		TileOrder:       RowMajor,
		Capacity:        defaultCapacity,
		CoordsFilters:   *NewFilterList(),
		OffsetsFilters:  *NewFilterList(),
		ValidityFilters: *NewFilterList(),
	}
}

func (s *Schema) Clone() *Schema {
	out := *s
	out.Dimensions = make([]*Dimension, len(s.Dimensions))
	for i, d := range s.Dimensions {
		out.Dimensions[i] = d.Clone()
	}
	out.Attributes = make([]*Attribute, len(s.Attributes))
	for i, a := range s.Attributes {
		out.Attributes[i] = a.Clone()
	}
	out.Enumerations = make([]*Enumeration, len(s.Enumerations))
	for i, e := range s.Enumerations {
		out.Enumerations[i] = e.Clone()
	}
	out.CoordsFilters = s.CoordsFilters.Clone()
	out.OffsetsFilters = s.OffsetsFilters.Clone()
	out.ValidityFilters = s.ValidityFilters.Clone()
	return &out
}

func (s *Schema) Attribute(name string) (*Attribute, int) {
	for i, a := range s.Attributes {
		if a.Name == name {
			return a, i
		}
	}
	return nil, -1
}

func (s *Schema) Dimension(name string) (*Dimension, int) {
	for i, d := range s.Dimensions {
		if d.Name == name {
			return d, i
		}
	}
	return nil, -1
}

func (s *Schema) Enumeration(name string) (*Enumeration, int) {
	for i, e := range s.Enumerations {
		if e.Name == name {
			return e, i
		}
	}
	return nil, -1
}

// DimensionFilters returns the filters applied to a dimension's coordinates.
func (s *Schema) DimensionFilters(d *Dimension) FilterList {
	if d.HasFilters {
		return d.Filters
	}
	return s.CoordsFilters
}

// Check validates the schema.
func (s *Schema) Check() error {
	fail := func(format string, args ...any) error {
		return errors.InvalidInput(errors.PhaseValidate, "ArraySchema: "+format, args...)
	}
	if !s.HasDomain || len(s.Dimensions) == 0 {
		return fail("Array schema check failed; Domain not set")
	}
	if s.ArrayType == Dense && len(s.Attributes) == 0 {
		return fail("Array schema check failed; No attributes")
	}
	if s.Capacity == 0 {
		return fail("Tile capacity must be positive")
	}
	if s.ArrayType == Dense && s.AllowsDups {
		return fail("Dense arrays cannot allow duplicates")
	}
	if s.ArrayType == Dense && s.CellOrder == Hilbert {
		return fail("Cannot set Hilbert cell order on a dense array")
	}
	seen := make(map[string]string)
	for _, d := range s.Dimensions {
		if s.ArrayType == Dense && !d.Datatype.IsInteger() {
			return fail("Dense arrays support only integer dimensions; %q is %s", d.Name, d.Datatype)
		}
		if s.ArrayType == Dense && d.Datatype != s.Dimensions[0].Datatype {
			return fail("Dense arrays require all dimensions to have the same type")
		}
		seen[d.Name] = "dimension"
	}
	for _, a := range s.Attributes {
		if kind, dup := seen[a.Name]; dup {
			return fail("Name %q is used by more than one %s or attribute", a.Name, kind)
		}
		seen[a.Name] = "attribute"
		if a.Enumeration != "" {
			if e, _ := s.Enumeration(a.Enumeration); e == nil {
				return fail("Attribute %q references unknown enumeration %q", a.Name, a.Enumeration)
			}
			if !a.Datatype.IsInteger() {
				return fail("Attribute %q has an enumeration but is not an integer type", a.Name)
			}
		}
	}
	return nil
}

// Dump renders the schema in a human readable form.
func (s *Schema) Dump() string {
	var b strings.Builder
	arrayType := "dense"
	if s.ArrayType == Sparse {
		arrayType = "sparse"
	}
	fmt.Fprintf(&b, "- Array type: %s\n", arrayType)
	fmt.Fprintf(&b, "- Cell order: %s\n", LayoutName(s.CellOrder))
	fmt.Fprintf(&b, "- Tile order: %s\n", LayoutName(s.TileOrder))
	fmt.Fprintf(&b, "- Capacity: %d\n", s.Capacity)
	fmt.Fprintf(&b, "- Allows duplicates: %t\n", s.AllowsDups)
	b.WriteString("\n### Domain ###\n")
	for _, d := range s.Dimensions {
		n := d.Datatype.Size()
		fmt.Fprintf(&b, "- Dimension.Name: %s\n", d.Name)
		fmt.Fprintf(&b, "- Dimension.Type: %s\n", d.Datatype)
		fmt.Fprintf(&b, "- Dimension.Domain: [%s,%s]\n", FormatValue(d.Datatype, d.Domain[:n]), FormatValue(d.Datatype, d.Domain[n:]))
		if len(d.TileExtent) > 0 {
			fmt.Fprintf(&b, "- Dimension.TileExtent: %s\n", FormatValue(d.Datatype, d.TileExtent))
		}
	}
	for _, a := range s.Attributes {
		b.WriteString("\n### Attribute ###\n")
		fmt.Fprintf(&b, "- Name: %s\n", a.Name)
		fmt.Fprintf(&b, "- Type: %s\n", a.Datatype)
		fmt.Fprintf(&b, "- Nullable: %t\n", a.Nullable)
		if a.VarSized() {
			b.WriteString("- Cell val num: var\n")
		} else {
			fmt.Fprintf(&b, "- Cell val num: %d\n", a.CellValNum)
		}
		fmt.Fprintf(&b, "- Filters: %d\n", len(a.Filters.Filters))
		if a.Enumeration != "" {
			fmt.Fprintf(&b, "- Enumeration: %s\n", a.Enumeration)
		}
	}
	for _, e := range s.Enumerations {
		b.WriteString("\n### Enumeration ###\n")
		fmt.Fprintf(&b, "- Name: %s\n- Type: %s\n- Ordered: %t\n", e.Name, e.Datatype, e.Ordered)
	}
	return b.String()
}

// LayoutName returns the ABI name of a layout.
func LayoutName(l uint32) string {
	switch l {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	case GlobalOrder:
		return "global-order"
	case Unordered:
		return "unordered"
	case Hilbert:
		return "hilbert"
	}
	return fmt.Sprintf("layout(%d)", l)
}

type tomlFilter struct {
	Type                   string  `toml:"type"`
	Level                  int64   `toml:"level"`
	BitWidthMaxWindow      int64   `toml:"bit_width_max_window"`
	PositiveDeltaMaxWindow int64   `toml:"positive_delta_max_window"`
	ScaleFloatByteWidth    int64   `toml:"scale_float_bytewidth"`
	ScaleFloatFactor       float64 `toml:"scale_float_factor"`
	ScaleFloatOffset       float64 `toml:"scale_float_offset"`
	ReinterpretDatatype    int64   `toml:"reinterpret_datatype"`
}

type tomlFilterList struct {
	MaxChunkSize int64        `toml:"max_chunk_size"`
	Filters      []tomlFilter `toml:"filter"`
}

type tomlDimension struct {
	Name       string         `toml:"name"`
	Datatype   string         `toml:"datatype"`
	CellValNum int64          `toml:"cell_val_num"`
	Domain     string         `toml:"domain"`
	TileExtent string         `toml:"tile_extent"`
	HasFilters bool           `toml:"has_filters"`
	Filters    tomlFilterList `toml:"filters"`
}

type tomlAttribute struct {
	Name        string         `toml:"name"`
	Datatype    string         `toml:"datatype"`
	CellValNum  int64          `toml:"cell_val_num"`
	Nullable    bool           `toml:"nullable"`
	FillValue   string         `toml:"fill_value"`
	FillValid   bool           `toml:"fill_valid"`
	Enumeration string         `toml:"enumeration"`
	Filters     tomlFilterList `toml:"filters"`
}

type tomlEnumeration struct {
	Name       string `toml:"name"`
	Datatype   string `toml:"datatype"`
	CellValNum int64  `toml:"cell_val_num"`
	Ordered    bool   `toml:"ordered"`
	Data       string `toml:"data"`
	Offsets    string `toml:"offsets"`
}

type tomlSchema struct {
	Version         int64             `toml:"version"`
	ArrayType       int64             `toml:"array_type"`
	CellOrder       int64             `toml:"cell_order"`
	TileOrder       int64             `toml:"tile_order"`
	Capacity        int64             `toml:"capacity"`
	AllowsDups      bool              `toml:"allows_dups"`
	CoordsFilters   tomlFilterList    `toml:"coords_filters"`
	OffsetsFilters  tomlFilterList    `toml:"offsets_filters"`
	ValidityFilters tomlFilterList    `toml:"validity_filters"`
	Dimensions      []tomlDimension   `toml:"dimension"`
	Attributes      []tomlAttribute   `toml:"attribute"`
	Enumerations    []tomlEnumeration `toml:"enumeration"`
}

func toTOMLFilters(l FilterList) tomlFilterList {
	out := tomlFilterList{MaxChunkSize: int64(l.MaxChunkSize)}
	for _, f := range l.Filters {
		out.Filters = append(out.Filters, tomlFilter{
			Type:                   f.Type.String(),
			Level:                  int64(f.Level),
			BitWidthMaxWindow:      int64(f.BitWidthMaxWindow),
			PositiveDeltaMaxWindow: int64(f.PositiveDeltaMaxWindow),
			ScaleFloatByteWidth:    int64(f.ScaleFloatByteWidth),
			ScaleFloatFactor:       f.ScaleFloatFactor,
			ScaleFloatOffset:       f.ScaleFloatOffset,
			ReinterpretDatatype:    int64(f.ReinterpretDatatype),
		})
	}
	return out
}

func fromTOMLFilters(l tomlFilterList) (FilterList, error) {
	out := FilterList{MaxChunkSize: uint32(l.MaxChunkSize)}
	for _, f := range l.Filters {
		t, ok := filter.ParseType(f.Type)
		if !ok {
			return out, errors.Corrupt("schema", "unknown filter "+f.Type)
		}
		out.Filters = append(out.Filters, Filter{
			Type:                   t,
			Level:                  int32(f.Level),
			BitWidthMaxWindow:      uint32(f.BitWidthMaxWindow),
			PositiveDeltaMaxWindow: uint32(f.PositiveDeltaMaxWindow),
			ScaleFloatByteWidth:    uint64(f.ScaleFloatByteWidth),
			ScaleFloatFactor:       f.ScaleFloatFactor,
			ScaleFloatOffset:       f.ScaleFloatOffset,
			ReinterpretDatatype:    uint8(f.ReinterpretDatatype),
		})
	}
	return out, nil
}

func parseDatatype(s string) (Datatype, error) {
	dt, ok := ParseDatatype(s)
	if !ok {
		return 0, errors.Corrupt("schema", "unknown datatype "+s)
	}
	return dt, nil
}

func unhex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseStorage, errors.KindCorrupt, err, "schema value")
	}
	return b, nil
}

// EncodeSchema serialises a schema to TOML.
func EncodeSchema(s *Schema) ([]byte, error) {
	ts := tomlSchema{
		Version:         Version,
		ArrayType:       int64(s.ArrayType),
		CellOrder:       int64(s.CellOrder),
		TileOrder:       int64(s.TileOrder),
		Capacity:        int64(s.Capacity),
		AllowsDups:      s.AllowsDups,
		CoordsFilters:   toTOMLFilters(s.CoordsFilters),
		OffsetsFilters:  toTOMLFilters(s.OffsetsFilters),
		ValidityFilters: toTOMLFilters(s.ValidityFilters),
	}
	for _, d := range s.Dimensions {
		ts.Dimensions = append(ts.Dimensions, tomlDimension{
			Name:       d.Name,
			Datatype:   d.Datatype.String(),
			CellValNum: int64(d.CellValNum),
			Domain:     hex.EncodeToString(d.Domain),
			TileExtent: hex.EncodeToString(d.TileExtent),
			HasFilters: d.HasFilters,
			Filters:    toTOMLFilters(d.Filters),
		})
	}
	for _, a := range s.Attributes {
		ts.Attributes = append(ts.Attributes, tomlAttribute{
			Name:        a.Name,
			Datatype:    a.Datatype.String(),
			CellValNum:  int64(a.CellValNum),
			Nullable:    a.Nullable,
			FillValue:   hex.EncodeToString(a.FillValue),
			FillValid:   a.FillValid,
			Enumeration: a.Enumeration,
			Filters:     toTOMLFilters(a.Filters),
		})
	}
	for _, e := range s.Enumerations {
		ts.Enumerations = append(ts.Enumerations, tomlEnumeration{
			Name:       e.Name,
			Datatype:   e.Datatype.String(),
			CellValNum: int64(e.CellValNum),
			Ordered:    e.Ordered,
			Data:       hex.EncodeToString(e.Data),
			Offsets:    hex.EncodeToString(e.Offsets),
		})
	}
	return toml.Marshal(ts)
}

// DecodeSchema parses a schema written by EncodeSchema.
func DecodeSchema(data []byte) (*Schema, error) {
	var ts tomlSchema
	if err := toml.Unmarshal(data, &ts); err != nil {
		return nil, errors.Wrap(errors.PhaseStorage, errors.KindCorrupt, err, "parse schema")
	}
	s := &Schema{
		ArrayType:  uint32(ts.ArrayType),
		CellOrder:  uint32(ts.CellOrder),
		TileOrder:  uint32(ts.TileOrder),
		Capacity:   uint64(ts.Capacity),
		AllowsDups: ts.AllowsDups,
		HasDomain:  len(ts.Dimensions) > 0,
	}
	var err error
	if s.CoordsFilters, err = fromTOMLFilters(ts.CoordsFilters); err != nil {
		return nil, err
	}
	if s.OffsetsFilters, err = fromTOMLFilters(ts.OffsetsFilters); err != nil {
		return nil, err
	}
	if s.ValidityFilters, err = fromTOMLFilters(ts.ValidityFilters); err != nil {
		return nil, err
	}
	for _, td := range ts.Dimensions {
		d := &Dimension{Name: td.Name, CellValNum: uint32(td.CellValNum), HasFilters: td.HasFilters}
		if d.Datatype, err = parseDatatype(td.Datatype); err != nil {
			return nil, err
		}
		if d.Domain, err = unhex(td.Domain); err != nil {
			return nil, err
		}
		if d.TileExtent, err = unhex(td.TileExtent); err != nil {
			return nil, err
		}
		if d.Filters, err = fromTOMLFilters(td.Filters); err != nil {
			return nil, err
		}
		s.Dimensions = append(s.Dimensions, d)
	}
	for _, ta := range ts.Attributes {
		a := &Attribute{
			Name:        ta.Name,
			CellValNum:  uint32(ta.CellValNum),
			Nullable:    ta.Nullable,
			FillValid:   ta.FillValid,
			Enumeration: ta.Enumeration,
		}
		if a.Datatype, err = parseDatatype(ta.Datatype); err != nil {
			return nil, err
		}
		if a.FillValue, err = unhex(ta.FillValue); err != nil {
			return nil, err
		}
		if a.Filters, err = fromTOMLFilters(ta.Filters); err != nil {
			return nil, err
		}
		s.Attributes = append(s.Attributes, a)
	}
	for _, te := range ts.Enumerations {
		e := &Enumeration{Name: te.Name, CellValNum: uint32(te.CellValNum), Ordered: te.Ordered}
		if e.Datatype, err = parseDatatype(te.Datatype); err != nil {
			return nil, err
		}
		if e.Data, err = unhex(te.Data); err != nil {
			return nil, err
		}
		if e.Offsets, err = unhex(te.Offsets); err != nil {
			return nil, err
		}
		s.Enumerations = append(s.Enumerations, e)
	}
	return s, nil
}

// IsArray reports whether uri holds an array.
func IsArray(v *storage.VFS, uri string) bool {
	return v.IsDir(storage.Join(uri, SchemaDir))
}

// WriteSchema stores s under uri with the timestamp ts and returns the
// schema file name.
func WriteSchema(v *storage.VFS, uri string, s *Schema, ts uint64) (string, error) {
	data, err := EncodeSchema(s)
	if err != nil {
		return "", err
	}
	name := NewName(ts, ts)
	if err := v.WriteFile(storage.Join(uri, SchemaDir, name), data); err != nil {
		return "", err
	}
	return name, nil
}

// LoadSchema returns the newest schema of the array at uri written no later
// than end. Arrays opened before their first schema get the oldest one.
func LoadSchema(v *storage.VFS, uri string, end uint64) (*Schema, error) {
	if !IsArray(v, uri) {
		return nil, errors.NotFound(errors.PhaseStorage, "array", uri)
	}
	all, err := listEntries(v, storage.Join(uri, SchemaDir), 0, math.MaxUint64)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.Corrupt(uri, "array has no schema")
	}
	pick := all[0]
	for _, e := range all {
		if e.t1 <= end {
			pick = e
		}
	}
	data, err := v.ReadFile(pick.uri)
	if err != nil {
		return nil, err
	}
	s, err := DecodeSchema(data)
	if err != nil {
		return nil, err
	}
	s.Name = pick.name
	s.TimestampStart, s.TimestampEnd = pick.t1, pick.t2
	return s, nil
}
