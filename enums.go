package tiledb

import (
	"fmt"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

// ArrayType is dense or sparse.
type ArrayType uint32

const (
	ArrayDense  = ArrayType(capi.ArrayDense)
	ArraySparse = ArrayType(capi.ArraySparse)
)

func (t ArrayType) String() string {
	return enumString(capi.ArrayTypeToStr, capi.ArrayType(t), "ARRAY_TYPE")
}

// Layout is a cell or tile order, or the order of query results.
type Layout uint32

const (
	LayoutRowMajor    = Layout(capi.LayoutRowMajor)
	LayoutColMajor    = Layout(capi.LayoutColMajor)
	LayoutGlobalOrder = Layout(capi.LayoutGlobalOrder)
	LayoutUnordered   = Layout(capi.LayoutUnordered)
	LayoutHilbert     = Layout(capi.LayoutHilbert)
)

func (l Layout) String() string {
	return enumString(capi.LayoutToStr, capi.Layout(l), "LAYOUT")
}

// QueryType is the mode an array or group is opened in and the kind of a
// query.
type QueryType uint32

const (
	QueryTypeRead            = QueryType(capi.QueryTypeRead)
	QueryTypeWrite           = QueryType(capi.QueryTypeWrite)
	QueryTypeDelete          = QueryType(capi.QueryTypeDelete)
	QueryTypeUpdate          = QueryType(capi.QueryTypeUpdate)
	QueryTypeModifyExclusive = QueryType(capi.QueryTypeModifyExclusive)
)

func (t QueryType) String() string {
	return enumString(capi.QueryTypeToStr, capi.QueryType(t), "QUERY_TYPE")
}

// QueryStatus is the state of a query after its last submit.
type QueryStatus uint32

const (
	QueryFailed        = QueryStatus(capi.QueryFailed)
	QueryCompleted     = QueryStatus(capi.QueryCompleted)
	QueryInProgress    = QueryStatus(capi.QueryInProgress)
	QueryIncomplete    = QueryStatus(capi.QueryIncomplete)
	QueryUninitialized = QueryStatus(capi.QueryUninitialized)
	QueryInitialized   = QueryStatus(capi.QueryInitialized)
)

func (s QueryStatus) String() string {
	return enumString(capi.QueryStatusToStr, capi.QueryStatus(s), "QUERY_STATUS")
}

// StatusReason explains why a query is incomplete.
type StatusReason uint32

const (
	ReasonNone           = StatusReason(capi.ReasonNone)
	ReasonUserBufferSize = StatusReason(capi.ReasonUserBufferSize)
	ReasonMemoryBudget   = StatusReason(capi.ReasonMemoryBudget)
)

func (r StatusReason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUserBufferSize:
		return "USER_BUFFER_SIZE"
	case ReasonMemoryBudget:
		return "MEMORY_BUDGET"
	}
	return fmt.Sprintf("REASON(%d)", uint32(r))
}

// ObjectType classifies the object stored at a URI.
type ObjectType uint32

const (
	ObjectInvalid = ObjectType(capi.ObjectInvalid)
	ObjectGroup   = ObjectType(capi.ObjectGroup)
	ObjectArray   = ObjectType(capi.ObjectArray)
)

func (t ObjectType) String() string {
	return enumString(capi.ObjectTypeToStr, capi.ObjectType(t), "OBJECT")
}

// WalkOrder is the traversal order of Context.Walk.
type WalkOrder uint32

const (
	WalkPreorder  = WalkOrder(capi.WalkPreorder)
	WalkPostorder = WalkOrder(capi.WalkPostorder)
)

func (o WalkOrder) String() string {
	return enumString(capi.WalkOrderToStr, capi.WalkOrder(o), "WALK_ORDER")
}

// VFSMode is the mode a VFS file is opened in.
type VFSMode uint32

const (
	VFSRead   = VFSMode(capi.VFSModeRead)
	VFSWrite  = VFSMode(capi.VFSModeWrite)
	VFSAppend = VFSMode(capi.VFSModeAppend)
)

func (m VFSMode) String() string {
	return enumString(capi.VFSModeToStr, capi.VFSMode(m), "VFS_MODE")
}

// FilesystemType names a storage backend.
type FilesystemType uint32

const (
	FilesystemHDFS  = FilesystemType(capi.FilesystemHDFS)
	FilesystemS3    = FilesystemType(capi.FilesystemS3)
	FilesystemAzure = FilesystemType(capi.FilesystemAzure)
	FilesystemGCS   = FilesystemType(capi.FilesystemGCS)
	FilesystemMemFS = FilesystemType(capi.FilesystemMemFS)
)

func (f FilesystemType) String() string {
	return enumString(capi.FilesystemToStr, capi.Filesystem(f), "FILESYSTEM")
}

// FilterType identifies a tile filter.
type FilterType uint32

const (
	FilterNone              = FilterType(capi.FilterNone)
	FilterGzip              = FilterType(capi.FilterGzip)
	FilterZstd              = FilterType(capi.FilterZstd)
	FilterLZ4               = FilterType(capi.FilterLZ4)
	FilterRLE               = FilterType(capi.FilterRLE)
	FilterBzip2             = FilterType(capi.FilterBzip2)
	FilterDoubleDelta       = FilterType(capi.FilterDoubleDelta)
	FilterBitWidthReduction = FilterType(capi.FilterBitWidthReduction)
	FilterBitshuffle        = FilterType(capi.FilterBitshuffle)
	FilterByteshuffle       = FilterType(capi.FilterByteshuffle)
	FilterPositiveDelta     = FilterType(capi.FilterPositiveDelta)
	FilterChecksumMD5       = FilterType(capi.FilterChecksumMD5)
	FilterChecksumSHA256    = FilterType(capi.FilterChecksumSHA256)
	FilterDictionary        = FilterType(capi.FilterDictionary)
	FilterScaleFloat        = FilterType(capi.FilterScaleFloat)
	FilterXOR               = FilterType(capi.FilterXOR)
	FilterWebP              = FilterType(capi.FilterWebP)
	FilterDelta             = FilterType(capi.FilterDelta)
)

func (t FilterType) String() string {
	return enumString(capi.FilterTypeToStr, capi.FilterType(t), "FILTER")
}

// FilterOption names a filter parameter.
type FilterOption uint32

const (
	FilterOptCompressionLevel         = FilterOption(capi.FilterOptCompressionLevel)
	FilterOptBitWidthMaxWindow        = FilterOption(capi.FilterOptBitWidthMaxWindow)
	FilterOptPositiveDeltaMaxWindow   = FilterOption(capi.FilterOptPositiveDeltaMaxWindow)
	FilterOptScaleFloatByteWidth      = FilterOption(capi.FilterOptScaleFloatByteWidth)
	FilterOptScaleFloatFactor         = FilterOption(capi.FilterOptScaleFloatFactor)
	FilterOptScaleFloatOffset         = FilterOption(capi.FilterOptScaleFloatOffset)
	FilterOptWebPQuality              = FilterOption(capi.FilterOptWebPQuality)
	FilterOptWebPInputFormat          = FilterOption(capi.FilterOptWebPInputFormat)
	FilterOptWebPLossless             = FilterOption(capi.FilterOptWebPLossless)
	FilterOptCompressionReinterpretDT = FilterOption(capi.FilterOptCompressionReinterpretDT)
)

func (o FilterOption) String() string {
	return enumString(capi.FilterOptionToStr, capi.FilterOption(o), "FILTER_OPTION")
}

// VarNum is the cell value number of variable-sized attributes and
// dimensions.
const VarNum = capi.VarNum

func enumString[V ~uint32](toStr func(V, *string) capi.Status, v V, kind string) string {
	var s string
	if toStr(v, &s) != capi.OK {
		return fmt.Sprintf("%s(%d)", kind, uint32(v))
	}
	return s
}

func enumParse[V ~uint32](fromStr func(string, *V) capi.Status, s, kind string) (V, error) {
	var v V
	if fromStr(s, &v) != capi.OK {
		return 0, errors.NotFound(errors.PhaseValidate, kind, s)
	}
	return v, nil
}

// ArrayTypeFromString parses "dense" or "sparse".
func ArrayTypeFromString(s string) (ArrayType, error) {
	v, err := enumParse(capi.ArrayTypeFromStr, s, "array type")
	return ArrayType(v), err
}

// LayoutFromString parses a layout name such as "row-major".
func LayoutFromString(s string) (Layout, error) {
	v, err := enumParse(capi.LayoutFromStr, s, "layout")
	return Layout(v), err
}

func QueryTypeFromString(s string) (QueryType, error) {
	v, err := enumParse(capi.QueryTypeFromStr, s, "query type")
	return QueryType(v), err
}

func QueryStatusFromString(s string) (QueryStatus, error) {
	v, err := enumParse(capi.QueryStatusFromStr, s, "query status")
	return QueryStatus(v), err
}

func ObjectTypeFromString(s string) (ObjectType, error) {
	v, err := enumParse(capi.ObjectTypeFromStr, s, "object type")
	return ObjectType(v), err
}

func WalkOrderFromString(s string) (WalkOrder, error) {
	v, err := enumParse(capi.WalkOrderFromStr, s, "walk order")
	return WalkOrder(v), err
}

func VFSModeFromString(s string) (VFSMode, error) {
	v, err := enumParse(capi.VFSModeFromStr, s, "VFS mode")
	return VFSMode(v), err
}

func FilesystemFromString(s string) (FilesystemType, error) {
	v, err := enumParse(capi.FilesystemFromStr, s, "filesystem")
	return FilesystemType(v), err
}

// FilterTypeFromString parses a filter name such as "ZSTD".
func FilterTypeFromString(s string) (FilterType, error) {
	v, err := enumParse(capi.FilterTypeFromStr, s, "filter")
	return FilterType(v), err
}

func FilterOptionFromString(s string) (FilterOption, error) {
	v, err := enumParse(capi.FilterOptionFromStr, s, "filter option")
	return FilterOption(v), err
}
