// Package capi is the engine's C-style ABI.
//
// Every engine object is addressed by an opaque typed pointer; zero is the
// null pointer. Objects are created by *Alloc calls and released by the
// matching *Free call, which also zeroes the caller's pointer. Calls taking a
// context report failures through an int32 Status and record the error on
// the context, where CtxGetLastError, ErrorMessage and ErrorFree retrieve
// it. Config calls report failures through an *Error out parameter instead.
//
// Buffers handed to queries are used in place: the engine keeps the slice
// and its size cell and reads or writes them when the query is submitted.
package capi

import (
	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/format"
	"github.com/wippyai/tiledb-go/errors"
)

// Status is the result code of an ABI call.
type Status int32

const (
	OK  Status = Status(errors.StatusOK)
	Err Status = Status(errors.StatusErr)
	OOM Status = Status(errors.StatusOOM)
)

// Opaque object pointers.
type (
	Ctx                  uintptr
	Config               uintptr
	ConfigIter           uintptr
	Error                uintptr
	Array                uintptr
	ArraySchema          uintptr
	Domain               uintptr
	Dimension            uintptr
	Attribute            uintptr
	Filter               uintptr
	FilterList           uintptr
	Query                uintptr
	Subarray             uintptr
	Group                uintptr
	FragmentInfo         uintptr
	Enumeration          uintptr
	ArraySchemaEvolution uintptr
	VFS                  uintptr
	VFSFh                uintptr
)

type (
	Datatype   = format.Datatype
	FilterType = filter.Type
)

const (
	DatatypeInt32         = format.Int32
	DatatypeInt64         = format.Int64
	DatatypeFloat32       = format.Float32
	DatatypeFloat64       = format.Float64
	DatatypeChar          = format.Char
	DatatypeInt8          = format.Int8
	DatatypeUInt8         = format.UInt8
	DatatypeInt16         = format.Int16
	DatatypeUInt16        = format.UInt16
	DatatypeUInt32        = format.UInt32
	DatatypeUInt64        = format.UInt64
	DatatypeStringASCII   = format.StringASCII
	DatatypeStringUTF8    = format.StringUTF8
	DatatypeStringUTF16   = format.StringUTF16
	DatatypeStringUTF32   = format.StringUTF32
	DatatypeStringUCS2    = format.StringUCS2
	DatatypeStringUCS4    = format.StringUCS4
	DatatypeAny           = format.Any
	DatatypeDateTimeYear  = format.DateTimeYear
	DatatypeDateTimeMonth = format.DateTimeYear + 1
	DatatypeDateTimeWeek  = format.DateTimeYear + 2
	DatatypeDateTimeDay   = format.DateTimeYear + 3
	DatatypeDateTimeHR    = format.DateTimeYear + 4
	DatatypeDateTimeMin   = format.DateTimeYear + 5
	DatatypeDateTimeSec   = format.DateTimeYear + 6
	DatatypeDateTimeMS    = format.DateTimeYear + 7
	DatatypeDateTimeUS    = format.DateTimeYear + 8
	DatatypeDateTimeNS    = format.DateTimeYear + 9
	DatatypeDateTimePS    = format.DateTimeYear + 10
	DatatypeDateTimeFS    = format.DateTimeYear + 11
	DatatypeDateTimeAS    = format.DateTimeAS
	DatatypeTimeHR        = format.TimeHR
	DatatypeTimeMin       = format.TimeHR + 1
	DatatypeTimeSec       = format.TimeHR + 2
	DatatypeTimeMS        = format.TimeHR + 3
	DatatypeTimeUS        = format.TimeHR + 4
	DatatypeTimeNS        = format.TimeHR + 5
	DatatypeTimePS        = format.TimeHR + 6
	DatatypeTimeFS        = format.TimeHR + 7
	DatatypeTimeAS        = format.TimeAS
	DatatypeBlob          = format.Blob
	DatatypeBool          = format.Bool
)

const (
	FilterNone              = filter.None
	FilterGzip              = filter.Gzip
	FilterZstd              = filter.Zstd
	FilterLZ4               = filter.LZ4
	FilterRLE               = filter.RLE
	FilterBzip2             = filter.Bzip2
	FilterDoubleDelta       = filter.DoubleDelta
	FilterBitWidthReduction = filter.BitWidthReduction
	FilterBitshuffle        = filter.Bitshuffle
	FilterByteshuffle       = filter.Byteshuffle
	FilterPositiveDelta     = filter.PositiveDelta
	FilterChecksumMD5       = filter.ChecksumMD5
	FilterChecksumSHA256    = filter.ChecksumSHA256
	FilterDictionary        = filter.Dictionary
	FilterScaleFloat        = filter.ScaleFloat
	FilterXOR               = filter.XOR
	FilterDeprecated        = filter.Deprecated
	FilterWebP              = filter.WebP
	FilterDelta             = filter.Delta
)

// VarNum is the cell value number of variable-sized attributes.
const VarNum = format.VarNum

type ArrayType uint32

const (
	ArrayDense  ArrayType = ArrayType(format.Dense)
	ArraySparse ArrayType = ArrayType(format.Sparse)
)

type Layout uint32

const (
	LayoutRowMajor    Layout = Layout(format.RowMajor)
	LayoutColMajor    Layout = Layout(format.ColMajor)
	LayoutGlobalOrder Layout = Layout(format.GlobalOrder)
	LayoutUnordered   Layout = Layout(format.Unordered)
	LayoutHilbert     Layout = Layout(format.Hilbert)
)

type QueryType uint32

const (
	QueryTypeRead            QueryType = 0
	QueryTypeWrite           QueryType = 1
	QueryTypeDelete          QueryType = 2
	QueryTypeUpdate          QueryType = 3
	QueryTypeModifyExclusive QueryType = 4
)

type QueryStatus uint32

const (
	QueryFailed        QueryStatus = 0
	QueryCompleted     QueryStatus = 1
	QueryInProgress    QueryStatus = 2
	QueryIncomplete    QueryStatus = 3
	QueryUninitialized QueryStatus = 4
	QueryInitialized   QueryStatus = 5
)

// StatusReason explains an incomplete query.
type StatusReason uint32

const (
	ReasonNone           StatusReason = 0
	ReasonUserBufferSize StatusReason = 1
	ReasonMemoryBudget   StatusReason = 2
)

type ObjectType uint32

const (
	ObjectInvalid ObjectType = ObjectType(format.ObjectInvalid)
	ObjectGroup   ObjectType = ObjectType(format.ObjectGroup)
	ObjectArray   ObjectType = ObjectType(format.ObjectArray)
)

type WalkOrder uint32

const (
	WalkPreorder  WalkOrder = 0
	WalkPostorder WalkOrder = 1
)

type VFSMode uint32

const (
	VFSModeRead   VFSMode = 0
	VFSModeWrite  VFSMode = 1
	VFSModeAppend VFSMode = 2
)

type Filesystem uint32

const (
	FilesystemHDFS  Filesystem = 0
	FilesystemS3    Filesystem = 1
	FilesystemAzure Filesystem = 2
	FilesystemGCS   Filesystem = 3
	FilesystemMemFS Filesystem = 4
)

type FilterOption uint32

const (
	FilterOptCompressionLevel         FilterOption = 0
	FilterOptBitWidthMaxWindow        FilterOption = 1
	FilterOptPositiveDeltaMaxWindow   FilterOption = 2
	FilterOptScaleFloatByteWidth      FilterOption = 3
	FilterOptScaleFloatFactor         FilterOption = 4
	FilterOptScaleFloatOffset         FilterOption = 5
	FilterOptWebPQuality              FilterOption = 6
	FilterOptWebPInputFormat          FilterOption = 7
	FilterOptWebPLossless             FilterOption = 8
	FilterOptCompressionReinterpretDT FilterOption = 9
)

// Engine version reported by Version.
const (
	VersionMajor = 2
	VersionMinor = 27
	VersionPatch = 0
)

// Version reports the engine version.
func Version(major, minor, rev *int32) {
	*major, *minor, *rev = VersionMajor, VersionMinor, VersionPatch
}
