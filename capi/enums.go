package capi

import (
	"github.com/wippyai/tiledb-go/capi/internal/filter"
	"github.com/wippyai/tiledb-go/capi/internal/format"
)

var (
	arrayTypeNames   = []string{"dense", "sparse"}
	layoutNames      = []string{"row-major", "col-major", "global-order", "unordered", "hilbert"}
	queryTypeNames   = []string{"READ", "WRITE", "DELETE", "UPDATE", "MODIFY_EXCLUSIVE"}
	queryStatusNames = []string{"FAILED", "COMPLETED", "INPROGRESS", "INCOMPLETE", "UNINITIALIZED", "INITIALIZED"}
	objectTypeNames  = []string{"INVALID", "GROUP", "ARRAY"}
	walkOrderNames   = []string{"PREORDER", "POSTORDER"}
	vfsModeNames     = []string{"VFS_READ", "VFS_WRITE", "VFS_APPEND"}
	filesystemNames  = []string{"HDFS", "S3", "AZURE", "GCS", "MEMFS"}
	filterOptNames   = []string{
		"COMPRESSION_LEVEL", "BIT_WIDTH_MAX_WINDOW", "POSITIVE_DELTA_MAX_WINDOW",
		"SCALE_FLOAT_BYTEWIDTH", "SCALE_FLOAT_FACTOR", "SCALE_FLOAT_OFFSET",
		"WEBP_QUALITY", "WEBP_INPUT_FORMAT", "WEBP_LOSSLESS", "COMPRESSION_REINTERPRET_DATATYPE",
	}
)

func toStr[T ~uint32](names []string, v T, out *string) Status {
	if int(v) >= len(names) || out == nil {
		return Err
	}
	*out = names[v]
	return OK
}

func fromStr[T ~uint32](names []string, s string, out *T) Status {
	for i, n := range names {
		if n == s {
			*out = T(i)
			return OK
		}
	}
	return Err
}

func DatatypeToStr(dt Datatype, out *string) Status {
	if !dt.Valid() || out == nil {
		return Err
	}
	*out = dt.String()
	return OK
}

func DatatypeFromStr(s string, dt *Datatype) Status {
	v, ok := format.ParseDatatype(s)
	if !ok {
		return Err
	}
	*dt = v
	return OK
}

// DatatypeSize returns the width of one value, 0 for unknown datatypes.
func DatatypeSize(dt Datatype) uint64 {
	return uint64(dt.Size())
}

func ArrayTypeToStr(v ArrayType, out *string) Status     { return toStr(arrayTypeNames, v, out) }
func ArrayTypeFromStr(s string, v *ArrayType) Status     { return fromStr(arrayTypeNames, s, v) }
func LayoutToStr(v Layout, out *string) Status           { return toStr(layoutNames, v, out) }
func LayoutFromStr(s string, v *Layout) Status           { return fromStr(layoutNames, s, v) }
func QueryTypeToStr(v QueryType, out *string) Status     { return toStr(queryTypeNames, v, out) }
func QueryTypeFromStr(s string, v *QueryType) Status     { return fromStr(queryTypeNames, s, v) }
func QueryStatusToStr(v QueryStatus, out *string) Status { return toStr(queryStatusNames, v, out) }
func QueryStatusFromStr(s string, v *QueryStatus) Status { return fromStr(queryStatusNames, s, v) }
func ObjectTypeToStr(v ObjectType, out *string) Status   { return toStr(objectTypeNames, v, out) }
func ObjectTypeFromStr(s string, v *ObjectType) Status   { return fromStr(objectTypeNames, s, v) }
func WalkOrderToStr(v WalkOrder, out *string) Status     { return toStr(walkOrderNames, v, out) }
func WalkOrderFromStr(s string, v *WalkOrder) Status     { return fromStr(walkOrderNames, s, v) }
func VFSModeToStr(v VFSMode, out *string) Status         { return toStr(vfsModeNames, v, out) }
func VFSModeFromStr(s string, v *VFSMode) Status         { return fromStr(vfsModeNames, s, v) }
func FilesystemToStr(v Filesystem, out *string) Status   { return toStr(filesystemNames, v, out) }
func FilesystemFromStr(s string, v *Filesystem) Status   { return fromStr(filesystemNames, s, v) }

func FilterOptionToStr(v FilterOption, out *string) Status { return toStr(filterOptNames, v, out) }
func FilterOptionFromStr(s string, v *FilterOption) Status { return fromStr(filterOptNames, s, v) }

func FilterTypeToStr(t FilterType, out *string) Status {
	if !t.Valid() || out == nil {
		return Err
	}
	*out = t.String()
	return OK
}

func FilterTypeFromStr(s string, t *FilterType) Status {
	v, ok := filter.ParseType(s)
	if !ok {
		return Err
	}
	*t = v
	return OK
}

// FilterOptionName returns the option's name or a placeholder for unknown
// options.
func FilterOptionName(opt FilterOption) string {
	var s string
	if FilterOptionToStr(opt, &s) != OK {
		return "UNKNOWN_OPTION"
	}
	return s
}

func layoutName(l Layout) string {
	var s string
	if LayoutToStr(l, &s) != OK {
		return "unknown"
	}
	return s
}

func queryTypeName(t QueryType) string {
	var s string
	if QueryTypeToStr(t, &s) != OK {
		return "UNKNOWN"
	}
	return s
}

func queryStatusName(st QueryStatus) string {
	var s string
	if QueryStatusToStr(st, &s) != OK {
		return "UNKNOWN"
	}
	return s
}
