package tiledb

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/tiledb-go/capi"
	"github.com/wippyai/tiledb-go/errors"
)

// Datatype is the datatype of a dimension, attribute or metadata value.
type Datatype uint32

const (
	DatatypeInt32         = Datatype(capi.DatatypeInt32)
	DatatypeInt64         = Datatype(capi.DatatypeInt64)
	DatatypeFloat32       = Datatype(capi.DatatypeFloat32)
	DatatypeFloat64       = Datatype(capi.DatatypeFloat64)
	DatatypeChar          = Datatype(capi.DatatypeChar)
	DatatypeInt8          = Datatype(capi.DatatypeInt8)
	DatatypeUInt8         = Datatype(capi.DatatypeUInt8)
	DatatypeInt16         = Datatype(capi.DatatypeInt16)
	DatatypeUInt16        = Datatype(capi.DatatypeUInt16)
	DatatypeUInt32        = Datatype(capi.DatatypeUInt32)
	DatatypeUInt64        = Datatype(capi.DatatypeUInt64)
	DatatypeStringASCII   = Datatype(capi.DatatypeStringASCII)
	DatatypeStringUTF8    = Datatype(capi.DatatypeStringUTF8)
	DatatypeStringUTF16   = Datatype(capi.DatatypeStringUTF16)
	DatatypeStringUTF32   = Datatype(capi.DatatypeStringUTF32)
	DatatypeStringUCS2    = Datatype(capi.DatatypeStringUCS2)
	DatatypeStringUCS4    = Datatype(capi.DatatypeStringUCS4)
	DatatypeAny           = Datatype(capi.DatatypeAny)
	DatatypeDateTimeYear  = Datatype(capi.DatatypeDateTimeYear)
	DatatypeDateTimeMonth = Datatype(capi.DatatypeDateTimeMonth)
	DatatypeDateTimeWeek  = Datatype(capi.DatatypeDateTimeWeek)
	DatatypeDateTimeDay   = Datatype(capi.DatatypeDateTimeDay)
	DatatypeDateTimeHR    = Datatype(capi.DatatypeDateTimeHR)
	DatatypeDateTimeMin   = Datatype(capi.DatatypeDateTimeMin)
	DatatypeDateTimeSec   = Datatype(capi.DatatypeDateTimeSec)
	DatatypeDateTimeMS    = Datatype(capi.DatatypeDateTimeMS)
	DatatypeDateTimeUS    = Datatype(capi.DatatypeDateTimeUS)
	DatatypeDateTimeNS    = Datatype(capi.DatatypeDateTimeNS)
	DatatypeDateTimePS    = Datatype(capi.DatatypeDateTimePS)
	DatatypeDateTimeFS    = Datatype(capi.DatatypeDateTimeFS)
	DatatypeDateTimeAS    = Datatype(capi.DatatypeDateTimeAS)
	DatatypeTimeHR        = Datatype(capi.DatatypeTimeHR)
	DatatypeTimeMin       = Datatype(capi.DatatypeTimeMin)
	DatatypeTimeSec       = Datatype(capi.DatatypeTimeSec)
	DatatypeTimeMS        = Datatype(capi.DatatypeTimeMS)
	DatatypeTimeUS        = Datatype(capi.DatatypeTimeUS)
	DatatypeTimeNS        = Datatype(capi.DatatypeTimeNS)
	DatatypeTimePS        = Datatype(capi.DatatypeTimePS)
	DatatypeTimeFS        = Datatype(capi.DatatypeTimeFS)
	DatatypeTimeAS        = Datatype(capi.DatatypeTimeAS)
	DatatypeBlob          = Datatype(capi.DatatypeBlob)
	DatatypeBool          = Datatype(capi.DatatypeBool)
)

// Scalar is the set of Go element types that map onto a datatype.
type Scalar interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64 | ~bool
}

var (
	typeInt8    = reflect.TypeFor[int8]()
	typeInt16   = reflect.TypeFor[int16]()
	typeInt32   = reflect.TypeFor[int32]()
	typeInt64   = reflect.TypeFor[int64]()
	typeUint8   = reflect.TypeFor[uint8]()
	typeUint16  = reflect.TypeFor[uint16]()
	typeUint32  = reflect.TypeFor[uint32]()
	typeUint64  = reflect.TypeFor[uint64]()
	typeFloat32 = reflect.TypeFor[float32]()
	typeFloat64 = reflect.TypeFor[float64]()
	typeBool    = reflect.TypeFor[bool]()
	typeString  = reflect.TypeFor[string]()
)

// String returns the engine's name for dt, such as "INT32".
func (dt Datatype) String() string {
	var s string
	if capi.DatatypeToStr(capi.Datatype(dt), &s) != capi.OK {
		return fmt.Sprintf("DATATYPE(%d)", uint32(dt))
	}
	return s
}

// Size returns the width of one value in bytes, or 0 for an unknown datatype.
func (dt Datatype) Size() uint64 {
	return capi.DatatypeSize(capi.Datatype(dt))
}

// IsString reports whether values of dt are characters.
func (dt Datatype) IsString() bool {
	switch dt {
	case DatatypeChar, DatatypeStringASCII, DatatypeStringUTF8,
		DatatypeStringUTF16, DatatypeStringUTF32, DatatypeStringUCS2, DatatypeStringUCS4:
		return true
	}
	return false
}

func (dt Datatype) isTemporal() bool {
	return dt >= DatatypeDateTimeYear && dt <= DatatypeTimeAS
}

// DatatypeFromString parses an engine datatype name.
func DatatypeFromString(s string) (Datatype, error) {
	var dt capi.Datatype
	if capi.DatatypeFromStr(s, &dt) != capi.OK {
		return 0, errors.NotFound(errors.PhaseValidate, "datatype", s)
	}
	return Datatype(dt), nil
}

// DatatypeToType returns the Go type values of dt are exposed as.
// Several datatypes share a Go type; see CanonicalDatatype.
func DatatypeToType(dt Datatype) (reflect.Type, error) {
	switch {
	case dt == DatatypeInt32:
		return typeInt32, nil
	case dt == DatatypeInt64, dt.isTemporal():
		return typeInt64, nil
	case dt == DatatypeFloat32:
		return typeFloat32, nil
	case dt == DatatypeFloat64:
		return typeFloat64, nil
	case dt == DatatypeChar, dt == DatatypeStringASCII, dt == DatatypeStringUTF8:
		return typeString, nil
	case dt == DatatypeInt8:
		return typeInt8, nil
	case dt == DatatypeUInt8, dt == DatatypeBlob, dt == DatatypeAny:
		return typeUint8, nil
	case dt == DatatypeInt16:
		return typeInt16, nil
	case dt == DatatypeUInt16, dt == DatatypeStringUTF16, dt == DatatypeStringUCS2:
		return typeUint16, nil
	case dt == DatatypeUInt32, dt == DatatypeStringUTF32, dt == DatatypeStringUCS4:
		return typeUint32, nil
	case dt == DatatypeUInt64:
		return typeUint64, nil
	case dt == DatatypeBool:
		return typeBool, nil
	}
	return nil, errors.New(errors.PhaseValidate, errors.KindUnsupported).
		Datatype(dt.String()).
		Detail("no Go type for datatype").
		Build()
}

// TypeToDatatype returns the canonical datatype for a Go type. Types whose
// width depends on the platform, such as int and uint, are not supported.
func TypeToDatatype(t reflect.Type) (Datatype, error) {
	if t == nil {
		return 0, errors.Unsupported(errors.PhaseValidate, "nil type has no datatype")
	}
	switch t.Kind() {
	case reflect.Int8:
		return DatatypeInt8, nil
	case reflect.Int16:
		return DatatypeInt16, nil
	case reflect.Int32:
		return DatatypeInt32, nil
	case reflect.Int64:
		return DatatypeInt64, nil
	case reflect.Uint8:
		return DatatypeUInt8, nil
	case reflect.Uint16:
		return DatatypeUInt16, nil
	case reflect.Uint32:
		return DatatypeUInt32, nil
	case reflect.Uint64:
		return DatatypeUInt64, nil
	case reflect.Float32:
		return DatatypeFloat32, nil
	case reflect.Float64:
		return DatatypeFloat64, nil
	case reflect.Bool:
		return DatatypeBool, nil
	case reflect.String:
		return DatatypeStringASCII, nil
	}
	return 0, errors.New(errors.PhaseValidate, errors.KindUnsupported).
		GoType(t.String()).
		Detail("no datatype for Go type").
		Build()
}

// DatatypeOf returns the canonical datatype of T.
func DatatypeOf[T any]() (Datatype, error) {
	return TypeToDatatype(reflect.TypeFor[T]())
}

// CanonicalDatatype returns the representative of the group of datatypes
// that share dt's Go type. TypeToDatatype(DatatypeToType(dt)) equals
// CanonicalDatatype(dt) for every supported datatype.
func CanonicalDatatype(dt Datatype) Datatype {
	t, err := DatatypeToType(dt)
	if err != nil {
		return dt
	}
	c, err := TypeToDatatype(t)
	if err != nil {
		return dt
	}
	return c
}

// checkElemType reports whether slices of t can carry values of dt. String
// datatypes take bytes; BOOL takes uint8 or bool.
func checkElemType(dt Datatype, t reflect.Type, path ...string) error {
	ok := false
	switch k := t.Kind(); {
	case dt.IsString() && dt.Size() == 1:
		ok = k == reflect.Uint8 || k == reflect.Int8
	case dt == DatatypeBool:
		ok = k == reflect.Uint8 || k == reflect.Bool
	default:
		want, err := DatatypeToType(dt)
		if err != nil {
			return err
		}
		ok = k == want.Kind()
	}
	if !ok {
		return errors.TypeMismatch(errors.PhaseMarshal, path, t.String(), dt.String())
	}
	return nil
}

// bytesOf copies vals into a new native-endian byte slice.
func bytesOf[T Scalar](vals []T) []byte {
	if len(vals) == 0 {
		return nil
	}
	n := len(vals) * int(unsafe.Sizeof(vals[0]))
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&vals[0])), n))
	return out
}

// valuesOf copies native-endian bytes into a new slice of T. Trailing bytes
// that do not form a whole value are ignored. Bool values are normalized so
// that any non-zero byte reads as true.
func valuesOf[T Scalar](b []byte) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	out := make([]T, len(b)/size)
	if len(out) > 0 {
		ob := unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(out)*size)
		copy(ob, b)
		if reflect.TypeFor[T]().Kind() == reflect.Bool {
			normalizeBools(ob)
		}
	}
	return out
}

// normalizeBools rewrites every non-zero byte of b to 1, the only true value
// a Go bool may hold.
func normalizeBools(b []byte) {
	for i, v := range b {
		if v > 1 {
			b[i] = 1
		}
	}
}

// view reinterprets s as bytes without copying.
func view[T Scalar](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// decodeValues decodes native-endian values of dt into a typed slice held in
// an any: []int32, []float64, string for character datatypes, and so on.
func decodeValues(dt Datatype, b []byte) (any, error) {
	switch {
	case dt == DatatypeChar, dt == DatatypeStringASCII, dt == DatatypeStringUTF8:
		return string(b), nil
	case dt == DatatypeInt8:
		return valuesOf[int8](b), nil
	case dt == DatatypeInt16:
		return valuesOf[int16](b), nil
	case dt == DatatypeInt32:
		return valuesOf[int32](b), nil
	case dt == DatatypeInt64, dt.isTemporal():
		return valuesOf[int64](b), nil
	case dt == DatatypeUInt8, dt == DatatypeBlob, dt == DatatypeAny:
		return valuesOf[uint8](b), nil
	case dt == DatatypeUInt16, dt == DatatypeStringUTF16, dt == DatatypeStringUCS2:
		return valuesOf[uint16](b), nil
	case dt == DatatypeUInt32, dt == DatatypeStringUTF32, dt == DatatypeStringUCS4:
		return valuesOf[uint32](b), nil
	case dt == DatatypeUInt64:
		return valuesOf[uint64](b), nil
	case dt == DatatypeFloat32:
		return valuesOf[float32](b), nil
	case dt == DatatypeFloat64:
		return valuesOf[float64](b), nil
	case dt == DatatypeBool:
		return valuesOf[bool](b), nil
	}
	return nil, errors.New(errors.PhaseMarshal, errors.KindUnsupported).
		Datatype(dt.String()).
		Detail("cannot decode values").
		Build()
}

// decodePair splits a [lo, hi] pair of dt values and decodes both halves
// to scalars.
func decodePair(dt Datatype, b []byte) (lo, hi any, err error) {
	half := len(b) / 2
	l, err := decodeValues(dt, b[:half])
	if err != nil {
		return nil, nil, err
	}
	h, err := decodeValues(dt, b[half:])
	if err != nil {
		return nil, nil, err
	}
	return first(l), first(h), nil
}

func first(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Len() > 0 {
		return rv.Index(0).Interface()
	}
	return v
}
