package format

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Datatype is a cell datatype code; values match the ABI's datatype enum.
type Datatype uint32

const (
	Int32        Datatype = 0
	Int64        Datatype = 1
	Float32      Datatype = 2
	Float64      Datatype = 3
	Char         Datatype = 4
	Int8         Datatype = 5
	UInt8        Datatype = 6
	Int16        Datatype = 7
	UInt16       Datatype = 8
	UInt32       Datatype = 9
	UInt64       Datatype = 10
	StringASCII  Datatype = 11
	StringUTF8   Datatype = 12
	StringUTF16  Datatype = 13
	StringUTF32  Datatype = 14
	StringUCS2   Datatype = 15
	StringUCS4   Datatype = 16
	Any          Datatype = 17
	DateTimeYear Datatype = 18
	DateTimeAS   Datatype = 30
	TimeHR       Datatype = 31
	TimeAS       Datatype = 39
	Blob         Datatype = 40
	Bool         Datatype = 41
)

var datatypeNames = [...]string{
	"INT32", "INT64", "FLOAT32", "FLOAT64", "CHAR", "INT8", "UINT8", "INT16", "UINT16", "UINT32", "UINT64",
	"STRING_ASCII", "STRING_UTF8", "STRING_UTF16", "STRING_UTF32", "STRING_UCS2", "STRING_UCS4", "ANY",
	"DATETIME_YEAR", "DATETIME_MONTH", "DATETIME_WEEK", "DATETIME_DAY", "DATETIME_HR", "DATETIME_MIN",
	"DATETIME_SEC", "DATETIME_MS", "DATETIME_US", "DATETIME_NS", "DATETIME_PS", "DATETIME_FS", "DATETIME_AS",
	"TIME_HR", "TIME_MIN", "TIME_SEC", "TIME_MS", "TIME_US", "TIME_NS", "TIME_PS", "TIME_FS", "TIME_AS",
	"BLOB", "BOOL",
}

// Valid reports whether dt is a known datatype.
func (dt Datatype) Valid() bool {
	return int(dt) < len(datatypeNames)
}

func (dt Datatype) String() string {
	if dt.Valid() {
		return datatypeNames[dt]
	}
	return fmt.Sprintf("DATATYPE(%d)", uint32(dt))
}

// ParseDatatype maps a datatype name back to its code.
func ParseDatatype(s string) (Datatype, bool) {
	for i, n := range datatypeNames {
		if n == s {
			return Datatype(i), true
		}
	}
	return 0, false
}

// Size returns the width in bytes of one value.
func (dt Datatype) Size() int {
	switch dt {
	case Int8, UInt8, Char, StringASCII, StringUTF8, Any, Blob, Bool:
		return 1
	case Int16, UInt16, StringUTF16, StringUCS2:
		return 2
	case Int32, UInt32, Float32, StringUTF32, StringUCS4:
		return 4
	case Int64, UInt64, Float64:
		return 8
	}
	if dt.IsTemporal() {
		return 8
	}
	return 0
}

// IsTemporal reports whether dt is one of the DATETIME_* or TIME_* types.
func (dt Datatype) IsTemporal() bool {
	return (dt >= DateTimeYear && dt <= DateTimeAS) || (dt >= TimeHR && dt <= TimeAS)
}

// IsInteger reports whether dt holds integers, including temporal types.
func (dt Datatype) IsInteger() bool {
	switch dt {
	case Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64, UInt64:
		return true
	}
	return dt.IsTemporal()
}

func (dt Datatype) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

func (dt Datatype) IsString() bool {
	return dt == Char || (dt >= StringASCII && dt <= StringUCS4)
}

func (dt Datatype) isSigned() bool {
	switch dt {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return dt.IsTemporal()
}

// Key maps a raw coordinate to an int64 whose ordering matches the value
// ordering, so every dimension type can be compared and, for integers,
// subtracted the same way.
func Key(dt Datatype, raw []byte) int64 {
	switch dt {
	case Int8:
		return int64(int8(raw[0]))
	case UInt8:
		return int64(raw[0])
	case Int16:
		return int64(int16(binary.NativeEndian.Uint16(raw)))
	case UInt16:
		return int64(binary.NativeEndian.Uint16(raw))
	case Int32:
		return int64(int32(binary.NativeEndian.Uint32(raw)))
	case UInt32:
		return int64(binary.NativeEndian.Uint32(raw))
	case UInt64:
		return int64(binary.NativeEndian.Uint64(raw) ^ 1<<63)
	case Float32:
		return floatKey(float64(math.Float32frombits(binary.NativeEndian.Uint32(raw))))
	case Float64:
		return floatKey(math.Float64frombits(binary.NativeEndian.Uint64(raw)))
	default:
		return int64(binary.NativeEndian.Uint64(raw))
	}
}

func floatKey(f float64) int64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return int64(bits ^ 1<<63)
}

// Raw is the inverse of Key for integer types.
func Raw(dt Datatype, key int64) []byte {
	out := make([]byte, dt.Size())
	switch dt {
	case Int8, UInt8:
		out[0] = byte(key)
	case Int16, UInt16:
		binary.NativeEndian.PutUint16(out, uint16(key))
	case Int32, UInt32:
		binary.NativeEndian.PutUint32(out, uint32(key))
	case UInt64:
		binary.NativeEndian.PutUint64(out, uint64(key)^1<<63)
	default:
		binary.NativeEndian.PutUint64(out, uint64(key))
	}
	return out
}

// FormatValue renders one raw value for dumps.
func FormatValue(dt Datatype, raw []byte) string {
	switch {
	case len(raw) < dt.Size() || dt.Size() == 0:
		return fmt.Sprintf("%x", raw)
	case dt == Float32:
		return fmt.Sprint(math.Float32frombits(binary.NativeEndian.Uint32(raw)))
	case dt == Float64:
		return fmt.Sprint(math.Float64frombits(binary.NativeEndian.Uint64(raw)))
	case dt == UInt64:
		return fmt.Sprint(binary.NativeEndian.Uint64(raw))
	case dt.IsInteger():
		return fmt.Sprint(Key(dt, raw))
	case dt.IsString():
		return string(raw)
	}
	return fmt.Sprintf("%x", raw)
}

// DefaultFill returns the fill value used for empty cells of a fixed-size
// attribute: the minimum for signed integers, the maximum for unsigned
// integers, NaN for floats and 0x80 for characters.
func DefaultFill(dt Datatype) []byte {
	out := make([]byte, dt.Size())
	switch dt {
	case Int8:
		out[0] = 0x80
	case Int16:
		binary.NativeEndian.PutUint16(out, 1<<15)
	case Int32:
		binary.NativeEndian.PutUint32(out, 1<<31)
	case Int64:
		binary.NativeEndian.PutUint64(out, 1<<63)
	case UInt8, Any, Blob:
		out[0] = 0xff
	case UInt16:
		binary.NativeEndian.PutUint16(out, math.MaxUint16)
	case UInt32:
		binary.NativeEndian.PutUint32(out, math.MaxUint32)
	case UInt64:
		binary.NativeEndian.PutUint64(out, math.MaxUint64)
	case Float32:
		binary.NativeEndian.PutUint32(out, math.Float32bits(float32(math.NaN())))
	case Float64:
		binary.NativeEndian.PutUint64(out, math.Float64bits(math.NaN()))
	case Char, StringASCII, StringUTF8:
		out[0] = 0x80
	case Bool:
		out[0] = 0
	default:
		if dt.IsTemporal() {
			binary.NativeEndian.PutUint64(out, 1<<63)
		}
	}
	return out
}
