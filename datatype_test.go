package tiledb

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/tiledb-go/errors"
)

func TestDatatypeRoundTrip(t *testing.T) {
	tests := []struct {
		dt    Datatype
		goTyp reflect.Type
		canon Datatype
	}{
		{DatatypeInt32, typeInt32, DatatypeInt32},
		{DatatypeInt64, typeInt64, DatatypeInt64},
		{DatatypeDateTimeNS, typeInt64, DatatypeInt64},
		{DatatypeTimeMS, typeInt64, DatatypeInt64},
		{DatatypeFloat32, typeFloat32, DatatypeFloat32},
		{DatatypeFloat64, typeFloat64, DatatypeFloat64},
		{DatatypeChar, typeString, DatatypeStringASCII},
		{DatatypeStringUTF8, typeString, DatatypeStringASCII},
		{DatatypeUInt8, typeUint8, DatatypeUInt8},
		{DatatypeBlob, typeUint8, DatatypeUInt8},
		{DatatypeAny, typeUint8, DatatypeUInt8},
		{DatatypeStringUTF16, typeUint16, DatatypeUInt16},
		{DatatypeStringUCS4, typeUint32, DatatypeUInt32},
		{DatatypeUInt64, typeUint64, DatatypeUInt64},
		{DatatypeInt8, typeInt8, DatatypeInt8},
		{DatatypeBool, typeBool, DatatypeBool},
	}
	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			got, err := DatatypeToType(tt.dt)
			if err != nil {
				t.Fatalf("DatatypeToType: %v", err)
			}
			if got != tt.goTyp {
				t.Errorf("DatatypeToType = %v, want %v", got, tt.goTyp)
			}
			back, err := TypeToDatatype(got)
			if err != nil {
				t.Fatalf("TypeToDatatype: %v", err)
			}
			if back != tt.canon || CanonicalDatatype(tt.dt) != tt.canon {
				t.Errorf("round trip = %v, canonical = %v, want %v", back, CanonicalDatatype(tt.dt), tt.canon)
			}
		})
	}
}

func TestTypeToDatatypeRejectsPlatformInts(t *testing.T) {
	for _, typ := range []reflect.Type{reflect.TypeFor[int](), reflect.TypeFor[uint](), reflect.TypeFor[[]byte](), nil} {
		if _, err := TypeToDatatype(typ); errors.KindOf(err) != errors.KindUnsupported {
			t.Errorf("TypeToDatatype(%v) err = %v, want unsupported", typ, err)
		}
	}
	if _, err := DatatypeOf[int](); err == nil {
		t.Error("DatatypeOf[int] succeeded")
	}
}

func TestDatatypeNames(t *testing.T) {
	if s := DatatypeInt32.String(); s != "INT32" {
		t.Errorf("String = %q", s)
	}
	dt, err := DatatypeFromString("FLOAT64")
	if err != nil || dt != DatatypeFloat64 {
		t.Errorf("DatatypeFromString = %v, %v", dt, err)
	}
	if _, err := DatatypeFromString("DECIMAL"); errors.KindOf(err) != errors.KindNotFound {
		t.Errorf("unknown name err = %v", err)
	}
	if n := DatatypeInt64.Size(); n != 8 {
		t.Errorf("Size = %d, want 8", n)
	}
}

func TestCheckElemType(t *testing.T) {
	tests := []struct {
		name string
		dt   Datatype
		typ  reflect.Type
		ok   bool
	}{
		{"exact", DatatypeInt32, typeInt32, true},
		{"named int32", DatatypeInt32, reflect.TypeFor[namedInt32](), true},
		{"wrong width", DatatypeInt32, typeInt64, false},
		{"signedness", DatatypeUInt32, typeInt32, false},
		{"temporal", DatatypeDateTimeMS, typeInt64, true},
		{"utf8 bytes", DatatypeStringUTF8, typeUint8, true},
		{"char int8", DatatypeChar, typeInt8, true},
		{"utf8 int32", DatatypeStringUTF8, typeInt32, false},
		{"bool as uint8", DatatypeBool, typeUint8, true},
		{"bool", DatatypeBool, typeBool, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkElemType(tt.dt, tt.typ, "a")
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && errors.KindOf(err) != errors.KindTypeMismatch {
				t.Errorf("err = %v, want type mismatch", err)
			}
		})
	}
}

type namedInt32 int32

func TestByteConversions(t *testing.T) {
	vals := []int32{1, -2, 3}
	b := bytesOf(vals)
	if len(b) != 12 {
		t.Fatalf("len = %d, want 12", len(b))
	}
	vals[0] = 100
	if diff := cmp.Diff([]int32{1, -2, 3}, valuesOf[int32](b)); diff != "" {
		t.Errorf("bytesOf must copy (-want +got):\n%s", diff)
	}
	if got := valuesOf[int64](b[:10]); len(got) != 1 {
		t.Errorf("trailing partial value decoded: %v", got)
	}

	v, err := decodeValues(DatatypeFloat64, bytesOf([]float64{1.5, 2.5}))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1.5, 2.5}, v); diff != "" {
		t.Errorf("decodeValues mismatch (-want +got):\n%s", diff)
	}
	s, err := decodeValues(DatatypeStringASCII, []byte("abc"))
	if err != nil || s != "abc" {
		t.Errorf("decodeValues string = %v, %v", s, err)
	}
}

func TestBoolDecodeNormalizes(t *testing.T) {
	got := valuesOf[bool]([]byte{0, 1, 2, 255})
	raw := view(got)
	if diff := cmp.Diff([]byte{0, 1, 1, 1}, raw); diff != "" {
		t.Errorf("bool bytes mismatch (-want +got):\n%s", diff)
	}

	v, err := decodeValues(DatatypeBool, []byte{7, 0})
	if err != nil {
		t.Fatalf("decodeValues: %v", err)
	}
	if diff := cmp.Diff([]bool{true, false}, v); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}
}
