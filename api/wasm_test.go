package api

import "testing"

func TestValueTypeName(t *testing.T) {
	tests := []struct {
		name string
		vt   ValueType
		exp  string
	}{
		{"i32", ValueTypeI32, "i32"},
		{"i64", ValueTypeI64, "i64"},
		{"unknown", 0x00, "unknown"},
	}
	for _, tc := range tests {
		if got := ValueTypeName(tc.vt); got != tc.exp {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.exp, got)
		}
	}
}

func TestEncodeDecodeI32(t *testing.T) {
	in := int32(-1234)
	if got := DecodeI32(EncodeI32(in)); got != in {
		t.Errorf("expected %d, got %d", in, got)
	}
}

func TestEncodeDecodeU32(t *testing.T) {
	in := uint32(0xdeadbeef)
	if got := DecodeU32(EncodeU32(in)); got != in {
		t.Errorf("expected %#x, got %#x", in, got)
	}
}
