package wire

import (
	"errors"
	"testing"
)

func TestReader_Primitives(t *testing.T) {
	data := []byte{
		0xAB,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0xFF, 0xFF, 0xFF, 0xFF,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}
	r := NewReader(data)

	if v := r.ReadUint8(); v != 0xAB {
		t.Errorf("ReadUint8 = %#x, want 0xab", v)
	}
	if v := r.ReadUint16(); v != 0x1234 {
		t.Errorf("ReadUint16 = %#x, want 0x1234", v)
	}
	if v := r.ReadUint32(); v != 0x12345678 {
		t.Errorf("ReadUint32 = %#x, want 0x12345678", v)
	}
	if v := r.ReadInt32(); v != -1 {
		t.Errorf("ReadInt32 = %d, want -1", v)
	}
	if v := r.ReadUint64(); v != 0x0102030405060708 {
		t.Errorf("ReadUint64 = %#x, want 0x0102030405060708", v)
	}
	if r.Err() != nil {
		t.Fatalf("unexpected error: %v", r.Err())
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestReader_ErrorAccumulation(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})

	_ = r.ReadUint32()
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("Err = %v, want ErrTruncated", r.Err())
	}
	first := r.Err()

	// Later reads are no-ops and keep the first error.
	if v := r.ReadUint8(); v != 0 {
		t.Errorf("ReadUint8 after error = %d, want 0", v)
	}
	if r.Err() != first {
		t.Errorf("error changed after subsequent read")
	}
	if r.Position() != 0 {
		t.Errorf("Position = %d, want 0", r.Position())
	}
}

func TestReader_ReadBytesZero(t *testing.T) {
	r := NewReader(nil)
	b := r.ReadBytes(0)
	if b == nil || len(b) != 0 {
		t.Errorf("ReadBytes(0) = %v, want empty non-nil slice", b)
	}
	if r.Err() != nil {
		t.Errorf("unexpected error: %v", r.Err())
	}
}

func TestReader_ReadBytesCopies(t *testing.T) {
	data := []byte{1, 2, 3}
	r := NewReader(data)
	b := r.ReadBytes(3)
	data[0] = 9
	if b[0] != 1 {
		t.Errorf("ReadBytes aliases input buffer")
	}
}

func TestReader_BlobBoundedBeforeAlloc(t *testing.T) {
	// Declares 4 GiB with two bytes of input.
	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x02})
	if b := r.ReadBlob(); b != nil {
		t.Errorf("ReadBlob = %v, want nil", b)
	}
	if !errors.Is(r.Err(), ErrLengthExceedsInput) {
		t.Errorf("Err = %v, want ErrLengthExceedsInput", r.Err())
	}
}

func TestReader_Fail(t *testing.T) {
	r := NewReader([]byte{1})
	custom := errors.New("custom")
	r.Fail(custom)
	r.Fail(errors.New("second"))
	if r.Err() != custom {
		t.Errorf("Err = %v, want first recorded error", r.Err())
	}
	if v := r.ReadUint8(); v != 0 {
		t.Errorf("ReadUint8 after Fail = %d, want 0", v)
	}
}

func TestReader_Sub(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	sub := r.Sub(3)
	if sub.Remaining() != 3 || r.Remaining() != 2 {
		t.Fatalf("Remaining sub=%d parent=%d, want 3 and 2", sub.Remaining(), r.Remaining())
	}
	_ = sub.ReadUint32()
	if !errors.Is(sub.Err(), ErrTruncated) {
		t.Errorf("sub Err = %v, want ErrTruncated", sub.Err())
	}
	if r.Err() != nil {
		t.Errorf("parent Err = %v, want nil", r.Err())
	}

	bad := r.Sub(10)
	if !errors.Is(r.Err(), ErrTruncated) || !errors.Is(bad.Err(), ErrTruncated) {
		t.Errorf("Sub past end: parent %v, sub %v", r.Err(), bad.Err())
	}
}
