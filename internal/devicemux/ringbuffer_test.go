package devicemux

import "testing"

func TestRingBuffer_WriteAndDrain(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Write([]byte{1, 2, 3})
	got := rb.Drain()
	want := []byte{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain() = %v, want %v", got, want)
		}
	}
	if rb.Overflowed() {
		t.Error("Overflowed() = true, want false")
	}
}

func TestRingBuffer_OverflowDropsOldest(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3, 4, 5, 6})
	got := rb.Drain()
	want := []byte{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain() = %v, want %v", got, want)
		}
	}
	if !rb.Overflowed() {
		t.Error("Overflowed() = false, want true after exceeding capacity")
	}
}

func TestRingBuffer_TotalWrittenIncludesDropped(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]byte{1, 2, 3, 4, 5, 6})
	if got := rb.TotalWritten(); got != 6 {
		t.Errorf("TotalWritten() = %d, want 6", got)
	}
}

func TestRingBuffer_WriteLargerThanCapacity(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Write([]byte{1, 2, 3, 4, 5})
	got := rb.Drain()
	want := []byte{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Drain() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Drain() = %v, want %v", got, want)
		}
	}
	if !rb.Overflowed() {
		t.Error("Overflowed() = false, want true")
	}
}
