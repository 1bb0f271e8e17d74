package csi

import (
	"errors"
	"sync"
	"testing"
)

func frameWithSeq(seq uint32) Frame {
	var f Frame
	f.LocalTimestamp = seq
	f.Len = 4
	f.Data[0] = int8(seq)
	return f
}

func TestRingBuffer_FIFOOrder(t *testing.T) {
	b := NewRingBuffer()
	if err := b.Init(8); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for seq := uint32(0); seq < 7; seq++ {
		f := frameWithSeq(seq)
		if !b.Push(&f) {
			t.Fatalf("push %d failed on non-full buffer", seq)
		}
	}

	for seq := uint32(0); seq < 7; seq++ {
		var f Frame
		if !b.Pop(&f) {
			t.Fatalf("pop %d failed on non-empty buffer", seq)
		}
		if f.LocalTimestamp != seq {
			t.Errorf("pop %d: got frame %d, frames reordered", seq, f.LocalTimestamp)
		}
	}

	var f Frame
	if b.Pop(&f) {
		t.Error("pop succeeded on drained buffer")
	}
}

func TestRingBuffer_FullBufferDrops(t *testing.T) {
	const capacity = 8

	b := NewRingBuffer()
	if err := b.Init(capacity); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// One slot is reserved: capacity-1 pushes must succeed.
	for seq := uint32(0); seq < capacity-1; seq++ {
		f := frameWithSeq(seq)
		if !b.Push(&f) {
			t.Fatalf("push %d failed before buffer was full", seq)
		}
	}

	if got := b.Available(); got != capacity-1 {
		t.Errorf("Available() = %d, want %d", got, capacity-1)
	}

	f := frameWithSeq(capacity)
	if b.Push(&f) {
		t.Error("push succeeded on full buffer")
	}
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d after one overflow, want 1", got)
	}
	if got := b.Available(); got != capacity-1 {
		t.Errorf("Available() = %d after dropped push, want %d", got, capacity-1)
	}

	// The stored sequence is untouched: drop-newest, never overwrite.
	var out Frame
	if !b.Pop(&out) || out.LocalTimestamp != 0 {
		t.Errorf("oldest frame = %d, want 0", out.LocalTimestamp)
	}
}

func TestRingBuffer_InterleavedPushPop(t *testing.T) {
	// capacity=4: three usable slots. Push A,B,C; pop A; push D; E drops.
	b := NewRingBuffer()
	if err := b.Init(4); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for seq := uint32(0); seq < 3; seq++ { // A, B, C
		f := frameWithSeq(seq)
		if !b.Push(&f) {
			t.Fatalf("push %d failed", seq)
		}
	}
	if got := b.Available(); got != 3 {
		t.Fatalf("Available() = %d, want 3", got)
	}

	var out Frame
	if !b.Pop(&out) || out.LocalTimestamp != 0 {
		t.Fatalf("first pop = %d, want frame 0", out.LocalTimestamp)
	}

	f := frameWithSeq(3) // D
	if !b.Push(&f) {
		t.Fatal("push D failed with a free slot")
	}
	f = frameWithSeq(4) // E
	if b.Push(&f) {
		t.Error("push E succeeded on full buffer")
	}
	if got := b.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	want := []uint32{1, 3} // B then D; E is invisible to the sequence
	for _, seq := range want {
		if !b.Pop(&out) {
			t.Fatalf("pop failed, want frame %d", seq)
		}
		if out.LocalTimestamp != seq {
			t.Errorf("pop = frame %d, want %d", out.LocalTimestamp, seq)
		}
	}
}

func TestRingBuffer_UninitializedPushUncounted(t *testing.T) {
	b := NewRingBuffer()

	f := frameWithSeq(1)
	if b.Push(&f) {
		t.Error("push succeeded on uninitialized buffer")
	}
	if got := b.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d on uninitialized buffer, want 0", got)
	}

	var out Frame
	if b.Pop(&out) {
		t.Error("pop succeeded on uninitialized buffer")
	}
	if got := b.Available(); got != 0 {
		t.Errorf("Available() = %d on uninitialized buffer, want 0", got)
	}
}

func TestRingBuffer_ReinitResetsCounters(t *testing.T) {
	b := NewRingBuffer()
	if err := b.Init(4); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for seq := uint32(0); seq < 5; seq++ {
		f := frameWithSeq(seq)
		b.Push(&f)
	}
	if b.Dropped() == 0 {
		t.Fatal("expected drops before reinitialization")
	}

	b.Deinit()
	if err := b.Init(4); err != nil {
		t.Fatalf("reinit failed: %v", err)
	}

	if got := b.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d after reinit, want 0", got)
	}
	if got := b.Available(); got != 0 {
		t.Errorf("Available() = %d after reinit, want 0", got)
	}
}

func TestRingBuffer_DeinitIdempotent(t *testing.T) {
	b := NewRingBuffer()

	b.Deinit() // never initialized
	b.Deinit()

	if err := b.Init(4); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	b.Deinit()
	b.Deinit()

	f := frameWithSeq(1)
	if b.Push(&f) {
		t.Error("push succeeded after Deinit")
	}
	if got := b.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d after Deinit, want 0", got)
	}
}

func TestRingBuffer_CapacityOneNeverDelivers(t *testing.T) {
	// The reserved slot leaves zero usable slots: every push drops.
	b := NewRingBuffer()
	if err := b.Init(1); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for seq := uint32(0); seq < 3; seq++ {
		f := frameWithSeq(seq)
		if b.Push(&f) {
			t.Fatalf("push %d succeeded on capacity-1 buffer", seq)
		}
	}
	if got := b.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
}

func TestRingBuffer_ZeroCapacityRejected(t *testing.T) {
	b := NewRingBuffer()
	if err := b.Init(0); !errors.Is(err, ErrInvalidArg) {
		t.Errorf("Init(0) = %v, want ErrInvalidArg", err)
	}
	if b.Initialized() {
		t.Error("buffer reports initialized after rejected Init")
	}
}

func TestRingBuffer_AllocatorFailure(t *testing.T) {
	allocErr := errors.New("stub allocation failure")
	b := NewRingBuffer(WithFrameAllocator(func(n uint32) ([]Frame, error) {
		return nil, allocErr
	}))

	err := b.Init(8)
	if !errors.Is(err, ErrNoMemory) {
		t.Errorf("Init = %v, want ErrNoMemory", err)
	}
	if !errors.Is(err, allocErr) {
		t.Errorf("Init = %v, want wrapped allocator error", err)
	}
	if b.Initialized() {
		t.Error("buffer reports initialized after allocation failure")
	}
}

func TestRingBuffer_ConcurrentProducerConsumer(t *testing.T) {
	const total = 10_000

	b := NewRingBuffer()
	if err := b.Init(16); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)

	delivered := make([]uint32, 0, total)
	go func() {
		defer wg.Done()
		var f Frame
		for len(delivered) < total {
			if b.Pop(&f) {
				delivered = append(delivered, f.LocalTimestamp)
			}
		}
	}()

	// Producer retries dropped frames so the consumer sees the full
	// sequence; ordering and no-duplication are what is under test.
	for seq := uint32(0); seq < total; {
		f := frameWithSeq(seq)
		if b.Push(&f) {
			seq++
		}
	}
	wg.Wait()

	for i, seq := range delivered {
		if seq != uint32(i) {
			t.Fatalf("delivered[%d] = %d, frames reordered or duplicated", i, seq)
		}
	}
}
