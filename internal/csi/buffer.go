package csi

import (
	"fmt"
	"sync/atomic"
)

// FrameAllocator builds the backing array for a ring buffer. The default
// allocator never fails; tests substitute one to exercise the
// out-of-memory paths.
type FrameAllocator func(n uint32) ([]Frame, error)

func defaultAllocator(n uint32) ([]Frame, error) {
	return make([]Frame, n), nil
}

// WithFrameAllocator replaces the buffer's frame allocator.
func WithFrameAllocator(alloc FrameAllocator) func(*RingBuffer) {
	return func(b *RingBuffer) {
		b.alloc = alloc
	}
}

// RingBuffer is a fixed-capacity, single-producer/single-consumer ring of
// CSI frames. The producer side (Push) is safe to call from the radio
// driver's capture callback: it never blocks, never allocates and
// completes in bounded time. The consumer side (Pop) runs in task
// context.
//
// Correctness relies on each index being written by exactly one side:
// head is advanced only by the producer, tail only by the consumer. The
// index stores use release/acquire ordering, so the consumer never
// observes a half-written slot and the producer never overwrites a slot
// the consumer is still copying from.
//
// One slot is reserved to distinguish full from empty, so a buffer of
// capacity N holds at most N-1 frames. When full, the incoming frame is
// discarded and counted; stored frames are never overwritten.
type RingBuffer struct {
	frames []Frame

	head        atomic.Uint32 // next write slot, producer-owned
	tail        atomic.Uint32 // next read slot, consumer-owned
	size        uint32
	dropped     atomic.Uint32
	initialized atomic.Bool

	alloc FrameAllocator
}

// NewRingBuffer creates an uninitialized ring buffer. Call Init before
// pushing frames.
func NewRingBuffer(options ...func(*RingBuffer)) *RingBuffer {
	b := RingBuffer{alloc: defaultAllocator}

	for _, option := range options {
		option(&b)
	}

	return &b
}

// Init allocates the frame array at the given capacity and resets the
// indices and the dropped counter. A previously allocated array is
// released first. On allocation failure the buffer is left
// uninitialized and ErrNoMemory is returned.
//
// The producer must not be running during Init: capacity changes require
// a stop/restart cycle.
func (b *RingBuffer) Init(capacity uint32) error {
	if capacity == 0 {
		return fmt.Errorf("%w: buffer capacity must be at least 1", ErrInvalidArg)
	}

	b.initialized.Store(false)
	b.frames = nil

	frames, err := b.alloc(capacity)
	if err != nil {
		return fmt.Errorf("%w: allocating %d frames: %w", ErrNoMemory, capacity, err)
	}

	b.frames = frames
	b.size = capacity
	b.head.Store(0)
	b.tail.Store(0)
	b.dropped.Store(0)
	b.initialized.Store(true)

	return nil
}

// Deinit releases the frame array. It is idempotent: calling it twice,
// or on a never-initialized buffer, is a no-op.
func (b *RingBuffer) Deinit() {
	b.initialized.Store(false)
	b.frames = nil
	b.size = 0
}

// Initialized reports whether the buffer currently has a frame array.
func (b *RingBuffer) Initialized() bool {
	return b.initialized.Load()
}

// Capacity returns the frame count the buffer was initialized with, or
// zero when uninitialized. Usable capacity is one less.
func (b *RingBuffer) Capacity() uint32 {
	if !b.initialized.Load() {
		return 0
	}
	return b.size
}

// Push copies the frame into the next write slot. Producer side only.
//
// It returns false when the buffer is uninitialized (not counted) or
// full (counted in Dropped); the frame is discarded in both cases.
func (b *RingBuffer) Push(f *Frame) bool {
	if !b.initialized.Load() {
		return false
	}

	head := b.head.Load()
	next := (head + 1) % b.size

	if next == b.tail.Load() {
		b.dropped.Add(1)
		return false
	}

	b.frames[head] = *f

	// Publish after write: the slot copy must be visible before the
	// index advances.
	b.head.Store(next)

	return true
}

// Pop copies the oldest stored frame into out. Consumer side only.
// It returns false when the buffer is uninitialized or empty.
func (b *RingBuffer) Pop(out *Frame) bool {
	if !b.initialized.Load() {
		return false
	}

	tail := b.tail.Load()
	if tail == b.head.Load() {
		return false // empty
	}

	*out = b.frames[tail]

	// Release the slot only after the copy completes.
	b.tail.Store((tail + 1) % b.size)

	return true
}

// Available returns the number of unread frames. It is safe to call
// concurrently with Push and may be stale by at most one frame.
func (b *RingBuffer) Available() uint32 {
	if !b.initialized.Load() {
		return 0
	}

	head := b.head.Load()
	tail := b.tail.Load()

	if head >= tail {
		return head - tail
	}
	return b.size - tail + head
}

// Dropped returns the number of frames discarded because the buffer was
// full. The counter is monotonically non-decreasing between Init calls
// and resets only on reinitialization.
func (b *RingBuffer) Dropped() uint32 {
	return b.dropped.Load()
}
