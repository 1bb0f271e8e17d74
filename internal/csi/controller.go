package csi

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wlansense/csi-capture/internal/csi/driver"
)

// Clock returns the current value of a monotonic microsecond counter.
// Frames are stamped with it at capture time.
type Clock func() uint32

// WithLogger sets the logger for the controller.
func WithLogger(logger *slog.Logger) func(*Controller) {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock replaces the capture timestamp source.
func WithClock(clock Clock) func(*Controller) {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) func(*Controller) {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithBufferAllocator replaces the frame buffer allocator.
func WithBufferAllocator(alloc FrameAllocator) func(*Controller) {
	return func(c *Controller) {
		c.buf = NewRingBuffer(WithFrameAllocator(alloc))
	}
}

// Controller owns the CSI state for one radio interface: the frame
// buffer, the current configuration and the enablement flag. It
// sequences the driver calls required before the capture callback can be
// trusted to fire, and it is the single consumer of the buffer.
//
// One controller exists per radio. All operations except HandleEvent are
// task-context and expected to be serialized by the caller; HandleEvent
// is the producer side and is invoked by the driver.
type Controller struct {
	drv driver.Driver
	buf *RingBuffer
	cfg Config

	// enabled is written from task context but read on the producer
	// path, hence atomic.
	enabled atomic.Bool

	clock  Clock
	logger *slog.Logger
}

// New creates a controller for the given radio driver with the default
// configuration and an unallocated buffer. The buffer is lazily
// allocated on the first Enable or explicit Init call.
func New(drv driver.Driver, options ...func(*Controller)) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	start := time.Now()
	c := Controller{
		drv:    drv,
		buf:    NewRingBuffer(),
		cfg:    DefaultConfig(),
		logger: logger,
		clock: func() uint32 {
			return uint32(time.Since(start).Microseconds())
		},
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Init allocates the frame buffer at the configured capacity. It is
// idempotent and does not touch the driver.
func (c *Controller) Init() error {
	if c.buf.Initialized() {
		return nil
	}
	return c.buf.Init(c.cfg.BufferFrames)
}

// Enable starts CSI capture. It is a no-op returning nil when capture is
// already enabled. Otherwise it ensures the buffer is allocated and runs
// the hardware enablement sequence; on any critical failure the sequence
// is aborted, the error is returned and capture stays disabled.
func (c *Controller) Enable() error {
	if c.enabled.Load() {
		return nil
	}
	return c.enableHardware()
}

// enableHardware applies the chip-mandated enablement sequence. The
// order is fragile: promiscuous mode must be primed before the CSI
// configuration or some chips never invoke the callback, and the master
// CSI flag must be toggled last.
func (c *Controller) enableHardware() error {
	if !c.buf.Initialized() {
		if err := c.buf.Init(c.cfg.BufferFrames); err != nil {
			return err
		}
		c.logger.Debug("frame buffer initialized", slog.Uint64("frames", uint64(c.cfg.BufferFrames)))
	}

	// Protocol and bandwidth are best effort: capture still works on
	// driver defaults if either call is rejected.
	if err := c.drv.SetProtocol(c.cfg.Acquisition.protocol()); err != nil {
		c.logger.Warn("failed to set link protocol", slog.Any("error", err))
	}
	if err := c.drv.SetBandwidth(driver.BandwidthHT20); err != nil {
		c.logger.Warn("failed to set channel bandwidth", slog.Any("error", err))
	}

	if err := c.drv.SetPromiscuous(false); err != nil {
		return fmt.Errorf("priming promiscuous mode: %w", err)
	}

	if err := c.drv.ApplyCSIConfig(c.cfg.Acquisition.request()); err != nil {
		return fmt.Errorf("applying CSI config: %w", err)
	}

	if err := c.drv.RegisterCallback(c.HandleEvent); err != nil {
		return fmt.Errorf("registering capture callback: %w", err)
	}

	if err := c.drv.SetCSI(true); err != nil {
		return fmt.Errorf("enabling CSI capture: %w", err)
	}

	c.enabled.Store(true)
	c.logger.Info("CSI capture enabled")
	return nil
}

// Disable stops CSI capture. It is a no-op returning nil when capture is
// not enabled. The buffer is retained: frames already captured remain
// readable, and promiscuous mode is not reverted.
func (c *Controller) Disable() error {
	if !c.enabled.Load() {
		return nil
	}

	if err := c.drv.SetCSI(false); err != nil {
		return fmt.Errorf("disabling CSI capture: %w", err)
	}

	c.enabled.Store(false)
	c.logger.Info("CSI capture disabled")
	return nil
}

// Configure replaces the stored configuration. When the requested buffer
// capacity differs from the live buffer's, the buffer is torn down and
// rebuilt at the new capacity, stopping and restarting capture around
// the reallocation if it was active. When the capacity is unchanged but
// capture is enabled, the hardware sequence is re-applied so the new
// acquisition values take effect immediately.
//
// On allocation failure the buffer is left uninitialized; there is no
// rollback to the previous capacity.
func (c *Controller) Configure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidArg)
	}

	c.cfg = *cfg

	if cfg.BufferFrames != c.buf.Capacity() {
		wasEnabled := c.enabled.Load()

		if wasEnabled {
			if err := c.Disable(); err != nil {
				return err
			}
		}

		c.buf.Deinit()
		if err := c.buf.Init(cfg.BufferFrames); err != nil {
			return err
		}

		if wasEnabled {
			return c.enableHardware()
		}
		return nil
	}

	if c.enabled.Load() {
		return c.enableHardware()
	}
	return nil
}

// ReadFrame pops the oldest buffered frame. The second return value is
// false when nothing is available, which is a normal result, not an
// error: CSI only flows while there is traffic on the air.
func (c *Controller) ReadFrame() (Frame, bool) {
	var f Frame
	ok := c.buf.Pop(&f)
	return f, ok
}

// Available returns the number of buffered unread frames.
func (c *Controller) Available() uint32 {
	return c.buf.Available()
}

// Dropped returns the number of frames discarded on buffer overflow
// since the buffer was last initialized.
func (c *Controller) Dropped() uint32 {
	return c.buf.Dropped()
}

// Enabled reports whether CSI capture is currently active.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// Config returns a copy of the current configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Deinit tears the controller state down: capture is stopped if active
// (a driver failure here is ignored) and the buffer is released.
func (c *Controller) Deinit() {
	if c.enabled.Load() {
		if err := c.Disable(); err != nil {
			c.logger.Warn("failed to disable CSI capture", slog.Any("error", err))
			c.enabled.Store(false)
		}
	}
	c.buf.Deinit()
}

// HandleEvent is the capture callback the controller registers with the
// driver. It runs under the driver's interrupt-level constraints: no
// allocation, no blocking, bounded time. It translates the driver event
// into a Frame and pushes it; a full buffer discards the frame silently,
// leaving the dropped counter as the only trace.
func (c *Controller) HandleEvent(ev *driver.Event) {
	// Common case when CSI is administratively off but the callback is
	// still registered.
	if !c.enabled.Load() || !c.buf.Initialized() {
		return
	}

	var f Frame
	f.RSSI = ev.RSSI
	f.Rate = ev.Rate
	f.SigMode = ev.SigMode
	f.MCS = ev.MCS
	f.ChannelBandwidth = ev.ChannelBandwidth
	f.Smoothing = ev.Smoothing
	f.NotSounding = ev.NotSounding
	f.Aggregation = ev.Aggregation
	f.STBC = ev.STBC
	f.FECCoding = ev.FECCoding
	f.SGI = ev.SGI
	f.NoiseFloor = ev.NoiseFloor
	f.AMPDUCount = ev.AMPDUCount
	f.Channel = ev.Channel
	f.SecondaryChannel = ev.SecondaryChannel
	f.LocalTimestamp = ev.Timestamp
	f.Antenna = ev.Antenna
	f.SigLen = ev.SigLen
	f.RxState = ev.RxState

	f.MAC = ev.MAC
	f.TimestampMicros = c.clock()

	n := len(ev.Payload)
	if n > MaxDataLen {
		n = MaxDataLen
	}
	copy(f.Data[:n], ev.Payload[:n])
	f.Len = uint16(n)

	c.buf.Push(&f)
}
