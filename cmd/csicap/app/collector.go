package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wlansense/csi-capture/internal/csi"
	"github.com/wlansense/csi-capture/internal/storage"
	"github.com/wlansense/csi-capture/internal/telemetry"
)

const (
	maxBatchSize = 100

	pollInterval  = 20 * time.Millisecond
	linkInterval  = 10 * time.Second
	statsInterval = 30 * time.Second
)

// WithMaxBatchSize sets the maximum batch size of collected frames to store
// within a single database transaction.
func WithMaxBatchSize(size int) func(*Collector) {
	return func(c *Collector) {
		c.maxBatchSize = size
	}
}

// WithTelemetry sets the telemetry provider to use for recording link
// conditions alongside captured frames.
func WithTelemetry(provider telemetry.Provider) func(*Collector) {
	return func(c *Collector) {
		c.telemetry = provider
	}
}

// WithBroadcaster sets a sink that receives every collected frame, used
// to fan frames out to live stream subscribers.
func WithBroadcaster(fn func(*csi.Frame)) func(*Collector) {
	return func(c *Collector) {
		c.broadcast = fn
	}
}

// Collector drains captured frames out of the controller's buffer,
// persists them in batches and periodically samples the link state. The
// controller's buffer absorbs capture bursts; the collector only has to
// keep up on average.
type Collector struct {
	controller *csi.Controller
	store      *storage.Store
	sessionID  int64

	logger    *slog.Logger
	telemetry telemetry.Provider
	broadcast func(*csi.Frame)

	maxBatchSize int

	stored      uint64
	lastDropped uint32
}

// NewCollector creates a new Collector draining into the given session.
func NewCollector(controller *csi.Controller, store *storage.Store, sessionID int64, logger *slog.Logger, options ...func(*Collector)) *Collector {
	c := Collector{
		controller:   controller,
		store:        store,
		sessionID:    sessionID,
		logger:       logger,
		maxBatchSize: maxBatchSize,
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Run drains frames until the context is cancelled, then flushes what
// remains buffered. A cancelled context is a normal shutdown and not an
// error.
func (c *Collector) Run(ctx context.Context) error {
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	link := time.NewTicker(linkInterval)
	defer link.Stop()

	stats := time.NewTicker(statsInterval)
	defer stats.Stop()

	c.sampleLink()

	batch := make([]csi.Frame, 0, c.maxBatchSize)
	for {
		select {
		case <-ctx.Done():
			batch = c.drain(batch)
			c.flush(batch)
			c.sampleLink()
			c.logStats()
			return nil

		case <-poll.C:
			batch = c.drain(batch)

		case <-link.C:
			c.sampleLink()

		case <-stats.C:
			c.logStats()
		}
	}
}

// drain moves everything currently buffered into the batch, flushing
// whenever the batch fills up.
func (c *Collector) drain(batch []csi.Frame) []csi.Frame {
	for {
		frame, ok := c.controller.ReadFrame()
		if !ok {
			break
		}

		if c.broadcast != nil {
			c.broadcast(&frame)
		}

		batch = append(batch, frame)
		if len(batch) >= c.maxBatchSize {
			batch = c.flush(batch)
		}
	}

	if len(batch) > 0 {
		batch = c.flush(batch)
	}
	return batch
}

func (c *Collector) flush(batch []csi.Frame) []csi.Frame {
	if len(batch) == 0 {
		return batch
	}

	if err := c.store.InsertFrames(c.sessionID, time.Now().UTC(), batch); err != nil {
		c.logger.Error(err.Error())
		return batch[:0]
	}

	c.stored += uint64(len(batch))
	return batch[:0]
}

func (c *Collector) sampleLink() {
	if c.telemetry == nil {
		return
	}

	status := c.telemetry.Get()
	if status == nil {
		return
	}
	if _, err := c.store.InsertLinkStatus(c.sessionID, status); err != nil {
		c.logger.Error(err.Error())
	}
}

func (c *Collector) logStats() {
	dropped := c.controller.Dropped()
	if delta := dropped - c.lastDropped; delta > 0 {
		c.logger.Warn("frames dropped since last report",
			slog.Uint64("dropped", uint64(delta)),
			slog.Uint64("droppedTotal", uint64(dropped)))
	}
	c.lastDropped = dropped

	c.logger.Info("collector progress",
		slog.String("frames", humanize.Comma(int64(c.stored))),
		slog.Uint64("buffered", uint64(c.controller.Available())))
}
