// Package sim implements an in-process stand-in for the ESP32 Wi-Fi
// radio driver. It honors the same call-order contract as the hardware
// (promiscuous priming before CSI configuration, master flag last) and,
// while capture is on, feeds the registered callback synthetic CSI
// events shaped like real traffic: a per-subcarrier channel response
// with slow phase drift plus noise.
package sim

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/wlansense/csi-capture/internal/csi/driver"
)

var (
	// ErrNotPrimed is returned when CSI configuration is attempted
	// before the promiscuous-mode priming call.
	ErrNotPrimed = errors.New("sim: promiscuous mode not primed")

	// ErrNotConfigured is returned when capture is started without an
	// applied CSI configuration or a registered callback.
	ErrNotConfigured = errors.New("sim: CSI not configured")
)

// WithLogger sets the logger for the simulated radio.
func WithLogger(logger *slog.Logger) func(*Radio) {
	return func(r *Radio) {
		r.logger = logger
	}
}

// WithRand sets the random source, making event synthesis deterministic
// for tests.
func WithRand(rnd *rand.Rand) func(*Radio) {
	return func(r *Radio) {
		r.rnd = rnd
	}
}

// Radio is a simulated ESP32-class radio implementing driver.Driver.
type Radio struct {
	cfg    Config
	logger *slog.Logger
	rnd    *rand.Rand

	mu       sync.Mutex
	primed   bool
	request  driver.Request
	callback driver.Callback
	running  bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// New creates a simulated radio. The configuration is validated once
// here; zero values fall back to defaults.
func New(cfg *Config, options ...func(*Radio)) (*Radio, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	r := Radio{
		cfg:    cfg.withDefaults(),
		logger: logger,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, option := range options {
		option(&r)
	}

	return &r, nil
}

func (r *Radio) SetProtocol(p driver.Protocol) error {
	r.logger.Debug("protocol set", slog.Int("protocol", int(p)))
	return nil
}

func (r *Radio) SetBandwidth(bw driver.Bandwidth) error {
	r.logger.Debug("bandwidth set", slog.Int("bandwidth", int(bw)))
	return nil
}

func (r *Radio) SetPromiscuous(enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Even a disabling call initializes the internal structures CSI
	// depends on, like the hardware it mimics.
	r.primed = true
	r.logger.Debug("promiscuous mode set", slog.Bool("enable", enable))
	return nil
}

func (r *Radio) ApplyCSIConfig(req driver.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.primed {
		return driver.NewOpError("set_csi_config", ErrNotPrimed)
	}

	r.request = req
	return nil
}

func (r *Radio) RegisterCallback(cb driver.Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callback = cb
	return nil
}

func (r *Radio) SetCSI(enable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enable == r.running {
		return nil
	}

	if !enable {
		close(r.stop)
		r.running = false

		r.mu.Unlock()
		r.wg.Wait()
		r.mu.Lock()

		r.logger.Debug("capture stopped")
		return nil
	}

	if r.request == nil || r.callback == nil {
		return driver.NewOpError("set_csi", ErrNotConfigured)
	}

	r.stop = make(chan struct{})
	r.running = true

	r.wg.Add(1)
	go r.emit(r.stop, r.callback, r.request)

	r.logger.Debug("capture started", slog.Float64("frameRate", r.cfg.FrameRate))
	return nil
}

// Close stops event emission. The radio cannot be restarted afterwards
// through Close; SetCSI(true) still can.
func (r *Radio) Close() error {
	return r.SetCSI(false)
}

// emit drives the registered callback at the configured frame rate until
// stopped.
func (r *Radio) emit(stop <-chan struct{}, cb driver.Callback, req driver.Request) {
	defer r.wg.Done()

	interval := time.Duration(float64(time.Second) / r.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The payload buffer is reused across events: the callback contract
	// requires copying, exactly as with driver-owned memory on hardware.
	payload := make([]int8, 2*r.cfg.Subcarriers)
	phase := r.rnd.Float64() * 2 * math.Pi

	var seq uint32
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			phase += r.cfg.PhaseDrift
			ev := r.synthesize(seq, phase, payload, req)
			cb(ev)
			seq++
		}
	}
}

// synthesize builds one CSI event. Subcarrier k carries a complex
// response of slowly rotating phase with additive noise, which yields
// plausible amplitude/phase tracks downstream.
func (r *Radio) synthesize(seq uint32, phase float64, payload []int8, req driver.Request) *driver.Event {
	amplitude := r.cfg.Amplitude
	for k := 0; k < r.cfg.Subcarriers; k++ {
		// Frequency-selective fading across the band.
		a := amplitude * (0.6 + 0.4*math.Cos(2*math.Pi*float64(k)/float64(r.cfg.Subcarriers)))
		p := phase + 2*math.Pi*float64(k)*r.cfg.DelaySlope

		i := a*math.Cos(p) + r.noise()
		q := a*math.Sin(p) + r.noise()
		payload[2*k] = clampInt8(i)
		payload[2*k+1] = clampInt8(q)
	}

	ev := driver.Event{
		MAC:     r.cfg.Source,
		Payload: payload,
	}
	ev.RSSI = int8(r.cfg.RSSI + r.rnd.Intn(5) - 2)
	ev.Rate = 11
	ev.NoiseFloor = int8(r.cfg.NoiseFloor)
	ev.Channel = r.cfg.Channel
	ev.Timestamp = seq * uint32(time.Second.Microseconds()/int64(r.cfg.FrameRate))
	ev.SigLen = uint16(len(payload))

	// The Wi-Fi 6 chip family reports a reduced metadata set; everything
	// it does not expose stays zero, as on hardware.
	if _, he := req.(*driver.HERequest); !he {
		ev.SigMode = 1 // HT
		ev.MCS = 7
		ev.Smoothing = 1
		ev.NotSounding = 1
		ev.SGI = 1
		ev.SecondaryChannel = 1
		ev.AMPDUCount = uint16(seq % 4)
	}

	return &ev
}

func (r *Radio) noise() float64 {
	return (r.rnd.Float64() - 0.5) * r.cfg.NoiseAmplitude
}

func clampInt8(v float64) int8 {
	if v > 127 {
		return 127
	}
	if v < -128 {
		return -128
	}
	return int8(v)
}
