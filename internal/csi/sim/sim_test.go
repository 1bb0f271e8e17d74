package sim

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/wlansense/csi-capture/internal/csi/driver"
)

func newTestRadio(t *testing.T, cfg *Config) *Radio {
	t.Helper()
	r, err := New(cfg, WithRand(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRadio_RequiresPrimingBeforeConfig(t *testing.T) {
	r := newTestRadio(t, nil)

	err := r.ApplyCSIConfig(&driver.LegacyRequest{LLTF: true})
	if !errors.Is(err, ErrNotPrimed) {
		t.Fatalf("ApplyCSIConfig before priming = %v, want ErrNotPrimed", err)
	}

	if err := r.SetPromiscuous(false); err != nil {
		t.Fatalf("SetPromiscuous failed: %v", err)
	}
	if err := r.ApplyCSIConfig(&driver.LegacyRequest{LLTF: true}); err != nil {
		t.Fatalf("ApplyCSIConfig after priming failed: %v", err)
	}
}

func TestRadio_SetCSIRequiresConfiguration(t *testing.T) {
	r := newTestRadio(t, nil)

	if err := r.SetCSI(true); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SetCSI(true) unconfigured = %v, want ErrNotConfigured", err)
	}
}

func TestRadio_EmitsEvents(t *testing.T) {
	r := newTestRadio(t, &Config{FrameRate: 500, Subcarriers: 64, Channel: 11})

	events := make(chan driver.Event, 16)
	if err := r.SetPromiscuous(false); err != nil {
		t.Fatal(err)
	}
	if err := r.ApplyCSIConfig(&driver.LegacyRequest{LLTF: true, HTLTF: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterCallback(func(ev *driver.Event) {
		var copied driver.Event
		copied = *ev
		select {
		case events <- copied:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCSI(true); err != nil {
		t.Fatalf("SetCSI(true) failed: %v", err)
	}
	defer r.Close()

	select {
	case ev := <-events:
		if len(ev.Payload) != 128 {
			t.Errorf("payload length = %d, want 128", len(ev.Payload))
		}
		if ev.Channel != 11 {
			t.Errorf("channel = %d, want 11", ev.Channel)
		}
		if ev.SigMode != 1 {
			t.Errorf("sigMode = %d, want HT metadata on legacy request", ev.SigMode)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event within 2s at 500 frames/s")
	}

	if err := r.SetCSI(false); err != nil {
		t.Fatalf("SetCSI(false) failed: %v", err)
	}

	// No events after stop: drain, then ensure silence.
	for len(events) > 0 {
		<-events
	}
	select {
	case <-events:
		t.Error("event delivered after capture stopped")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRadio_HERequestZeroFillsVariantMetadata(t *testing.T) {
	r := newTestRadio(t, &Config{FrameRate: 500})

	events := make(chan driver.Event, 1)
	if err := r.SetPromiscuous(false); err != nil {
		t.Fatal(err)
	}
	if err := r.ApplyCSIConfig(&driver.HERequest{Enable: true, AcquireLegacy: true}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterCallback(func(ev *driver.Event) {
		select {
		case events <- *ev:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.SetCSI(true); err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	select {
	case ev := <-events:
		if ev.SigMode != 0 || ev.MCS != 0 || ev.SGI != 0 || ev.SecondaryChannel != 0 || ev.AMPDUCount != 0 {
			t.Errorf("variant-only metadata not zero-filled: %+v", ev.RxControl)
		}
		if ev.NoiseFloor == 0 || ev.Channel == 0 {
			t.Errorf("common metadata missing: %+v", ev.RxControl)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event within 2s")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"negative rate", Config{FrameRate: -1}, true},
		{"too many subcarriers", Config{Subcarriers: 256}, true},
		{"valid mac", Config{SourceMAC: "aa:bb:cc:00:11:22"}, false},
		{"invalid mac", Config{SourceMAC: "nonsense"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}
