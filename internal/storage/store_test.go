package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/wlansense/csi-capture/internal/csi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "csi_test.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing store: %v", err)
		}
	})
	return s
}

func testFrame(seq uint32, channel uint8) csi.Frame {
	var f csi.Frame
	f.MAC = [6]byte{0x02, 0x32, 0x45, 0x53, 0x50, 0x01}
	f.TimestampMicros = seq
	f.RSSI = -50
	f.NoiseFloor = -90
	f.Channel = channel
	f.Len = 4
	f.Data[0] = 1
	f.Data[1] = -1
	f.Data[2] = 2
	f.Data[3] = -2
	return f
}

func TestStore_FrameRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sessionID, err := s.CreateSession("esp32-sim", "sim0", map[string]any{"bufferFrames": 128})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	frames := []csi.Frame{testFrame(1, 6), testFrame(2, 6), testFrame(3, 11)}
	if err := s.InsertFrames(sessionID, time.Now(), frames); err != nil {
		t.Fatalf("InsertFrames failed: %v", err)
	}

	iter, err := s.ReadFrames(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("ReadFrames failed: %v", err)
	}
	defer iter.Close()

	var got []csi.Frame
	for iter.Next(context.Background()) {
		got = append(got, iter.Current().Frame)
	}
	if err := iter.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}

	if len(got) != len(frames) {
		t.Fatalf("read %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if got[i].TimestampMicros != frames[i].TimestampMicros {
			t.Errorf("frame %d out of order: %d", i, got[i].TimestampMicros)
		}
		if got[i].MAC != frames[i].MAC {
			t.Errorf("frame %d MAC = %x, want %x", i, got[i].MAC, frames[i].MAC)
		}
		if got[i].RSSI != -50 || got[i].NoiseFloor != -90 {
			t.Errorf("frame %d signal metadata lost: %+v", i, got[i])
		}
		if got[i].Len != 4 {
			t.Fatalf("frame %d Len = %d, want 4", i, got[i].Len)
		}
		for j, v := range frames[i].Payload() {
			if got[i].Data[j] != v {
				t.Errorf("frame %d payload[%d] = %d, want %d", i, j, got[i].Data[j], v)
			}
		}
	}
}

func TestStore_ReadFramesChannelFilter(t *testing.T) {
	s := newTestStore(t)

	sessionID, err := s.CreateSession("esp32-sim", "sim0", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	frames := []csi.Frame{testFrame(1, 6), testFrame(2, 11), testFrame(3, 6)}
	if err := s.InsertFrames(sessionID, time.Now(), frames); err != nil {
		t.Fatalf("InsertFrames failed: %v", err)
	}

	iter, err := s.ReadFrames(context.Background(), sessionID, WithChannel(6))
	if err != nil {
		t.Fatalf("ReadFrames failed: %v", err)
	}
	defer iter.Close()

	var count int
	for iter.Next(context.Background()) {
		if iter.Current().Frame.Channel != 6 {
			t.Errorf("filter leaked frame on channel %d", iter.Current().Frame.Channel)
		}
		count++
	}
	if err := iter.Error(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}
	if count != 2 {
		t.Errorf("read %d frames on channel 6, want 2", count)
	}
}

func TestStore_Sessions(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.CreateSession("esp32-sim", "sim0", "{}"); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := s.CreateSession("esp32-c6", "station1", nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sessions, err := s.Sessions()
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].DeviceType != "esp32-sim" || sessions[1].DeviceID != "station1" {
		t.Errorf("session metadata lost: %+v", sessions)
	}
	if sessions[0].Config == nil || *sessions[0].Config != "{}" {
		t.Error("session config not stored")
	}
	if sessions[1].Config != nil {
		t.Error("nil config stored as non-null")
	}
}
