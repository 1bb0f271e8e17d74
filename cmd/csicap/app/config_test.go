package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/wlansense/csi-capture/internal/csi"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "settings:\n  logLevel: debug\n"))
	if err != nil {
		t.Fatal(err)
	}

	if config.Settings.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want %v", config.Settings.Level(), slog.LevelDebug)
	}
	if config.CSI.Variant != VariantLegacy {
		t.Errorf("Variant = %q, want %q", config.CSI.Variant, VariantLegacy)
	}
	if config.CSI.BufferFrames != csi.DefaultBufferFrames {
		t.Errorf("BufferFrames = %d, want %d", config.CSI.BufferFrames, csi.DefaultBufferFrames)
	}

	cfg := config.ControllerConfig()
	legacy, ok := cfg.Acquisition.(csi.LegacyAcquisition)
	if !ok {
		t.Fatalf("Acquisition = %T, want csi.LegacyAcquisition", cfg.Acquisition)
	}
	if !legacy.LLTF || !legacy.HTLTF || legacy.ManualScale {
		t.Errorf("unexpected default acquisition flags: %+v", legacy)
	}
}

func TestLoadConfig_HEVariant(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
csi:
  variant: he
  bufferFrames: 256
  he:
    acquireMu: true
    scaleConfig: 3
`))
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.ControllerConfig()
	if cfg.BufferFrames != 256 {
		t.Errorf("BufferFrames = %d, want 256", cfg.BufferFrames)
	}

	he, ok := cfg.Acquisition.(csi.HEAcquisition)
	if !ok {
		t.Fatalf("Acquisition = %T, want csi.HEAcquisition", cfg.Acquisition)
	}
	if !he.AcquireMU {
		t.Error("AcquireMU not carried over")
	}
	if he.ScaleConfig != 3 {
		t.Errorf("ScaleConfig = %d, want 3", he.ScaleConfig)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", "csi:\n  variant: legacy\n  bufferFrames: 64\n", false},
		{"unknown variant", "csi:\n  variant: vht\n", true},
		{"buffer zero", "csi:\n  bufferFrames: 0\n", true},
		{"buffer too large", "csi:\n  bufferFrames: 2048\n", true},
		{"shift out of range", "csi:\n  legacy:\n    shift: 16\n", true},
		{"bad radio mac", "radio:\n  sourceMAC: not-a-mac\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
