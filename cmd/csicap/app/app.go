package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/wlansense/csi-capture/internal/csi"
	"github.com/wlansense/csi-capture/internal/csi/sim"
	"github.com/wlansense/csi-capture/internal/storage"
	"github.com/wlansense/csi-capture/internal/telemetry"
)

const (
	storageDir = "data"

	deviceType = "esp32-sim"
	deviceID   = "wifi0"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	store, err := createStorage(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	defer store.Close()

	radio, err := sim.New(&config.Radio, sim.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating radio: %w", err)
	}
	defer radio.Close()

	controller := csi.New(radio, csi.WithLogger(logger), csi.WithConfig(config.ControllerConfig()))
	if err = controller.Init(); err != nil {
		return fmt.Errorf("initialising capture: %w", err)
	}
	defer controller.Deinit()

	sessionID, err := store.CreateSession(deviceType, deviceID, &config.CSI)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	if err = controller.Enable(); err != nil {
		return fmt.Errorf("enabling capture: %w", err)
	}

	options := []func(*Collector){
		WithTelemetry(linkProvider(&config.Radio)),
	}
	if config.Storage.MaxBatchSize > 0 {
		options = append(options, WithMaxBatchSize(config.Storage.MaxBatchSize))
	}

	if config.Server.Enabled {
		server := NewServer(config.Server.Listen, controller, logger)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(err.Error())
			}
		}()
		defer server.Shutdown()

		options = append(options, WithBroadcaster(server.Broadcast))
	}

	collector := NewCollector(controller, store, sessionID, logger, options...)
	return collector.Run(ctx)
}

func createStorage(config *StorageConfig) (*storage.Store, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	var dbPath string
	if config.DataDirectory != "" {
		dbPath = filepath.Join(wd, config.DataDirectory)
	} else {
		dbPath = filepath.Join(wd, storageDir)
	}

	stat, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("storage directory '%s' does not exist: %w", dbPath, err)
		}
		return nil, fmt.Errorf("invalid storage directory '%s': %w", dbPath, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("invalid storage directory '%s'", dbPath)
	}

	dbPath = filepath.Join(dbPath, fmt.Sprintf("csi_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	return storage.New(dbPath), nil
}

// linkProvider reports the link conditions the simulated radio is
// configured with. Fields left at their zero value in the configuration
// are reported as unobserved.
func linkProvider(config *sim.Config) telemetry.Provider {
	return telemetry.ProviderFunc(func() *telemetry.LinkStatus {
		status := telemetry.LinkStatus{
			Timestamp: time.Now().UTC(),
			Connected: true,
		}
		if config.RSSI != 0 {
			v := int64(config.RSSI)
			status.RSSI = &v
		}
		if config.NoiseFloor != 0 {
			v := int64(config.NoiseFloor)
			status.NoiseFloor = &v
		}
		if config.Channel != 0 {
			v := int64(config.Channel)
			status.Channel = &v
		}
		return &status
	})
}
