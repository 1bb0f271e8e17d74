package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/wlansense/csi-capture/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.New(config.DBPath)
	defer store.Close()

	return renderSession(ctx, store, config, logger)
}

func renderSession(ctx context.Context, store *storage.Store, config *Config, logger *slog.Logger) error {
	var opts []storage.ReaderOption
	var filters []any
	if config.SourceMAC != "" {
		opts = append(opts, storage.WithSourceMAC(config.SourceMAC))
		filters = append(filters, slog.String("mac", config.SourceMAC))
	}
	if config.Channel > 0 {
		opts = append(opts, storage.WithChannel(uint8(config.Channel)))
		filters = append(filters, slog.Uint64("channel", uint64(config.Channel)))
	}

	logger.Info("iterator configuration", filters...)

	iter, err := store.ReadFrames(ctx, config.SessionID, opts...)
	if err != nil {
		return err
	}
	defer iter.Close()

	logger.Info("reading frames, hold on tight, it may take a while")

	data := NewHeatmapData(NewSmoothBounds(0.3))
	for iter.Next(ctx) {
		data.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}

	if data.Height == 0 {
		return fmt.Errorf("session %d has no frames matching the filters", config.SessionID)
	}

	bounds := data.BoundsTracker.Current()
	if config.MinLevel != nil {
		bounds.Min = *config.MinLevel
	}
	if config.MaxLevel != nil {
		bounds.Max = *config.MaxLevel
	}
	data.BoundsTracker.current = bounds

	logger.Info("finished reading frames",
		slog.Group("stats",
			slog.Int("frames", data.Height),
			slog.Int("subcarriers", data.Width),
			slog.String("minTimestamp", data.TimestampStart.Local().Format(time.DateTime)),
			slog.String("maxTimestamp", data.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("minLevel", fmt.Sprintf("%0.2fdB", bounds.Min)),
			slog.String("maxLevel", fmt.Sprintf("%0.2fdB", bounds.Max)),
		))

	renderConfig := RenderConfig{
		Location:   config.TimeZone,
		ColorTheme: config.Theme,
	}
	if !config.NoAnnotations {
		renderConfig.FontPath = config.FontPath
		if renderConfig.FontPath == "" {
			logger.Warn("no font configured, skipping annotations")
		}
	}

	renderer, err := NewHeatmapRenderer(renderConfig)
	if err != nil {
		return fmt.Errorf("creating heatmap renderer: %w", err)
	}

	logger.Info("rendering heatmap",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", data.Width),
			slog.Int("height", data.Height),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering heatmap: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}
