package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkHeight = 5

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the heatmap
type BorderConfig struct {
	Top    int // Space for subcarrier scale
	Left   int // Space for time scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for heatmap visualization
type RenderConfig struct {
	// Time display configuration
	TimeFormat     string         // Format string for time display (e.g. "15:04:05")
	DatetimeFormat string         // Format string for date/time display
	Location       *time.Location // Timezone for time display

	// Visual configuration
	FontPath     string     // Path to a TTF font; empty disables annotations
	FontSize     float64    // Font size in points
	ColorTheme   ColorTheme // Color scheme for amplitude levels
	ColorMapSize int        // Number of colors in gradient (0 for default)

	// Border configuration
	BorderConfig BorderConfig
}

// HeatmapRenderer draws the time-by-subcarrier amplitude matrix.
type HeatmapRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewHeatmapRenderer creates a new heatmap renderer with the given configuration
func NewHeatmapRenderer(config RenderConfig) (*HeatmapRenderer, error) {
	// Set defaults for zero values
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &HeatmapRenderer{config: config}, nil
}

// Render creates an image of the heatmap data, with annotations when a
// font is configured.
func (r *HeatmapRenderer) Render(data *HeatmapData) (*image.RGBA, error) {
	// Create image with space for borders
	fullWidth := data.Width + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := data.Height + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	// Fill with white background
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	// Define heatmap area (1:1 mapping)
	heatmapArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+data.Width,
		r.config.BorderConfig.Top+data.Height,
	)

	// Update or create color map
	bounds := data.BoundsTracker.Current()
	if r.colorMap == nil {
		r.colorMap = NewColorMapperWithSize(r.config.ColorTheme, bounds, r.config.ColorMapSize)
	} else {
		r.colorMap.UpdateBounds(bounds)
	}

	if r.config.FontPath != "" {
		ann, err := newAnnotator(annotatorConfig{
			TimeFormat:     r.config.TimeFormat,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			FontPath:       r.config.FontPath,
			FontSize:       r.config.FontSize,
			Borders:        r.config.BorderConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		// First draw annotations
		if err = ann.annotate(img, data); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	// Then render heatmap data (overwriting any overlapping annotations)
	r.renderHeatmap(img, heatmapArea, data)

	return img, nil
}

// renderHeatmap draws the actual amplitude data using the color map
func (r *HeatmapRenderer) renderHeatmap(img *image.RGBA, area image.Rectangle, data *HeatmapData) {
	for y, row := range data.Rows {
		imgY := area.Min.Y + y
		for x, level := range row {
			imgX := area.Min.X + x
			if level != nil {
				img.Set(imgX, imgY, r.colorMap.GetColor(level))
			}
		}
	}
}

// Internal annotator implementation
type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontPath       string
	FontSize       float64
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, data *HeatmapData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawSubcarrierScale(img, data); err != nil {
		return fmt.Errorf("drawing subcarrier scale: %w", err)
	}
	if err := a.drawTimeScale(img, data); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, data); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawSubcarrierScale(img *image.RGBA, data *HeatmapData) error {
	step := calculateNiceSubcarrierStep(data.Width)

	// Get actual font height in pixels
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// Center the labels in the top border
	textY := a.config.Borders.Top - fontHeight/2

	for sc := 0; sc < data.Width; sc += step {
		x := a.config.Borders.Left + sc

		// Draw tick mark
		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		// Format and draw subcarrier label
		label := fmt.Sprintf("%d", sc)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing subcarrier label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, data *HeatmapData) error {
	if data.Height == 0 {
		return nil
	}

	duration := data.TimestampEnd.Sub(data.TimestampStart)
	rowStep := max(data.Height/8, 1) // Aim for about 8 time labels

	// Get font metrics once
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for y := 0; y < data.Height; y += rowStep {
		imgY := y + a.config.Borders.Top

		// Draw tick mark
		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		// Center text vertically relative to the tick mark position
		textY := imgY + fontHeight/2 - metrics.Descent.Round()

		// Rows are evenly spread across the capture interval
		rowTime := data.TimestampStart.Add(duration * time.Duration(y) / time.Duration(data.Height))
		label := rowTime.In(a.config.Location).Format(a.config.TimeFormat)
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, data *HeatmapData) error {
	var sb strings.Builder

	bounds := data.BoundsTracker.Current()

	sb.WriteString(fmt.Sprintf("Subcarriers: %d", data.Width))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Frames: %d", data.Height))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		data.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		data.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Range: %.1fdB - %.1fdB", bounds.Min, bounds.Max))

	// Calculate text position in bottom border
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	// Center text vertically in bottom border
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	// Draw info
	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

// calculateNiceSubcarrierStep picks a power-of-two label spacing that
// keeps the scale to around 8 labels.
func calculateNiceSubcarrierStep(width int) int {
	steps := []int{1, 2, 4, 8, 16, 32, 64}
	for _, step := range steps {
		if width/step <= 8 {
			return step
		}
	}
	return 64
}
