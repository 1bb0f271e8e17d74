package app

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath     string
	SessionID  int64
	OutputFile string
	Format     ImageFormat
	Theme      ColorTheme
	FontPath   string
	TimeZone   *time.Location

	SourceMAC string
	Channel   uint

	MinLevel *float64
	MaxLevel *float64

	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:   ImagePNG,
		Theme:    ClassicTheme,
		TimeZone: time.Local,
	}
}

func NewConfigFromCLI() (*Config, error) {
	c := NewConfig()

	var imageFormat, theme, timeZone string
	var minLevel, maxLevel float64
	flag.StringVar(&c.DBPath, "db", "", "Path to the session database file")
	flag.Int64Var(&c.SessionID, "s", 1, "Session ID")
	flag.StringVar(&c.OutputFile, "o", "", "Path to the output file")
	flag.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flag.StringVar(&theme, "theme", string(ClassicTheme), "Color theme. [classic, grayscale, jungle, thermal, marine]")
	flag.StringVar(&c.FontPath, "font", "", "Path to a TTF font used for annotations")
	flag.StringVar(&timeZone, "tz", "", "Timezone for the time scale, e.g. Australia/Sydney")
	flag.StringVar(&c.SourceMAC, "mac", "", "Only render frames from this source MAC")
	flag.UintVar(&c.Channel, "channel", 0, "Only render frames captured on this channel")
	flag.Float64Var(&minLevel, "min-level", 0, "Define a manual minimum amplitude in dB (format nn.n)")
	flag.Float64Var(&maxLevel, "max-level", 0, "Define a manual maximum amplitude in dB (format nn.n)")
	flag.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and subcarrier scales")
	flag.Parse()

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "min-level" {
			c.MinLevel = &minLevel
		}
		if f.Name == "max-level" {
			c.MaxLevel = &maxLevel
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.SessionID <= 0 {
		err = errors.New("session id is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if c.Channel > 255 {
		err = fmt.Errorf("invalid channel: %d", c.Channel)
	}

	if err == nil && timeZone != "" {
		if c.TimeZone, err = time.LoadLocation(timeZone); err != nil {
			err = fmt.Errorf("invalid timezone: %w", err)
		}
	}

	if err != nil {
		flag.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
