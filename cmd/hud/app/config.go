package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/ride-hud/internal/graphics"
	"github.com/roman-kulish/ride-hud/internal/hud"
	"github.com/roman-kulish/ride-hud/internal/overlay"
	"github.com/roman-kulish/ride-hud/internal/units"
	"github.com/roman-kulish/ride-hud/internal/video"
)

// anchorLayout is the start date layout, the same as the log timestamps without
// milliseconds and zone
const anchorLayout = "2006-01-02T15:04:05"

var zoneSuffix = regexp.MustCompile(`[+-]\d{4}$`)

// Seconds is a footage position in seconds, written as a plain number in YAML
type Seconds time.Duration

func (s *Seconds) UnmarshalYAML(value *yaml.Node) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(value.Value), 64)
	if err != nil {
		return fmt.Errorf("app.Seconds: failed to parse: %s", err)
	}
	if v < 0 {
		return fmt.Errorf("app.Seconds: negative value %v", v)
	}

	*s = Seconds(time.Duration(v * float64(time.Second)))
	return nil
}

func (s Seconds) MarshalYAML() (interface{}, error) {
	return s.Duration().Seconds(), nil
}

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

// Config represents the render configuration
type Config struct {
	Settings Settings     `yaml:"settings"`
	Log      LogConfig    `yaml:"log"`
	Video    VideoConfig  `yaml:"video"`
	Render   RenderConfig `yaml:"render"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	Workers  int    `yaml:"workers"`
}

// LogConfig selects the telemetry source, either a CSV log or a ride in the database
type LogConfig struct {
	Path      string `yaml:"path"`
	DBPath    string `yaml:"db"`
	RideID    string `yaml:"ride"`
	Unit      string `yaml:"unit"`
	StartDate string `yaml:"startDate"` // Log timestamp of the frame at the start second
}

// VideoConfig represents the footage and the output video
type VideoConfig struct {
	Input       string  `yaml:"input"`
	Output      string  `yaml:"output"`
	Orientation string  `yaml:"orientation"`
	Resolution  string  `yaml:"resolution"`
	StartSecond Seconds `yaml:"startSecond"`
	EndSecond   Seconds `yaml:"endSecond"`
	FPS         float64 `yaml:"fps"`
	Codec       string  `yaml:"codec"`
	Preset      string  `yaml:"preset"`
	FFmpeg      string  `yaml:"ffmpeg"`
	FFprobe     string  `yaml:"ffprobe"`
}

// RenderConfig represents the look of the HUD bar
type RenderConfig struct {
	IconDir      string             `yaml:"icons"`
	Font         string             `yaml:"font"`
	FontSize     float64            `yaml:"fontSize"`
	Padding      int                `yaml:"padding"`
	TextPosition graphics.RelPoint  `yaml:"textPosition"`
	UnitPosition graphics.RelPoint  `yaml:"unitPosition"`
	Dial         overlay.DialConfig `yaml:"dial"`
}

var validOrientations = map[hud.Orientation]struct{}{
	hud.Portrait:  {},
	hud.Landscape: {},
}

var validResolutions = map[hud.Resolution]struct{}{
	hud.Resolution1080: {},
	hud.Resolution720:  {},
}

var validLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func NewConfig() *Config {
	return &Config{
		Settings: Settings{
			LogLevel: "info",
			Workers:  runtime.NumCPU(),
		},
		Log: LogConfig{
			Unit: "mm",
		},
		Video: VideoConfig{
			Output:      "hud.mp4",
			Orientation: string(hud.Portrait),
			Resolution:  string(hud.Resolution1080),
			FPS:         hud.DefaultFPS,
			Codec:       video.DefaultCodec,
			Preset:      video.DefaultPreset,
			FFmpeg:      video.FFmpeg,
			FFprobe:     video.FFprobe,
		},
		Render: RenderConfig{
			IconDir:      "icons",
			TextPosition: overlay.DefaultTextPosition,
			UnitPosition: overlay.DefaultUnitPosition,
			Dial:         overlay.DefaultDial(),
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration file: %w", err)
	}
	defer f.Close()

	return decodeConfig(f)
}

func decodeConfig(r io.Reader) (*Config, error) {
	c := NewConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return c, nil
}

// NewConfigFromCLI builds the configuration from an optional YAML file given with -c and
// the command line flags. Flags set explicitly override values from the file.
func NewConfigFromCLI(args []string) (*Config, error) {
	fs := flag.NewFlagSet("hud", flag.ContinueOnError)

	var (
		configPath    string
		verbose       bool
		animatedSpeed bool
		cli           = NewConfig()
		startSecond   float64
		endSecond     float64
	)

	fs.StringVar(&configPath, "c", "", "Path to the YAML configuration file")
	fs.StringVar(&cli.Log.Path, "log", "", "Path to the ride log (CSV)")
	fs.StringVar(&cli.Log.DBPath, "db", "", "Path to the ride database, used with -ride instead of -log")
	fs.StringVar(&cli.Log.RideID, "ride", "", "ID of an imported ride")
	fs.StringVar(&cli.Log.Unit, "unit", cli.Log.Unit, "Unit conversion code. [mm, mi, im, ii]")
	fs.StringVar(&cli.Log.StartDate, "start-date", "", "Log timestamp of the frame at -start-second (2006-01-02T15:04:05[.000][-0700]), defaults to the first reading")
	fs.StringVar(&cli.Video.Input, "video", "", "Path to the footage")
	fs.StringVar(&cli.Video.Output, "o", cli.Video.Output, "Path to the output video")
	fs.StringVar(&cli.Video.Orientation, "orientation", cli.Video.Orientation, "Output orientation. [portrait, landscape]")
	fs.StringVar(&cli.Video.Resolution, "resolution", cli.Video.Resolution, "Output resolution. [1080, 720]")
	fs.Float64Var(&startSecond, "start-second", 0, "Second of the footage the output starts from")
	fs.Float64Var(&endSecond, "end-second", 0, "Second of the footage the output ends at, defaults to the end")
	fs.Float64Var(&cli.Video.FPS, "fps", cli.Video.FPS, "Output frame rate")
	fs.StringVar(&cli.Render.IconDir, "icons", cli.Render.IconDir, "Directory with the HUD icons")
	fs.StringVar(&cli.Render.Font, "font", "", "Path to a TrueType font, defaults to Go Regular")
	fs.IntVar(&cli.Settings.Workers, "workers", cli.Settings.Workers, "Number of goroutines rendering overlays")
	fs.BoolVar(&animatedSpeed, "animated-speed", false, "Render speed as a dial with a moving pointer")
	fs.BoolVar(&verbose, "verbose", false, "Enable more verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c := NewConfig()
	if configPath != "" {
		var err error
		if c, err = LoadConfig(configPath); err != nil {
			return nil, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log":
			c.Log.Path = cli.Log.Path
		case "db":
			c.Log.DBPath = cli.Log.DBPath
		case "ride":
			c.Log.RideID = cli.Log.RideID
		case "unit":
			c.Log.Unit = cli.Log.Unit
		case "start-date":
			c.Log.StartDate = cli.Log.StartDate
		case "video":
			c.Video.Input = cli.Video.Input
		case "o":
			c.Video.Output = cli.Video.Output
		case "orientation":
			c.Video.Orientation = cli.Video.Orientation
		case "resolution":
			c.Video.Resolution = cli.Video.Resolution
		case "start-second":
			c.Video.StartSecond = Seconds(time.Duration(startSecond * float64(time.Second)))
		case "end-second":
			c.Video.EndSecond = Seconds(time.Duration(endSecond * float64(time.Second)))
		case "fps":
			c.Video.FPS = cli.Video.FPS
		case "icons":
			c.Render.IconDir = cli.Render.IconDir
		case "font":
			c.Render.Font = cli.Render.Font
		case "workers":
			c.Settings.Workers = cli.Settings.Workers
		case "animated-speed":
			c.Render.Dial.Enabled = animatedSpeed
		case "verbose":
			if verbose {
				c.Settings.LogLevel = "debug"
			}
		}
	})

	if err := c.Validate(); err != nil {
		fs.Usage()
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration and normalises enumerated values
func (c *Config) Validate() error {
	c.Video.Orientation = strings.ToLower(c.Video.Orientation)
	c.Settings.LogLevel = strings.ToLower(c.Settings.LogLevel)

	switch {
	case c.Log.Path == "" && c.Log.DBPath == "":
		return errors.New("either a log file or a database with a ride id is required")
	case c.Log.Path != "" && c.Log.DBPath != "":
		return errors.New("log file and database are mutually exclusive")
	case c.Log.DBPath != "" && c.Log.RideID == "":
		return errors.New("ride id is required with a database")
	case c.Video.Input == "":
		return errors.New("video file is required")
	case c.Video.Output == "":
		return errors.New("output file is required")
	case c.Video.FPS <= 0:
		return fmt.Errorf("invalid frame rate: %v", c.Video.FPS)
	case c.Video.EndSecond != 0 && c.Video.EndSecond <= c.Video.StartSecond:
		return fmt.Errorf("end second %v is not after start second %v",
			c.Video.EndSecond.Duration().Seconds(), c.Video.StartSecond.Duration().Seconds())
	case c.Settings.Workers <= 0:
		return fmt.Errorf("invalid number of workers: %d", c.Settings.Workers)
	}

	if _, ok := validOrientations[hud.Orientation(c.Video.Orientation)]; !ok {
		return fmt.Errorf("invalid orientation: %s", c.Video.Orientation)
	}
	if _, ok := validResolutions[hud.Resolution(c.Video.Resolution)]; !ok {
		return fmt.Errorf("invalid resolution: %s", c.Video.Resolution)
	}
	if _, ok := validLogLevels[c.Settings.LogLevel]; !ok {
		return fmt.Errorf("invalid log level: %s", c.Settings.LogLevel)
	}
	if _, err := units.ParseCode(c.Log.Unit); err != nil {
		return err
	}
	if _, err := c.Anchor(); err != nil {
		return err
	}

	return nil
}

// Anchor parses the start date. The zero time means the first reading of the log.
// Timestamps are accepted with or without milliseconds and the zone suffix used by
// the log, e.g. "2018-06-03T18:02:43.262-0700" or "2018-06-03T18:02:43".
func (c *Config) Anchor() (time.Time, error) {
	s := strings.TrimSpace(c.Log.StartDate)
	if s == "" || s == "0" {
		return time.Time{}, nil
	}

	// fractional seconds are accepted after the seconds field even though the layout omits them
	if t, err := time.Parse(anchorLayout, s); err == nil {
		return t, nil
	}
	if zoneSuffix.MatchString(s) {
		if t, err := time.Parse(anchorLayout, s[:len(s)-len("-0700")]); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid start date '%s', expected %s with optional .000 and zone suffix", s, anchorLayout)
}
