package app

import (
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roman-kulish/ride-hud/internal/units"
)

const (
	CommandImport  Command = "import"
	CommandList    Command = "list"
	CommandSummary Command = "summary"
	CommandChart   Command = "chart"
)

// Command is a rideinfo subcommand
type Command string

var validCommands = map[Command]struct{}{
	CommandImport:  {},
	CommandList:    {},
	CommandSummary: {},
	CommandChart:   {},
}

type Config struct {
	Command    Command
	DBPath     string
	LogPath    string
	RideID     string
	Name       string
	Unit       string
	OutputFile string
	Verbose    bool
}

func NewConfig() *Config {
	return &Config{
		DBPath: "rides.db",
		Unit:   "mm",
	}
}

// NewConfigFromCLI parses "rideinfo <command> [flags]"
func NewConfigFromCLI(args []string) (*Config, error) {
	c := NewConfig()

	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return nil, errors.New("command is required. [import, list, summary, chart]")
	}

	c.Command = Command(strings.ToLower(args[0]))
	if _, ok := validCommands[c.Command]; !ok {
		return nil, fmt.Errorf("invalid command: %s", args[0])
	}

	fs := flag.NewFlagSet(string(c.Command), flag.ContinueOnError)
	fs.StringVar(&c.DBPath, "db", c.DBPath, "Path to the ride database")
	fs.StringVar(&c.LogPath, "log", "", "Path to a ride log (CSV)")
	fs.StringVar(&c.RideID, "ride", "", "ID of an imported ride")
	fs.StringVar(&c.Name, "name", "", "Name of the imported ride, defaults to the log file name")
	fs.StringVar(&c.Unit, "unit", c.Unit, "Unit conversion code. [mm, mi, im, ii]")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the chart image (PNG)")
	fs.BoolVar(&c.Verbose, "verbose", false, "Enable more verbose output")

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}

	var err error
	switch c.Command {
	case CommandImport:
		if c.LogPath == "" {
			err = errors.New("log path is required")
		}
	case CommandSummary, CommandChart:
		if c.LogPath == "" && c.RideID == "" {
			err = errors.New("either a log path or a ride id is required")
		} else if c.LogPath != "" && c.RideID != "" {
			err = errors.New("log path and ride id are mutually exclusive")
		} else if c.Command == CommandChart && c.OutputFile == "" {
			err = errors.New("output file is required")
		}
	}
	if err == nil {
		_, err = units.ParseCode(c.Unit)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	if c.Command == CommandImport && c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(c.LogPath), filepath.Ext(c.LogPath))
	}
	if c.Command == CommandChart && filepath.Ext(c.OutputFile) == "" {
		c.OutputFile += ".png"
	}

	return c, nil
}
