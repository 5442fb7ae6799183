package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromCLI(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Config
	}{
		{
			name: "import defaults the name to the log file",
			args: []string{"import", "-log", "logs/2018-06-03 evening.csv", "-unit", "mi"},
			want: Config{Command: CommandImport, DBPath: "rides.db", LogPath: "logs/2018-06-03 evening.csv", Name: "2018-06-03 evening", Unit: "mi"},
		},
		{
			name: "list",
			args: []string{"LIST", "-db", "/tmp/r.db", "-verbose"},
			want: Config{Command: CommandList, DBPath: "/tmp/r.db", Unit: "mm", Verbose: true},
		},
		{
			name: "summary of an imported ride",
			args: []string{"summary", "-ride", "6f1c6a4e-2f43-4c1b-9f5a-3c2a1d0e9b8a"},
			want: Config{Command: CommandSummary, DBPath: "rides.db", RideID: "6f1c6a4e-2f43-4c1b-9f5a-3c2a1d0e9b8a", Unit: "mm"},
		},
		{
			name: "chart appends png extension",
			args: []string{"chart", "-log", "ride.csv", "-o", "out/ride"},
			want: Config{Command: CommandChart, DBPath: "rides.db", LogPath: "ride.csv", Unit: "mm", OutputFile: "out/ride.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewConfigFromCLI(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *c)
		})
	}
}

func TestNewConfigFromCLI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no command", nil, "command is required"},
		{"flag first", []string{"-db", "x.db"}, "command is required"},
		{"unknown command", []string{"export"}, "invalid command: export"},
		{"import without log", []string{"import"}, "log path is required"},
		{"summary without source", []string{"summary"}, "either a log path or a ride id is required"},
		{"both sources", []string{"summary", "-log", "a.csv", "-ride", "x"}, "mutually exclusive"},
		{"chart without output", []string{"chart", "-log", "a.csv"}, "output file is required"},
		{"bad unit", []string{"summary", "-log", "a.csv", "-unit", "xx"}, "invalid unit code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigFromCLI(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
