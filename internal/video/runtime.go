// Package video drives the external ffmpeg and ffprobe tools that read the source
// footage and burn the HUD bar into the output video
package video

import (
	"errors"
	"fmt"
	"os/exec"
)

const (
	FFmpeg  = "ffmpeg"
	FFprobe = "ffprobe"
)

// RuntimeError is returned when an external tool is missing or cannot be run
type RuntimeError struct {
	msg string
}

func NewRuntimeError(msg string) *RuntimeError {
	return &RuntimeError{msg}
}

func (e *RuntimeError) Error() string {
	return e.msg
}

// FindRuntime looks up the binary in PATH, an absolute or relative path is checked as is
func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", NewRuntimeError(fmt.Sprintf("`%s` not found in PATH", runtime))
		}
		return "", NewRuntimeError(fmt.Sprintf("failed to locate `%s`: %s", runtime, err.Error()))
	}

	return binPath, nil
}
