//go:build !windows

package host

import (
	"errors"
	"log/slog"
	"time"
)

type COMOptions struct {
	ProgID      string
	Templates   []string
	StartupWait time.Duration
	Visible     bool
}

// COM is unavailable off Windows; NewCOM always fails so callers fall back
// to the simulated host.
type COM struct{ Host }

func NewCOM(COMOptions, *slog.Logger) (*COM, error) {
	return nil, errors.New("COM host is only available on Windows")
}
