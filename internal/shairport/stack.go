package shairport

import (
	"context"
	"errors"
	"strings"

	"github.com/robertmayen/airplay-wyse/internal/execx"
)

// ServiceUnit is the receiver daemon's systemd unit.
const ServiceUnit = "shairport-sync.service"

// Stack reports how the installed shairport-sync binary was built.
type Stack struct {
	HasAirPlay2 bool
	HasSoxr     bool
}

// Probe asks shairport-sync for its version/feature string. A missing or
// failing binary reports no capabilities; the caller decides whether that is
// fatal.
func Probe(ctx context.Context) Stack {
	out, err := execx.Output(ctx, 0, "shairport-sync", "-V")
	if err != nil {
		// some builds print the banner to stderr and exit non-zero
		var cmdErr *execx.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr != "" {
			out = cmdErr.Stderr
		} else {
			return Stack{}
		}
	}
	return parseStack(out)
}

func parseStack(banner string) Stack {
	return Stack{
		HasAirPlay2: strings.Contains(banner, "AirPlay2"),
		HasSoxr:     strings.Contains(strings.ToLower(banner), "soxr"),
	}
}
