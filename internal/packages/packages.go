// Package packages bootstraps the Debian packages the receiver stack needs.
package packages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robertmayen/airplay-wyse/internal/execx"
)

// installTimeout bounds a single apt operation; package installs can pull a
// lot on first run.
const installTimeout = 10 * time.Minute

var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// EnsureInstalled installs every named package that dpkg does not already
// know. A failing install is fatal: the packages are load-bearing for the
// receiver stack.
func EnsureInstalled(ctx context.Context, names ...string) error {
	var missing []string
	for _, name := range names {
		if installed(ctx, name) {
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return nil
	}

	slog.Info("packages: installing", "packages", missing)
	if err := execx.RunEnv(ctx, installTimeout, aptEnv, "apt-get", "update", "-y"); err != nil {
		return fmt.Errorf("packages: apt-get update: %w", err)
	}
	args := append([]string{"install", "-y"}, missing...)
	if err := execx.RunEnv(ctx, installTimeout, aptEnv, "apt-get", args...); err != nil {
		return fmt.Errorf("packages: apt-get install: %w", err)
	}
	return nil
}

func installed(ctx context.Context, name string) bool {
	_, err := execx.Output(ctx, 0, "dpkg", "-s", name)
	return err == nil
}
