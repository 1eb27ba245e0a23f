// Package deploy installs the tool's systemd units from embedded copies, so
// the binary is self-contained and provisioning needs no repo checkout.
package deploy

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
)

// DefaultUnitDir is where locally-administered units live.
const DefaultUnitDir = "/etc/systemd/system"

//go:embed units/*.service
var unitFiles embed.FS

// InstallUnits writes every embedded unit into dir, atomically and in full.
// Returns the installed paths. The caller is responsible for the
// daemon-reload afterwards.
func InstallUnits(dir string) ([]string, error) {
	entries, err := fs.ReadDir(unitFiles, "units")
	if err != nil {
		return nil, fmt.Errorf("deploy: read embedded units: %w", err)
	}

	var installed []string
	for _, entry := range entries {
		data, err := unitFiles.ReadFile("units/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("deploy: read %s: %w", entry.Name(), err)
		}
		dest := filepath.Join(dir, entry.Name())
		if err := fsx.WriteFileAtomic(dest, data, 0644); err != nil {
			return nil, fmt.Errorf("deploy: install %s: %w", dest, err)
		}
		installed = append(installed, dest)
	}
	return installed, nil
}

// UnitNames lists the embedded unit file names.
func UnitNames() []string {
	entries, err := fs.ReadDir(unitFiles, "units")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
