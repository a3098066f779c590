// Package probes provides the built-in probe registry.
package probes

import (
	"github.com/jandubois/clinicprobe/internal/probe"
	"github.com/jandubois/clinicprobe/internal/probes/filerelocation"
	"github.com/jandubois/clinicprobe/internal/probes/healthupload"
	"github.com/jandubois/clinicprobe/internal/probes/patientsummary"
)

// GetAllDescriptions returns descriptions of all built-in probes.
func GetAllDescriptions() []probe.Description {
	return []probe.Description{
		filerelocation.GetDescription(),
		healthupload.GetDescription(),
		patientsummary.GetDescription(),
	}
}

// Names returns the subcommand names of all built-in probes.
func Names() []string {
	descs := GetAllDescriptions()
	names := make([]string, len(descs))
	for i, d := range descs {
		names[i] = d.Subcommand
	}
	return names
}
