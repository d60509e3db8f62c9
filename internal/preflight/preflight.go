package preflight

import (
	"context"

	"amuza/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Device checks are skipped when the corresponding link runs in mock
// mode.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	_ = ctx

	var results []Result

	results = append(results, CheckDirectoryAccess("Readings directory", cfg.Paths.ReadingsDir))
	results = append(results, CheckFreeSpace("Readings free space", cfg.Paths.ReadingsDir, MinReadingsFreeBytes))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if !cfg.Amuza.Mock {
		results = append(results, CheckDeviceNode("Fraction collector port", cfg.Amuza.Port))
	}
	if !cfg.Potentiostat.Mock {
		results = append(results, CheckDeviceNode("Potentiostat port", cfg.Potentiostat.Port))
	}

	return results
}

// Failed returns the subset of results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
