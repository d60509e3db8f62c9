// Package device defines the shared error taxonomy for hardware-facing
// components. Sentinel errors classify failures from the AMUZA link, the
// potentiostat stream, and the calibration engine so callers can decide
// between recovery, abort, and operator intervention.
package device
