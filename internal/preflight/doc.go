// Package preflight provides readiness checks for the device links and
// filesystem paths the daemon depends on.
//
// The daemon runs these at startup and refuses to start when a required
// check fails, so a missing serial adapter or unwritable readings
// directory is reported before a run is accepted. Checks for mocked
// device links are skipped.
package preflight
