// Package outputs fans calibrated samples out to external sinks.
//
// Sinks implement the Output interface. The console sink prints
// human-readable lines for interactive runs; the MQTT sink publishes
// JSON payloads for downstream dashboards. Publishing is best effort
// and never blocks sample collection.
package outputs
