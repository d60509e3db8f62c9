// Package collector turns the raw sensor stream into calibrated
// samples.
//
// The collector consumes frames from the potentiostat stream, records
// them in the readings log, applies the calibration engine, and fans
// the resulting samples out to the registered sinks. It also keeps a
// trailing window of raw signals per metabolite so calibration can be
// run against live data.
package collector
