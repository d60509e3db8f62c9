// Package calibration converts raw differential electrode signals into
// metabolite concentrations.
//
// Each metabolite is measured as the difference between two electrode
// channels. The engine holds a gain and offset per metabolite, seeded
// with factory defaults, and recomputes the gain from a window of raw
// readings against a known standard during calibration.
package calibration
