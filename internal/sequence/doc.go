// Package sequence drives tray and well operations on the collector as a
// state machine: eject/insert transitions, RUNPLATE and MOVE sampling
// runs with timed sampling and buffer windows, and stop handling.
package sequence
