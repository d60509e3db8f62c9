// Package potentiostat reads the multi-channel sensor stream from the SIX
// potentiostat: fixed-length binary packages over serial, decoded into
// per-channel readings. Malformed packages are dropped and counted; a run
// of consecutive failures kills the stream.
package potentiostat
