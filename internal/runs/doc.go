// Package runs persists sampling run history in SQLite.
//
// Every runplate or move request the daemon accepts is recorded with
// its well selection and timing parameters, then updated as the run
// moves through its lifecycle. History survives daemon restarts and is
// surfaced through the CLI.
package runs
