// Package daemon wires the device links, the sampling controller, the
// sensor pipeline, and run history into one long-running process.
//
// The daemon enforces single-instance execution with a lock file,
// runs preflight checks before accepting work, and watches udev for
// the configured serial adapters appearing or disappearing. All
// control flows in over the IPC socket.
package daemon
