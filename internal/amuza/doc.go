// Package amuza speaks the AMUZA FC-90 fraction collector wire protocol:
// short "@"-prefixed commands and periodic "@q" status frames over a
// serial link. The byte protocol stays behind the Transport interface so
// the controller can run against real hardware or a mock.
package amuza
