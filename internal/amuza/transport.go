package amuza

// Transport carries commands to the collector and delivers the line-based
// replies it sends back. Implementations own the underlying link; Close
// must release it and cause Lines to stop producing.
type Transport interface {
	// Send writes a complete command, including its terminator.
	Send(command string) error
	// Lines yields complete reply lines as they arrive. The channel is
	// closed when the link drops or the transport is closed.
	Lines() <-chan string
	// Close releases the link. Idempotent.
	Close() error
}
