package transport

// Transport defines a generic interface for distributing registry
// snapshots or events to visualization front-ends. Implementations must
// be thread-safe; Send is called from the poller goroutine.
type Transport interface {
	Send(data any) error
	Close() error
}
