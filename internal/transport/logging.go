package transport

import (
	applog "spectral/internal/log"
)

// LoggingTransport implements Transport by logging frame traffic at
// debug level. Useful as a sink when no network transport is enabled.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data at debug level. Never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("LoggingTransport: received %T", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
