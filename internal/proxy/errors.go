package proxy

import "errors"

// Proxy connectivity errors.
var (
	// ErrNotSOCKS5 is returned when the proxy answers but does not speak
	// SOCKS5 without authentication.
	ErrNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrCannotConnect is returned when no TCP connection to the proxy can
	// be established.
	ErrCannotConnect = errors.New("cannot connect to proxy")

	// ErrTimeout is returned when the proxy does not answer in time.
	ErrTimeout = errors.New("timeout connecting to proxy")

	// ErrInvalidAddress is returned when the proxy address is not host:port.
	ErrInvalidAddress = errors.New("invalid proxy address format: expected host:port")
)

// Status is the result of checking a proxy.
type Status int

const (
	// StatusOK indicates a working SOCKS5 proxy.
	StatusOK Status = iota

	// StatusWrongType indicates the peer answered but is not SOCKS5.
	StatusWrongType

	// StatusCannotConnect indicates the TCP connection failed.
	StatusCannotConnect

	// StatusTimeout indicates the check ran out of time.
	StatusTimeout
)

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWrongType:
		return "wrong type (not SOCKS5)"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for this status, or nil if OK.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusWrongType:
		return ErrNotSOCKS5
	case StatusCannotConnect:
		return ErrCannotConnect
	case StatusTimeout:
		return ErrTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
