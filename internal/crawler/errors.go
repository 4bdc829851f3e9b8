package crawler

import "errors"

var (
	// ErrInvalidSeed is returned when the seed URL cannot be parsed or has no host.
	ErrInvalidSeed = errors.New("invalid seed URL")

	// ErrInvalidMaxLinks is returned when the discovery cap is not positive.
	ErrInvalidMaxLinks = errors.New("max links must be positive")

	// ErrSeedUnreachable is returned when the seed page itself cannot be fetched.
	ErrSeedUnreachable = errors.New("failed to fetch seed URL")

	// ErrUnexpectedStatus is returned by the fetcher for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)
