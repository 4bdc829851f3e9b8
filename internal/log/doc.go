// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// The SecureHandler masks:
//   - attributes whose key names a secret (cookie, authorization, token, ...)
//   - string values that look like credentials (JWTs, bearer tokens, keys)
//   - secret query parameters inside logged URLs, so a crawled link such as
//     https://example.com/reset?token=abc is logged as
//     https://example.com/reset?token=***REDACTED***
//
// Terminal output goes through charm.land/log, which implements slog.Handler;
// NewSecureJSONLogger writes slog JSON for the web server.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//	logger.Info("fetched", "url", "https://example.com/?token=abc")
//	slog.SetDefault(logger)
package log
