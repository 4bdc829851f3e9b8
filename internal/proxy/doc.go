// Package proxy routes crawler requests through a SOCKS5 proxy.
//
// A Client validates the proxy address, checks that the proxy speaks SOCKS5
// and builds *http.Client values whose connections are dialed through it.
// The crawler itself is unaware of the proxy; it only receives the client.
package proxy
