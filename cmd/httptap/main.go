// Httptap is an intercepting HTTP(S) proxy for observing traffic between a
// client and one upstream service.
//
// It terminates the client connection (optionally with TLS), prints every
// request and response to a deterministic tap log, and relays the traffic
// to the configured target. WebSocket upgrades are tunneled transparently.
//
// Usage:
//
//	# Forward localhost traffic to a backend
//	httptap run --target backend.internal:8080
//
//	# Run from a configuration file
//	httptap run --config /etc/httptap/config.yaml
//
//	# Inspect bodies of a TLS upstream without a trust store
//	httptap run --target https://api.example.com --insecure --include-bodies
//
//	# Show version information
//	httptap version
package main

func main() {
	Execute()
}
