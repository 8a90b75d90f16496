// Package upstream builds the shared HTTP client used for every forwarded
// request.
//
// The client is constructed exactly once at startup and is safe for
// unsynchronized concurrent use by all connection handlers. It speaks
// HTTP/1.1 only, never follows redirects (3xx responses pass through to the
// tapped client), never decompresses bodies, and carries no timeout: the
// absence of deadlines on upstream calls is an intentional property of the
// engine, not an omission.
//
// TLS policy is fixed at build time from configuration:
//
//   - strict (default): system trust roots plus any configured extra CA
//     bundles; a bundle that fails to load is skipped with a warning.
//   - insecure: any certificate and any handshake signature is accepted.
//     An SNI override is still honored in this mode.
//
// A configured client certificate/key pair enables mutual TLS. Key parsing
// tries PKCS#8 first and falls back to PKCS#1 RSA. Any failure to load the
// pair degrades to no client authentication with a warning; it never fails
// startup.
package upstream
