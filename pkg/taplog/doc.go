// Package taplog implements the deterministic request/response tap log.
//
// Unlike the operational slog output, the tap log is a write-only,
// append-style sink with a fixed, diff-friendly format: one block per
// request and one per response (or synthesized error response), each tagged
// with the connection id and an RFC3339 UTC timestamp. Header names are
// printed in lexicographic order so that two identical exchanges produce
// identical output.
//
// Redaction is applied here and only here: a header named in the redaction
// set is printed as "<redacted>" while the real value is still forwarded to
// the peer. Body previews are capped, decoded permissively (invalid byte
// sequences are replaced, never fatal), and marked when truncated or empty.
package taplog
