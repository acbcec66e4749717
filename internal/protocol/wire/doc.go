// Package wire owns one framed byte-stream connection.
//
// Ownership boundary:
// - length-prefixed frame send/receive over a net.Conn
// - I/O failure classification into Kind
// - bounded retry/backoff for timeouts and partial I/O
// - exactly-once close
//
// A Wire does not interpret payloads; see internal/protocol/codec.
package wire
