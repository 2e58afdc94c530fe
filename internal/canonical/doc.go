// Package canonical produces deterministic JSON for trace payloads.
//
// Any value encoding/json accepts can be canonicalized. The value is first
// encoded with encoding/json (so struct tags and json.Marshaler are
// honoured), then re-emitted with:
//
//   - object keys sorted by UTF-16 code units (RFC 8785 order)
//   - strings NFC normalized, no HTML escaping, U+2028/U+2029 left literal
//   - numbers kept exactly as encoding/json printed them
//
// Two values that encode to the same canonical bytes are treated as equal by
// the journal and by the harness mutation guard.
package canonical
