// Package canon produces canonical JSON (RFC 8785 style) for audit
// payloads and golden traces, so the same notification always serializes
// to the same bytes.
//
// Rules:
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC-normalized; only '"', '\\' and control characters escaped
//   - No insignificant whitespace
//   - Integers only; floats and null are rejected
package canon
