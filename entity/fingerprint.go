package entity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"unicode/utf8"
)

// CanonicalJSON re-serialises a JSON document with object keys sorted so that
// documents differing only in key order or whitespace are byte-equal. Numbers
// keep their literal text. Input that is not valid UTF-8 JSON is returned
// trimmed, so it only ever equals itself.
func CanonicalJSON(body []byte) []byte {
	if !utf8.Valid(body) {
		return bytes.TrimSpace(body)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return bytes.TrimSpace(body)
	}
	if _, err := dec.Token(); err != io.EOF {
		return bytes.TrimSpace(body)
	}

	canonical, err := json.Marshal(v)
	if err != nil {
		return bytes.TrimSpace(body)
	}

	return canonical
}

// RequestFingerprint is the hex SHA-256 of the canonical form of body.
func RequestFingerprint(body []byte) string {
	sum := sha256.Sum256(CanonicalJSON(body))
	return hex.EncodeToString(sum[:])
}
