package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Signer produces deterministic HMAC-SHA256 signatures over canonical payload
// bytes. Receivers recompute the same canonical form to verify.
//
// An empty secret is legal and degrades to an HMAC with an empty key; such
// endpoints get integrity but no authenticity, which is an accepted non-goal
// for endpoints that opt out of secrets.
type Signer struct{}

func NewSigner() Signer { return Signer{} }

// Canonicalize serializes a payload to its byte-stable signing form: JSON with
// object keys sorted (map marshaling order), no extraneous whitespace, and
// HTML escaping disabled so "/", "<", ">" and "&" pass through verbatim.
func (Signer) Canonicalize(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	// Encoder appends a trailing newline; the canonical form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign computes the lowercase hex HMAC-SHA256 of the canonical payload under
// secret. Identical payload and secret always yield the identical signature.
func (s Signer) Sign(payload any, secret string) (string, error) {
	canonical, err := s.Canonicalize(payload)
	if err != nil {
		return "", err
	}
	return s.SignBytes(canonical, secret), nil
}

// SignBytes signs pre-canonicalized bytes.
func (Signer) SignBytes(canonical []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature in constant time.
func (s Signer) Verify(payload any, secret, signature string) bool {
	expected, err := s.Sign(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
