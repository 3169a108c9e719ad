package services

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const codeKeySize = 32

// CodePayload is what a scanned QR code decodes to.
type CodePayload struct {
	UUID      string `json:"uuid"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds at mint time
}

// CodeCipher obfuscates scavenger QR payloads by XOR-ing the JSON bytes
// against a repeating key derived from a shared secret.
//
// This is NOT encryption. The key is a static shared secret and the scheme
// offers no confidentiality or integrity guarantee; it only keeps the
// location UUID out of casual sight in the QR image. Anything needing real
// tamper resistance must use an authenticated cipher instead. The freshness
// window checked by the claim service is the actual replay defense.
type CodeCipher struct {
	key []byte
}

func NewCodeCipher(secret string) *CodeCipher {
	// Pad or truncate the secret to exactly 32 bytes
	key := make([]byte, codeKeySize)
	for i := range key {
		key[i] = '0'
	}
	copy(key, secret)
	return &CodeCipher{key: key}
}

// Encode obfuscates a payload into a URL-safe base64 string suitable for a
// QR image.
func (c *CodeCipher) Encode(payload CodePayload) (string, error) {
	plain, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal code payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(c.xor(plain)), nil
}

// Decode reverses Encode. Every failure mode (bad base64, garbage bytes,
// malformed JSON) collapses into a single error so callers surface one
// "invalid code format" response without leaking which step failed.
func (c *CodeCipher) Decode(encoded string) (*CodePayload, error) {
	if encoded == "" {
		return nil, errors.New("empty code")
	}

	// Accept both padded and unpadded URL-safe base64; clients are not
	// consistent about trailing '='.
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	plain := c.xor(data)
	if !utf8.Valid(plain) {
		return nil, errors.New("decoded bytes are not valid UTF-8")
	}

	var payload CodePayload
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}
	if payload.UUID == "" || payload.Timestamp == 0 {
		return nil, errors.New("payload missing uuid or timestamp")
	}

	return &payload, nil
}

// xor is its own inverse: applying it twice restores the input.
func (c *CodeCipher) xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ c.key[i%len(c.key)]
	}
	return out
}
