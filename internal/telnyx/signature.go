package telnyx

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSignature = "telnyx-signature-ed25519"
	HeaderTimestamp = "telnyx-timestamp"

	DefaultSignatureTolerance = 300 * time.Second
)

var (
	ErrInvalidPublicKey = errors.New("invalid Ed25519 public key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrTimestampExpired = errors.New("signature timestamp outside tolerance")
)

// Verifier checks webhook signatures against the carrier's public key.
// The signed payload is "<timestamp>|<raw body>".
type Verifier struct {
	publicKey ed25519.PublicKey
	tolerance time.Duration
}

// NewVerifier decodes a base64 Ed25519 public key. A non-positive tolerance uses the default window.
func NewVerifier(publicKeyB64 string, tolerance time.Duration) (*Verifier, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(publicKeyB64))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 encoding", ErrInvalidPublicKey)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidPublicKey, ed25519.PublicKeySize, len(decoded))
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}
	return &Verifier{publicKey: ed25519.PublicKey(decoded), tolerance: tolerance}, nil
}

// Verify validates the signature header and timestamp header for body at time now.
func (v *Verifier) Verify(body []byte, signatureB64, timestamp string, now time.Time) error {
	if signatureB64 == "" || timestamp == "" {
		return fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
	}

	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return ErrTimestampExpired
	}

	signature, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 encoding", ErrInvalidSignature)
	}

	if !ed25519.Verify(v.publicKey, SignedPayload(timestamp, body), signature) {
		return ErrInvalidSignature
	}
	return nil
}

// SignedPayload builds the bytes covered by the carrier's signature.
func SignedPayload(timestamp string, body []byte) []byte {
	payload := make([]byte, 0, len(timestamp)+1+len(body))
	payload = append(payload, timestamp...)
	payload = append(payload, '|')
	return append(payload, body...)
}
