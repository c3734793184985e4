package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader is the header Coinbase Commerce signs webhook bodies into.
const SignatureHeader = "X-CC-Webhook-Signature"

var (
	// ErrSignatureInvalid is the parent of every signature failure.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	// ErrSignatureMissing is returned when the signature header is absent or blank.
	ErrSignatureMissing = fmt.Errorf("%w: signature header missing", ErrSignatureInvalid)
	// ErrSignatureMismatch is returned when the computed digest differs from the supplied one.
	ErrSignatureMismatch = fmt.Errorf("%w: signature does not match payload", ErrSignatureInvalid)
)

// Sign returns the hex encoded HMAC-SHA256 of body under secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks that signature is the HMAC-SHA256 of the exact raw body.
func VerifySignature(body []byte, signature, secret string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrSignatureMissing
	}

	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), supplied) {
		return ErrSignatureMismatch
	}
	return nil
}
