package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultSignedFields is the field order signed on every payment request.
var DefaultSignedFields = []string{"total_amount", "transaction_uuid", "product_code"}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the base64 HMAC-SHA256 of message.
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func (s *Signer) Verify(message, signature string) bool {
	return hmac.Equal([]byte(s.Sign(message)), []byte(signature))
}

// SignedMessage renders "name=value" pairs joined by commas, in names order.
func SignedMessage(names []string, fields map[string]string) (string, error) {
	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			return "", fmt.Errorf("signed field %q not present", name)
		}
		parts = append(parts, name+"="+v)
	}
	return strings.Join(parts, ","), nil
}
