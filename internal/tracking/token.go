// Package tracking implements signed unsubscribe links. Every outbound
// email carries one; following it adds the address to the suppression
// list with no login or confirmation step in between.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadToken covers malformed, tampered, or mis-signed tokens.
var ErrBadToken = errors.New("invalid unsubscribe token")

// Token is the decoded payload of an unsubscribe link.
type Token struct {
	Email      string
	SequenceID string
	Step       int
}

// Signer mints and verifies unsubscribe tokens. Payloads are
// pipe-delimited and base64url-encoded, signed with HMAC-SHA256 so a
// recipient can only unsubscribe the address the link was minted for.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the data and sig path segments for an unsubscribe link.
func (s *Signer) Sign(t Token) (data, sig string) {
	payload := fmt.Sprintf("%s|%s|%d", t.Email, t.SequenceID, t.Step)
	data = base64.URLEncoding.EncodeToString([]byte(payload))
	sig = s.signature(data)
	return data, sig
}

// URL builds the full unsubscribe URL for a token.
func (s *Signer) URL(baseURL string, t Token) string {
	data, sig := s.Sign(t)
	return fmt.Sprintf("%s/u/%s/%s", strings.TrimRight(baseURL, "/"), data, sig)
}

// Verify checks the signature and decodes the payload.
func (s *Signer) Verify(data, sig string) (*Token, error) {
	if !hmac.Equal([]byte(s.signature(data)), []byte(sig)) {
		return nil, ErrBadToken
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrBadToken
	}
	parts := strings.Split(string(decoded), "|")
	if len(parts) != 3 {
		return nil, ErrBadToken
	}
	step, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, ErrBadToken
	}
	return &Token{Email: parts[0], SequenceID: parts[1], Step: step}, nil
}

func (s *Signer) signature(data string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}
