package authreq

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid approver token")

// Token proves the resolving device completed its own local session. It is
// minted only after a session reaches the unlocked state and is bound to
// that device's fingerprint.
type Token struct {
	ID                string    `json:"id"`
	IdentityAnchor    string    `json:"anchor"`
	DeviceFingerprint string    `json:"device"`
	IssuedAt          time.Time `json:"issued_at"`
	Signature         string    `json:"sig"`
}

func tokenSignature(id, anchor, fingerprint string, issuedAt time.Time) string {
	raw, _ := json.Marshal(map[string]string{
		"id":        id,
		"anchor":    anchor,
		"device":    fingerprint,
		"issued_at": issuedAt.UTC().Format(time.RFC3339Nano),
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// MintToken issues a signed token for a device that just unlocked a session.
func MintToken(anchor, deviceFingerprint string) Token {
	id := uuid.NewString()
	issued := time.Now().UTC()
	return Token{
		ID:                id,
		IdentityAnchor:    anchor,
		DeviceFingerprint: deviceFingerprint,
		IssuedAt:          issued,
		Signature:         tokenSignature(id, anchor, deviceFingerprint, issued),
	}
}

// Verify checks the token's shape and signature.
func (t Token) Verify() error {
	if t.ID == "" || t.IdentityAnchor == "" || t.DeviceFingerprint == "" {
		return ErrInvalidToken
	}
	if t.Signature != tokenSignature(t.ID, t.IdentityAnchor, t.DeviceFingerprint, t.IssuedAt) {
		return ErrInvalidToken
	}
	return nil
}

// Encode serializes the token for storage on the request row.
func (t Token) Encode() string {
	raw, _ := json.Marshal(t)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeToken reverses Encode.
func DecodeToken(s string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, ErrInvalidToken
	}
	return t, nil
}
