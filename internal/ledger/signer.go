package ledger

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
)

// #region hmac-signer
// HMACSigner is a local signing collaborator keyed with a shared secret.
// Production deployments inject an HSM- or service-backed implementation;
// this one serves single-site installs and the replay/verify tooling.
type HMACSigner struct {
	Identity string
	key      []byte
}

// NewHMACSigner creates a signer for the given identity and key.
func NewHMACSigner(identity string, key []byte) (*HMACSigner, error) {
	if identity == "" {
		return nil, errors.New("ledger: empty signer identity")
	}
	if len(key) == 0 {
		return nil, errors.New("ledger: empty signing key")
	}
	return &HMACSigner{Identity: identity, key: append([]byte(nil), key...)}, nil
}

// Sign implements Signer.
func (s *HMACSigner) Sign(hash []byte) (string, []byte, error) {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(hash)
	return s.Identity, mac.Sum(nil), nil
}

// Verify implements Verifier. Only the signer's own identity verifies.
func (s *HMACSigner) Verify(hash []byte, identity string, signature []byte) bool {
	if identity != s.Identity {
		return false
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(hash)
	return hmac.Equal(mac.Sum(nil), signature)
}

// #endregion hmac-signer
