package ledger

import (
	"errors"
	"fmt"
	"time"
)

// #region record
// Record is one immutable, hash-chained, externally-signed ledger entry.
// Once signature-verified and stored it is never mutated; the chain hash
// guarantees append-only ordering.
type Record struct {
	Seq         uint64
	ID          string
	Kind        string // payload discriminator, e.g. "gate_decision", "telemetry"
	Payload     []byte
	PayloadHash string // hex sha256 of Payload
	PrevHash    string // chain link; genesis records link to the empty hash
	Hash        string // hex sha256 over the canonical record preimage
	Signer      string
	Signature   []byte
	CreatedAt   time.Time
}

// #endregion record

// #region collaborators
// Signer is the injected signing collaborator. The ledger never implements
// identity or key handling itself.
type Signer interface {
	// Sign returns the signer identity and a signature over the record hash.
	Sign(hash []byte) (identity string, signature []byte, err error)
}

// Verifier checks a stored record's signature.
type Verifier interface {
	Verify(hash []byte, identity string, signature []byte) bool
}

// #endregion collaborators

// #region errors

// ErrSigningUnavailable: the signing collaborator failed. Fail closed; the
// payload is not stored and any depending decision is withheld.
var ErrSigningUnavailable = errors.New("ledger: signing unavailable")

// ErrChainIntegrity: a stored record fails hash or signature verification.
// Everything downstream of the broken link is unverifiable.
var ErrChainIntegrity = errors.New("ledger: chain integrity failure")

// IntegrityError identifies the first broken link in a verified range.
type IntegrityError struct {
	Seq    uint64
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: record seq %d: %s", ErrChainIntegrity, e.Seq, e.Detail)
}

func (e *IntegrityError) Unwrap() error { return ErrChainIntegrity }

// #endregion errors
