package types

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courseledger.dev/cld/internal/identity"
)

// Entrypoint names a state-mutating contract operation carried by a
// transaction.
type Entrypoint string

const (
	TxRegisterUser         Entrypoint = "register-user"
	TxCreateCourse         Entrypoint = "create-course"
	TxEnrollInCourse       Entrypoint = "enroll-in-course"
	TxAddCourseMaterial    Entrypoint = "add-course-material"
	TxUpdateCourseProgress Entrypoint = "update-course-progress"
	TxDeactivateCourse     Entrypoint = "deactivate-course"
)

// Transaction is the inner, signed body of a ledger submission. The nonce
// doubles as the transaction identifier in receipts and the transaction log.
type Transaction struct {
	Entrypoint Entrypoint      `json:"entrypoint"`
	Nonce      string          `json:"nonce"`     // UUID assigned at build time
	Timestamp  time.Time       `json:"timestamp"` // Client wall-clock, informational only
	Params     json.RawMessage `json:"params"`
}

// NewTransaction marshals params into a transaction body for the given
// entrypoint and assigns a fresh nonce.
func NewTransaction(entrypoint Entrypoint, params any) (*Transaction, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", entrypoint, err)
	}
	return &Transaction{
		Entrypoint: entrypoint,
		Nonce:      uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Params:     raw,
	}, nil
}

// Sign marshals the transaction and wraps it in a SignedTransaction carrying
// the signer's public key. The caller's principal is derived from that key,
// never from the params.
func (t *Transaction) Sign(id *identity.Identity) (*SignedTransaction, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	return &SignedTransaction{
		Tx:        raw,
		Signature: id.Sign(raw),
		PublicKey: id.PublicKey(),
	}, nil
}

// SignedTransaction is the envelope submitted to the runtime: the marshaled
// transaction bytes, an ed25519 signature over them, and the signer's key.
type SignedTransaction struct {
	Tx        []byte            `json:"tx"`
	Signature []byte            `json:"signature"`
	PublicKey ed25519.PublicKey `json:"public_key"`
}

// Verify checks the signature over the transaction bytes.
func (s *SignedTransaction) Verify() bool {
	if len(s.PublicKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(s.PublicKey, s.Tx, s.Signature)
}

// Sender returns the principal derived from the signer's public key.
func (s *SignedTransaction) Sender() Principal {
	return Principal(hex.EncodeToString(s.PublicKey))
}

// GetTransaction unmarshals the inner transaction body.
func (s *SignedTransaction) GetTransaction() (*Transaction, error) {
	var tx Transaction
	if err := json.Unmarshal(s.Tx, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode inner tx: %w", err)
	}
	return &tx, nil
}
