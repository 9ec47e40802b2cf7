package bcao

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/internal/utils/idutils"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

// OperationKind names a mutating ledger function.
type OperationKind string

const (
	OpRegisterCounterparty OperationKind = "registerCounterparty"
	OpRegisterHolder       OperationKind = "registerHolder"
	OpEnroll               OperationKind = "enroll"
	OpEvaluate             OperationKind = "evaluate"
	OpRequestPermission    OperationKind = "requestPermission"
	OpGrantPermission      OperationKind = "grantPermission"
	OpRevokePermission     OperationKind = "revokePermission"
)

// Operation is the unsigned body of a ledger submission.
type Operation struct {
	ID        string                 `json:"id"`
	Kind      OperationKind          `json:"kind"`
	Signer    string                 `json:"signer"`           // Address of the signing identity
	Target    string                 `json:"target,omitempty"` // Record address the operation acts on, if any
	Args      map[string]interface{} `json:"args,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SignedOperation is an operation together with the signer's SM2 signature over its canonical JSON payload.
type SignedOperation struct {
	Operation Operation `json:"-"`
	Payload   []byte    `json:"payload"`
	Signature []byte    `json:"signature"`
	PublicKey []byte    `json:"publicKey"` // PEM
}

// NewOperation fills in a fresh operation ID and the current time.
func NewOperation(kind OperationKind, signer string, target string, args map[string]interface{}) (*Operation, error) {
	id, err := idutils.GenerateOperationID()
	if err != nil {
		return nil, err
	}

	return &Operation{
		ID:        id,
		Kind:      kind,
		Signer:    signer,
		Target:    target,
		Args:      args,
		Timestamp: time.Now().UTC(),
	}, nil
}

// SignOperation serializes the operation and signs it with the identity.
func SignOperation(identity *sm2keyutils.SigningIdentity, op *Operation) (*SignedOperation, error) {
	if op.Signer != identity.Address() {
		return nil, errors.Errorf("operation signer '%v' does not match the signing identity", op.Signer)
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return nil, errors.Wrap(err, "cannot serialize ledger operation")
	}

	sig, err := identity.Sign(payload)
	if err != nil {
		return nil, err
	}

	pubKeyPem, err := identity.PublicKeyPEM()
	if err != nil {
		return nil, err
	}

	return &SignedOperation{
		Operation: *op,
		Payload:   payload,
		Signature: sig,
		PublicKey: pubKeyPem,
	}, nil
}

// VerifySignedOperation checks the signature, that the public key owns the signer address and that the payload
// matches the attached operation. It returns the decoded operation.
func VerifySignedOperation(signedOp *SignedOperation) (*Operation, error) {
	pubKey, err := sm2keyutils.ParsePublicKeyPEM(signedOp.PublicKey)
	if err != nil {
		return nil, err
	}

	if !sm2keyutils.VerifySignature(pubKey, signedOp.Payload, signedOp.Signature) {
		return nil, errors.New("invalid operation signature")
	}

	var op Operation
	if err := json.Unmarshal(signedOp.Payload, &op); err != nil {
		return nil, errors.Wrap(err, "cannot parse operation payload")
	}

	if op.Signer != sm2keyutils.AddressFromPublicKey(pubKey) {
		return nil, errors.New("operation signer does not own the public key")
	}

	return &op, nil
}
