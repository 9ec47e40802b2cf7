package sm2keyutils

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"sync"

	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/sm3"
	"golang.org/x/crypto/pbkdf2"
)

// Key stretching parameters. Every holder's identity depends on them: changing any of these values makes every
// existing wallet unrecoverable and must be handled as a migration.
const (
	DerivationIterations = 100000
	DerivationKeyLength  = 32
)

// SigningIdentity is an SM2 keypair regenerated from a holder's credentials. It lives only in memory. It is safe for
// concurrent use; `Wipe` waits for signatures in progress.
type SigningIdentity struct {
	mu      sync.RWMutex // Guards privKey.D
	privKey *sm2.PrivateKey
	address string
}

// DeriveSigningIdentity stretches the secret with PBKDF2-HMAC-SHA-256 using the identifier as the salt and uses the
// 32 derived bytes as the raw SM2 private scalar. The salt is fixed and public: the same
// credentials reproduce the same identity on any machine.
//
// Parameters:
//
//	the secret chosen by the holder
//	the holder's identifier
//
// Returns:
//
//	the signing identity
func DeriveSigningIdentity(secret string, identifier string) (*SigningIdentity, error) {
	if secret == "" {
		return nil, &errorcode.DerivationError{Reason: "secret cannot be empty"}
	}
	if identifier == "" {
		return nil, &errorcode.DerivationError{Reason: "identifier cannot be empty"}
	}

	derived := pbkdf2.Key([]byte(secret), []byte(identifier), DerivationIterations, DerivationKeyLength, sha256.New)
	if len(derived) != DerivationKeyLength {
		return nil, &errorcode.DerivationError{Reason: "key stretching primitive returned an unexpected length"}
	}

	d := new(big.Int).SetBytes(derived)
	n := sm2.P256Sm2().Params().N
	if d.Sign() == 0 || d.Cmp(n) >= 0 {
		return nil, &errorcode.DerivationError{Reason: "derived scalar is not a valid SM2 private key"}
	}

	privKey := privateKeyFromScalar(d)
	return &SigningIdentity{
		privKey: privKey,
		address: AddressFromPublicKey(&privKey.PublicKey),
	}, nil
}

// AddressFromPublicKey returns "0x" followed by the hex of the last 20 bytes of SM3(X || Y).
func AddressFromPublicKey(pubKey *sm2.PublicKey) string {
	buf := make([]byte, 64)
	pubKey.X.FillBytes(buf[:32])
	pubKey.Y.FillBytes(buf[32:])

	digest := sm3.Sm3Sum(buf)
	return "0x" + hex.EncodeToString(digest[len(digest)-20:])
}

// Address returns the ledger address bound to the identity.
func (i *SigningIdentity) Address() string {
	return i.address
}

// PublicKey returns the public half of the keypair.
func (i *SigningIdentity) PublicKey() *sm2.PublicKey {
	return &i.privKey.PublicKey
}

// PublicKeyPEM returns the PEM encoded public key.
func (i *SigningIdentity) PublicKeyPEM() ([]byte, error) {
	return PublicKeyToPEM(i.PublicKey())
}

// PrivateKeyBytes returns the 32-byte big-endian private scalar.
func (i *SigningIdentity) PrivateKeyBytes() []byte {
	i.mu.RLock()
	defer i.mu.RUnlock()

	buf := make([]byte, DerivationKeyLength)
	i.privKey.D.FillBytes(buf)
	return buf
}

// Equal reports whether two identities hold byte-identical keys.
func (i *SigningIdentity) Equal(other *SigningIdentity) bool {
	if i == nil || other == nil {
		return i == other
	}

	return bytes.Equal(i.PrivateKeyBytes(), other.PrivateKeyBytes())
}

// Sign signs msg with the identity's private key.
func (i *SigningIdentity) Sign(msg []byte) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.privKey.D.Sign() == 0 {
		return nil, errors.New("signing identity has been wiped")
	}

	sig, err := i.privKey.Sign(rand.Reader, msg, nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sign message")
	}

	return sig, nil
}

// Wipe zeroes the private scalar. The identity cannot sign afterwards.
func (i *SigningIdentity) Wipe() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.privKey.D.SetInt64(0)
}

// VerifySignature checks an SM2 signature produced by `SigningIdentity.Sign`.
func VerifySignature(pubKey *sm2.PublicKey, msg []byte, sig []byte) bool {
	return pubKey.Verify(msg, sig)
}
