package sm2keyutils

import (
	"encoding/pem"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/tjfoc/gmsm/sm2"
	"github.com/tjfoc/gmsm/x509"
)

const publicKeyPEMType = "PUBLIC KEY"

// privateKeyFromScalar builds an SM2 keypair from a private scalar already checked to lie in [1, n-1].
func privateKeyFromScalar(d *big.Int) *sm2.PrivateKey {
	c := sm2.P256Sm2()

	priv := new(sm2.PrivateKey)
	priv.PublicKey.Curve = c
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = c.ScalarBaseMult(d.Bytes())

	return priv
}

// ParsePublicKeyPEM parses a PEM encoded SM2 public key and rejects points that are not on curve P256Sm2.
func ParsePublicKeyPEM(pemBytes []byte) (*sm2.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("cannot parse SM2 public key: no '%v' PEM block found", publicKeyPEMType)
	}

	pubKey, err := x509.ParseSm2PublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "cannot parse SM2 public key")
	}
	if !sm2.P256Sm2().IsOnCurve(pubKey.X, pubKey.Y) {
		return nil, fmt.Errorf("cannot parse SM2 public key: the point is not on curve P256Sm2")
	}

	return pubKey, nil
}

// PublicKeyToPEM encodes an SM2 public key as a PEM block.
func PublicKeyToPEM(pubKey *sm2.PublicKey) ([]byte, error) {
	der, err := x509.MarshalSm2PublicKey(pubKey)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode SM2 public key")
	}

	return pem.EncodeToMemory(&pem.Block{Type: publicKeyPEMType, Bytes: der}), nil
}
