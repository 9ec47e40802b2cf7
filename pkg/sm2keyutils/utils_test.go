package sm2keyutils

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

func TestDeriveSigningIdentityIsDeterministic(t *testing.T) {
	first, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	second, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Equal(t, first.PrivateKeyBytes(), second.PrivateKeyBytes())
	assert.Equal(t, first.Address(), second.Address())
	assert.True(t, first.Equal(second))
}

func TestDeriveSigningIdentityIsSaltSeparated(t *testing.T) {
	base, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	otherIdentifier, err := DeriveSigningIdentity("pw1", "2")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	otherSecret, err := DeriveSigningIdentity("pw2", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.False(t, base.Equal(otherIdentifier))
	assert.False(t, base.Equal(otherSecret))
	assert.NotEqual(t, base.Address(), otherIdentifier.Address())
}

func TestDeriveSigningIdentityRejectsEmptyInput(t *testing.T) {
	_, err := DeriveSigningIdentity("", "1")
	assert.True(t, errorcode.IsDerivationError(err))

	_, err = DeriveSigningIdentity("pw1", "")
	assert.True(t, errorcode.IsDerivationError(err))
}

func TestDeriveSigningIdentityUsesInputsAsGiven(t *testing.T) {
	padded, err := DeriveSigningIdentity(" pw1", " 1 ")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	plain, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.NotEqual(t, plain.Address(), padded.Address())

	blank, err := DeriveSigningIdentity("  ", "  ")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Regexp(t, regexp.MustCompile("^0x[0-9a-f]{40}$"), blank.Address())
}

func TestAddressFormat(t *testing.T) {
	identity, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Regexp(t, regexp.MustCompile("^0x[0-9a-f]{40}$"), identity.Address())
	assert.Equal(t, identity.Address(), AddressFromPublicKey(identity.PublicKey()))
}

func TestSignAndVerify(t *testing.T) {
	identity, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	msg := []byte("grant read to 0xabc")
	sig, err := identity.Sign(msg)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.True(t, VerifySignature(identity.PublicKey(), msg, sig))
	assert.False(t, VerifySignature(identity.PublicKey(), []byte("grant write to 0xabc"), sig))

	identity.Wipe()
	_, err = identity.Sign(msg)
	assert.Error(t, err)
}

func TestPublicKeyPEMRoundTrip(t *testing.T) {
	identity, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	pubKeyPem, err := identity.PublicKeyPEM()
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	parsed, err := ParsePublicKeyPEM(pubKeyPem)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	assert.Zero(t, identity.PublicKey().X.Cmp(parsed.X))
	assert.Zero(t, identity.PublicKey().Y.Cmp(parsed.Y))
	assert.Equal(t, identity.Address(), AddressFromPublicKey(parsed))

	_, err = ParsePublicKeyPEM([]byte("not a key"))
	assert.Error(t, err)
}

func TestWipeWhileSigning(t *testing.T) {
	identity, err := DeriveSigningIdentity("pw1", "1")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := 0; k < 20; k++ {
				sig, err := identity.Sign([]byte("op"))
				if err == nil {
					assert.True(t, VerifySignature(identity.PublicKey(), []byte("op"), sig))
				}
			}
		}()
	}
	identity.Wipe()
	wg.Wait()

	_, err = identity.Sign([]byte("op"))
	assert.Error(t, err)
	assert.Equal(t, make([]byte, DerivationKeyLength), identity.PrivateKeyBytes())
}
