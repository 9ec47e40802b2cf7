package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tintun2602/eduwallet-sub000/internal/blobstore"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao/memorybcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

const (
	holderIdentifier = "1"
	holderSecret     = "pw1"
)

// testWorld is an in-memory authority with one university and one registered holder.
type testWorld struct {
	t             *testing.T
	ledger        *memorybcao.LedgerMemoryImpl
	blobs         *blobstore.MemoryStore
	authority     *AuthorityService
	identity      *IdentityService
	university    *sm2keyutils.SigningIdentity
	holderAddress string
	recordAddress string
}

func newTestWorld(t *testing.T, opts ...memorybcao.Option) *testWorld {
	ledger := memorybcao.NewLedgerMemoryImpl(opts...)
	blobs := blobstore.NewMemoryStore()

	w := &testWorld{
		t:          t,
		ledger:     ledger,
		blobs:      blobs,
		authority:  &AuthorityService{Gateway: ledger, BlobStore: blobs},
		identity:   &IdentityService{Gateway: ledger},
		university: mustDerive(t, "uni-secret", "uni-1"),
	}

	holder := mustDerive(t, holderSecret, holderIdentifier)
	w.holderAddress = holder.Address()
	holder.Wipe()

	ctx := context.Background()
	require.NoError(t, w.settle(w.authority.RegisterCounterparty(ctx, w.university, &record.Counterparty{Name: "University of Test", Country: "IT", ShortName: "UT"})))
	require.NoError(t, w.settle(w.authority.RegisterHolder(ctx, w.university, w.holderAddress, &record.Profile{
		Name:      "Ada",
		Surname:   "Lovelace",
		BirthDate: time.Date(1990, 12, 10, 0, 0, 0, 0, time.UTC),
		Country:   "UK",
	})))

	recordAddress, err := w.authority.ResolveRecordAddress(ctx, w.university, w.holderAddress)
	require.NoError(t, err)
	w.recordAddress = recordAddress

	return w
}

// settle confirms an authority operation (a no-op when the ledger confirms on its own) and waits for the outcome.
func (w *testWorld) settle(pending *bcao.PendingOperation, err error) error {
	require.NoError(w.t, err)
	w.ledger.Confirm(pending.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = pending.Wait(ctx)
	return err
}

func (w *testWorld) login() *Session {
	session, err := w.identity.Authenticate(context.Background(), holderIdentifier, holderSecret)
	require.NoError(w.t, err)
	return session
}

func mustDerive(t *testing.T, secret string, identifier string) *sm2keyutils.SigningIdentity {
	identity, err := sm2keyutils.DeriveSigningIdentity(secret, identifier)
	require.NoError(t, err)
	return identity
}

func waitTransition(t *testing.T, tr *Transition) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := tr.Wait(ctx)
	require.NotEqual(t, context.DeadlineExceeded, err)
	return err
}
