package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/internal/utils/idutils"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

// IdentityService authenticates holders by regenerating their signing identity from their credentials.
type IdentityService struct {
	Gateway bcao.ILedgerGateway
}

// Authenticate derives the holder's signing identity, resolves the record bound to it and reads the record once.
// Each call is one attempt; nothing is retried.
//
// Parameters:
//
//	the holder's identifier
//	the holder's secret
//
// Returns:
//
//	a session holding the identity and the record snapshot
func (s *IdentityService) Authenticate(ctx context.Context, identifier string, secret string) (*Session, error) {
	identity, err := sm2keyutils.DeriveSigningIdentity(secret, identifier)
	if err != nil {
		authenticationsTotal.WithLabelValues("derivation_error").Inc()
		return nil, err
	}

	state, err := readState(ctx, s.Gateway, bcao.QueryRecordAddress, identity.Address(), "")
	if err != nil {
		// Unknown identity, wrong secret and unreachable authority all look the same to the caller.
		log.WithError(err).Debug("cannot resolve the record of a derived identity")
		identity.Wipe()
		authenticationsTotal.WithLabelValues("rejected").Inc()
		return nil, errorcode.ErrorAuthentication
	}

	var recordAddress string
	if err = state.Decode("recordAddress", &recordAddress); err != nil || recordAddress == "" {
		identity.Wipe()
		authenticationsTotal.WithLabelValues("rejected").Inc()
		return nil, errorcode.ErrorAuthentication
	}

	snapshot, err := s.readSnapshot(ctx, identity, recordAddress)
	if err != nil {
		identity.Wipe()
		authenticationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	authenticationsTotal.WithLabelValues("accepted").Inc()
	log.WithField("recordAddress", recordAddress).Info("holder authenticated")

	return &Session{
		ID:        idutils.GenerateSessionID(),
		CreatedAt: time.Now(),
		identity:  identity,
		snapshot:  snapshot,
		gateway:   s.Gateway,
	}, nil
}

func (s *IdentityService) readSnapshot(ctx context.Context, identity *sm2keyutils.SigningIdentity, recordAddress string) (record.Snapshot, error) {
	snapshot := record.Snapshot{RecordAddress: recordAddress}

	state, err := readState(ctx, s.Gateway, bcao.QueryProfile, identity.Address(), recordAddress)
	if err != nil {
		return snapshot, errors.Wrap(err, "cannot read holder profile")
	}
	if err = state.Decode("profile", &snapshot.Profile); err != nil {
		return snapshot, err
	}

	state, err = readState(ctx, s.Gateway, bcao.QueryResults, identity.Address(), recordAddress)
	if err != nil {
		return snapshot, errors.Wrap(err, "cannot read holder results")
	}
	if err = state.Decode("results", &snapshot.Results); err != nil {
		return snapshot, err
	}

	return snapshot, nil
}

// Session is an authenticated holder. The signing identity lives only here and is wiped by `Close`.
// The record snapshot is read once at login and never changes.
type Session struct {
	ID        string
	CreatedAt time.Time

	identity *sm2keyutils.SigningIdentity
	snapshot record.Snapshot
	gateway  bcao.ILedgerGateway

	permissionsOnce sync.Once
	permissions     *PermissionLedger
}

// Identity returns the session's signing identity.
func (s *Session) Identity() *sm2keyutils.SigningIdentity {
	return s.identity
}

// Address returns the holder's ledger address.
func (s *Session) Address() string {
	return s.identity.Address()
}

// RecordAddress returns the address of the holder's record.
func (s *Session) RecordAddress() string {
	return s.snapshot.RecordAddress
}

// Snapshot returns a copy of the record read at login.
func (s *Session) Snapshot() record.Snapshot {
	snapshot := s.snapshot
	snapshot.Results = record.CopyResults(s.snapshot.Results)
	return snapshot
}

// Gateway returns the ledger gateway the session was opened against.
func (s *Session) Gateway() bcao.ILedgerGateway {
	return s.gateway
}

// Permissions returns the holder's permission ledger. It is created on first use and shared for the session.
func (s *Session) Permissions() *PermissionLedger {
	s.permissionsOnce.Do(func() {
		s.permissions = NewPermissionLedger(s.gateway, s.identity, s.snapshot.RecordAddress)
	})

	return s.permissions
}

// Close wipes the signing identity. The session cannot sign afterwards.
func (s *Session) Close() {
	s.identity.Wipe()
}
