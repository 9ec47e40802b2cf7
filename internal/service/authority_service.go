package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blobstore"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

// AuthorityService holds the operations a counterparty (an issuing authority) performs against holder records.
// Every operation takes the acting identity explicitly; the service keeps no notion of a current counterparty.
type AuthorityService struct {
	Gateway   bcao.ILedgerGateway
	BlobStore blobstore.IBlobStore
}

// RegisterCounterparty registers the actor as a counterparty with the given public profile. The address in the
// profile is ignored; the actor's own address is used.
func (s *AuthorityService) RegisterCounterparty(ctx context.Context, actor *sm2keyutils.SigningIdentity, profile *record.Counterparty) (*bcao.PendingOperation, error) {
	if strings.TrimSpace(profile.Name) == "" {
		return nil, &ErrorBadRequest{errMsg: "counterparty name cannot be empty"}
	}

	args := &bcao.RegisterCounterpartyArgs{
		Name:      profile.Name,
		Country:   profile.Country,
		ShortName: profile.ShortName,
	}

	return submitSigned(ctx, s.Gateway, actor, bcao.OpRegisterCounterparty, "", args.ToArgs())
}

// RegisterHolder creates the record of a holder.
//
// Parameters:
//
//	the acting counterparty
//	the address of the holder's signing identity
//	the holder's profile
//
// Returns:
//
//	the pending operation
func (s *AuthorityService) RegisterHolder(ctx context.Context, actor *sm2keyutils.SigningIdentity, holderAddress string, profile *record.Profile) (*bcao.PendingOperation, error) {
	if strings.TrimSpace(holderAddress) == "" {
		return nil, &ErrorBadRequest{errMsg: "holder address cannot be empty"}
	}

	args := &bcao.RegisterHolderArgs{
		Holder:     holderAddress,
		Name:       profile.Name,
		Surname:    profile.Surname,
		BirthPlace: profile.BirthPlace,
		Country:    profile.Country,
	}
	if !profile.BirthDate.IsZero() {
		args.BirthDate = profile.BirthDate.UTC().Format(time.RFC3339)
	}

	return submitSigned(ctx, s.Gateway, actor, bcao.OpRegisterHolder, "", args.ToArgs())
}

// ResolveRecordAddress returns the record address bound to a holder address.
func (s *AuthorityService) ResolveRecordAddress(ctx context.Context, actor *sm2keyutils.SigningIdentity, holderAddress string) (string, error) {
	state, err := readState(ctx, s.Gateway, bcao.QueryRecordAddress, actor.Address(), holderAddress)
	if err != nil {
		return "", errors.Wrapf(err, "cannot resolve the record of holder '%v'", holderAddress)
	}

	var recordAddress string
	if err = state.Decode("recordAddress", &recordAddress); err != nil {
		return "", err
	}

	return recordAddress, nil
}

// RequestPermission asks the holder of a record for a capability. The request shows up in the holder's
// permission ledger in the Requested phase.
func (s *AuthorityService) RequestPermission(ctx context.Context, actor *sm2keyutils.SigningIdentity, recordAddress string, capability permission.Capability) (*bcao.PendingOperation, error) {
	if err := capability.Validate(); err != nil {
		return nil, err
	}

	args := &bcao.PermissionArgs{Capability: capability.String()}
	return submitSigned(ctx, s.Gateway, actor, bcao.OpRequestPermission, recordAddress, args.ToArgs())
}

// Enroll adds a pending result to a record. Requires a granted Write permission. The grade, date and certificate
// of the given result are ignored; they are filled in by `Evaluate`.
func (s *AuthorityService) Enroll(ctx context.Context, actor *sm2keyutils.SigningIdentity, recordAddress string, result *record.Result) (*bcao.PendingOperation, error) {
	if strings.TrimSpace(result.CourseCode) == "" {
		return nil, &ErrorBadRequest{errMsg: "course code cannot be empty"}
	}
	if result.Credits < 0 {
		return nil, &ErrorBadRequest{errMsg: "credits cannot be negative"}
	}

	args := &bcao.EnrollArgs{
		CourseCode:  result.CourseCode,
		CourseName:  result.CourseName,
		ProgramName: result.ProgramName,
		Credits:     result.Credits,
	}

	return submitSigned(ctx, s.Gateway, actor, bcao.OpEnroll, recordAddress, args.ToArgs())
}

// Evaluate completes an enrolled result with a grade and a date. A non-empty certificate is published to the blob
// store first and its content identifier is stored in the result. Requires a granted Write permission.
//
// Parameters:
//
//	the acting counterparty
//	the record address
//	the course code of the enrolled result
//	the grade
//	the evaluation date
//	the certificate contents (may be empty)
//
// Returns:
//
//	the pending operation
func (s *AuthorityService) Evaluate(ctx context.Context, actor *sm2keyutils.SigningIdentity, recordAddress string, courseCode string, grade string, date time.Time, certificate []byte) (*bcao.PendingOperation, error) {
	if strings.TrimSpace(courseCode) == "" {
		return nil, &ErrorBadRequest{errMsg: "course code cannot be empty"}
	}
	if strings.TrimSpace(grade) == "" {
		return nil, &ErrorBadRequest{errMsg: "grade cannot be empty"}
	}

	args := &bcao.EvaluateArgs{
		CourseCode: courseCode,
		Grade:      grade,
		Date:       date.UTC().Format(time.RFC3339),
	}

	if len(certificate) != 0 {
		if s.BlobStore == nil {
			return nil, errors.New("no blob store is configured for certificates")
		}

		cid, err := s.BlobStore.Publish(ctx, certificate)
		if err != nil {
			return nil, errors.Wrap(err, "cannot publish certificate")
		}
		log.WithFields(log.Fields{"course": courseCode, "cid": cid}).Debug("certificate published")
		args.CertificateCID = cid
	}

	return submitSigned(ctx, s.Gateway, actor, bcao.OpEvaluate, recordAddress, args.ToArgs())
}

// ReadResults reads the results of a record as the actor. Requires a granted permission or ownership.
func (s *AuthorityService) ReadResults(ctx context.Context, actor *sm2keyutils.SigningIdentity, recordAddress string) ([]record.Result, error) {
	state, err := readState(ctx, s.Gateway, bcao.QueryResults, actor.Address(), recordAddress)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read results")
	}

	var results []record.Result
	if err = state.Decode("results", &results); err != nil {
		return nil, err
	}

	return results, nil
}
