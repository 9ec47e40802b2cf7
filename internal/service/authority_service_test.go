package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

func TestEnrollAndEvaluateWithCertificate(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	// No write permission yet.
	err := w.settle(w.authority.Enroll(ctx, w.university, w.recordAddress, &record.Result{CourseCode: "A", ProgramName: "CS", Credits: 6}))
	assert.True(t, errorcode.IsLedgerSubmissionFailure(err))

	require.NoError(t, w.settle(w.authority.RequestPermission(ctx, w.university, w.recordAddress, permission.Write)))

	session := w.login()
	defer session.Close()
	ledger := session.Permissions()
	sets, err := ledger.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, sets.Requests, 1)

	tr, err := ledger.Approve(ctx, sets.Requests[0])
	require.NoError(t, err)
	require.NoError(t, waitTransition(t, tr))

	require.NoError(t, w.settle(w.authority.Enroll(ctx, w.university, w.recordAddress, &record.Result{CourseCode: "A", CourseName: "Algorithms", ProgramName: "CS", Credits: 6})))
	require.NoError(t, w.settle(w.authority.Enroll(ctx, w.university, w.recordAddress, &record.Result{CourseCode: "B", CourseName: "Calculus", ProgramName: "Math", Credits: 9})))

	date := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	certificate := []byte("%PDF-1.4 certificate")
	require.NoError(t, w.settle(w.authority.Evaluate(ctx, w.university, w.recordAddress, "A", "30/30", date, certificate)))

	results, err := w.authority.ReadResults(ctx, w.university, w.recordAddress)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	if assert.Len(t, results, 2) {
		assert.True(t, results[0].IsEvaluated())
		assert.Equal(t, "30/30", *results[0].Grade)
		assert.True(t, date.Equal(*results[0].Date))
		if assert.NotNil(t, results[0].CertificateCID) {
			stored, ok := w.blobs.Get(*results[0].CertificateCID)
			assert.True(t, ok)
			assert.Equal(t, certificate, stored)
		}
		assert.False(t, results[1].IsEvaluated())
		assert.Equal(t, w.university.Address(), results[1].Counterparty)
	}

	// The login snapshot is not refreshed; a new login sees the results.
	assert.Empty(t, session.Snapshot().Results)
	fresh := w.login()
	defer fresh.Close()
	assert.Len(t, fresh.Snapshot().Results, 2)
	assert.Equal(t, []string{"A"}, codes(GroupByProgram(fresh.Snapshot().Results, w.university.Address())["CS"]))
}

func TestAuthorityServiceRejectsBadInput(t *testing.T) {
	w := newTestWorld(t)
	ctx := context.Background()

	_, err := w.authority.Enroll(ctx, w.university, w.recordAddress, &record.Result{CourseCode: "A", Credits: -1})
	assert.True(t, IsBadRequest(err))

	_, err = w.authority.Evaluate(ctx, w.university, w.recordAddress, "", "A", time.Now(), nil)
	assert.True(t, IsBadRequest(err))

	_, err = w.authority.RegisterCounterparty(ctx, w.university, &record.Counterparty{})
	assert.True(t, IsBadRequest(err))

	_, err = w.authority.RequestPermission(ctx, w.university, w.recordAddress, permission.Capability(3))
	assert.Equal(t, errorcode.ErrorInvalidCapability, errors.Cause(err))
}

func TestReadResultsRequiresPermission(t *testing.T) {
	w := newTestWorld(t)
	stranger := mustDerive(t, "stranger-secret", "stranger")

	_, err := w.authority.ReadResults(context.Background(), stranger, w.recordAddress)
	assert.Equal(t, errorcode.ErrorForbidden, errors.Cause(err))
}
