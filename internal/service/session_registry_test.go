package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

func TestSessionRegistry(t *testing.T) {
	w := newTestWorld(t)
	registry := NewSessionRegistry(w.identity)

	session, err := registry.Start(context.Background(), holderIdentifier, holderSecret)
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, 1, registry.Len())

	got, err := registry.Get(session.ID)
	assert.NoError(t, err)
	assert.Same(t, session, got)

	_, err = registry.Start(context.Background(), holderIdentifier, "wrong")
	assert.Equal(t, errorcode.ErrorAuthentication, err)
	assert.Equal(t, 1, registry.Len())

	assert.NoError(t, registry.End(session.ID))
	assert.Equal(t, errorcode.ErrorNotFound, registry.End(session.ID))
	_, err = registry.Get(session.ID)
	assert.Equal(t, errorcode.ErrorNotFound, err)

	_, err = session.Identity().Sign([]byte("x"))
	assert.Error(t, err)
}
