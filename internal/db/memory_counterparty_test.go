package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

func TestMemoryCounterpartyStore(t *testing.T) {
	store := NewMemoryCounterpartyStore()

	_, err := store.Get("0xabc")
	assert.Equal(t, errorcode.ErrorNotFound, err)

	original := &record.Counterparty{Address: "0xabc", Name: "University of Bergen", Country: "NO", ShortName: "UiB"}
	if isNoError := assert.NoError(t, store.Save(original)); !isNoError {
		t.FailNow()
	}

	// Mutating the saved value must not reach the store.
	original.Name = "changed"

	got, err := store.Get("0xabc")
	if isNoError := assert.NoError(t, err); !isNoError {
		t.FailNow()
	}
	assert.Equal(t, "University of Bergen", got.Name)
	assert.Equal(t, "UiB", got.ShortName)
}
