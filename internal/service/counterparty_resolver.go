package service

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"golang.org/x/sync/singleflight"
)

// CounterpartyStore caches counterparty profiles by address. `Get` returns `errorcode.ErrorNotFound` on a miss.
type CounterpartyStore interface {
	Get(address string) (*record.Counterparty, error)
	Save(counterparty *record.Counterparty) error
}

// CounterpartyResolver fetches counterparty profiles from the authority on first use and caches them.
// Counterparty profiles never change, so cached entries are never refreshed.
type CounterpartyResolver struct {
	Gateway bcao.ILedgerGateway
	Store   CounterpartyStore

	group singleflight.Group
}

// Resolve returns the profile of the counterparty at address.
//
// Parameters:
//
//	the address of the identity issuing the read
//	the counterparty address
//
// Returns:
//
//	the counterparty profile, or `errorcode.ErrorUnknownCounterparty` if the authority does not know it
func (r *CounterpartyResolver) Resolve(ctx context.Context, caller string, address string) (*record.Counterparty, error) {
	cached, err := r.Store.Get(address)
	if err == nil {
		counterpartyLookupsTotal.WithLabelValues("cache").Inc()
		return cached, nil
	} else if errors.Cause(err) != errorcode.ErrorNotFound {
		// A broken cache only costs a ledger read.
		log.WithError(err).Warn("cannot read counterparty cache")
	}

	// Concurrent lookups of the same address share one ledger read.
	v, err, _ := r.group.Do(address, func() (interface{}, error) {
		state, err := readState(ctx, r.Gateway, bcao.QueryCounterparty, caller, address)
		if err != nil {
			if errors.Cause(err) == errorcode.ErrorNotFound {
				return nil, errors.Wrapf(errorcode.ErrorUnknownCounterparty, "'%v'", address)
			}
			return nil, errors.Wrap(err, "cannot read counterparty")
		}

		var counterparty record.Counterparty
		if err = state.Decode("counterparty", &counterparty); err != nil {
			return nil, err
		}
		if counterparty.Address == "" {
			counterparty.Address = address
		}

		if err = r.Store.Save(&counterparty); err != nil {
			log.WithError(err).Warn("cannot cache counterparty")
		}

		return &counterparty, nil
	})
	if err != nil {
		counterpartyLookupsTotal.WithLabelValues("unresolved").Inc()
		return nil, err
	}

	counterpartyLookupsTotal.WithLabelValues("ledger").Inc()
	ret := *v.(*record.Counterparty)
	return &ret, nil
}

// DisplayName returns the counterparty's name, or "Unknown" if it cannot be resolved.
func (r *CounterpartyResolver) DisplayName(ctx context.Context, caller string, address string) string {
	counterparty, err := r.Resolve(ctx, caller, address)
	if err != nil {
		log.WithError(err).WithField("counterparty", address).Debug("rendering unresolved counterparty as unknown")
		return record.UnknownCounterpartyName
	}

	return counterparty.Name
}

// ResolveAll resolves every address, falling back to a placeholder profile named "Unknown" for the ones that
// cannot be resolved. The result is keyed by address.
func (r *CounterpartyResolver) ResolveAll(ctx context.Context, caller string, addresses []string) map[string]record.Counterparty {
	ret := make(map[string]record.Counterparty, len(addresses))
	for _, address := range addresses {
		if _, ok := ret[address]; ok {
			continue
		}

		counterparty, err := r.Resolve(ctx, caller, address)
		if err != nil {
			ret[address] = record.Counterparty{Address: address, Name: record.UnknownCounterpartyName}
			continue
		}
		ret[address] = *counterparty
	}

	return ret
}
