package memorybcao

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
)

// Read implements `bcao.ILedgerGateway`.
func (l *LedgerMemoryImpl) Read(ctx context.Context, query *bcao.Query) (bcao.AuthorityState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch query.Kind {
	case bcao.QueryRecordAddress:
		holder := query.Caller
		if query.Target != "" {
			holder = query.Target
		}
		recordAddress, ok := l.recordByOwner[holder]
		if !ok {
			return nil, errorcode.ErrorNotFound
		}
		return bcao.AuthorityState{"recordAddress": recordAddress}, nil

	case bcao.QueryProfile:
		rec, err := l.readableRecord(query)
		if err != nil {
			return nil, err
		}
		return bcao.AuthorityState{"profile": rec.profile}, nil

	case bcao.QueryResults:
		rec, err := l.readableRecord(query)
		if err != nil {
			return nil, err
		}
		return bcao.AuthorityState{"results": record.CopyResults(rec.results)}, nil

	case bcao.QueryCounterparty:
		counterparty, ok := l.counterparties[query.Target]
		if !ok {
			return nil, errorcode.ErrorNotFound
		}
		return bcao.AuthorityState{"counterparty": counterparty}, nil

	case bcao.QueryReadRequests:
		return l.permissionState(query, permission.Read, permission.Requested)
	case bcao.QueryWriteRequests:
		return l.permissionState(query, permission.Write, permission.Requested)
	case bcao.QueryActiveReads:
		return l.permissionState(query, permission.Read, permission.Granted)
	case bcao.QueryActiveWrites:
		return l.permissionState(query, permission.Write, permission.Granted)

	default:
		return nil, errors.Errorf("unsupported query kind '%v'", query.Kind)
	}
}

// Owners and counterparties with a granted Read or Write permission may read a record.
func (l *LedgerMemoryImpl) readableRecord(query *bcao.Query) (*holderRecord, error) {
	rec, ok := l.records[query.Target]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}

	if rec.owner == query.Caller {
		return rec, nil
	}

	for _, p := range rec.permissions {
		if p.Counterparty == query.Caller && p.Phase == permission.Granted {
			return rec, nil
		}
	}

	return nil, errorcode.ErrorForbidden
}

func (l *LedgerMemoryImpl) permissionState(query *bcao.Query, capability permission.Capability, phase permission.Phase) (bcao.AuthorityState, error) {
	rec, ok := l.records[query.Target]
	if !ok {
		return nil, errorcode.ErrorNotFound
	}
	if rec.owner != query.Caller {
		return nil, errorcode.ErrorForbidden
	}

	counterparties := []string{}
	for _, p := range rec.permissions {
		if p.Capability == capability && p.Phase == phase {
			counterparties = append(counterparties, p.Counterparty)
		}
	}

	return bcao.AuthorityState{"counterparties": counterparties}, nil
}
