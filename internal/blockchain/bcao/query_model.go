package bcao

import (
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// QueryKind names a read-only ledger function.
type QueryKind string

const (
	// QueryRecordAddress resolves the record bound to the target holder address, or to the caller's address if no
	// target is given. State: {"recordAddress": string}.
	QueryRecordAddress QueryKind = "getRecordAddress"
	// QueryProfile returns a holder's profile. State: {"profile": record.Profile}.
	QueryProfile QueryKind = "getProfile"
	// QueryResults returns a holder's results. State: {"results": []record.Result}.
	QueryResults QueryKind = "getResults"
	// QueryCounterparty returns a counterparty's public profile. State: {"counterparty": record.Counterparty}.
	QueryCounterparty QueryKind = "getCounterparty"
	// The four permission queries each return {"counterparties": []string}.
	QueryReadRequests  QueryKind = "getReadRequests"
	QueryWriteRequests QueryKind = "getWriteRequests"
	QueryActiveReads   QueryKind = "getReadPermissions"
	QueryActiveWrites  QueryKind = "getWritePermissions"
)

// Query is a read request against the authority.
type Query struct {
	Kind   QueryKind `json:"kind"`
	Caller string    `json:"caller"`           // Address of the signing identity issuing the read
	Target string    `json:"target,omitempty"` // Record or counterparty address the query is about
}

// AuthorityState is the opaque state returned by the authority for a query.
type AuthorityState map[string]interface{}

// Decode decodes the value under key into out. Time values may be given as RFC 3339 strings.
func (s AuthorityState) Decode(key string, out interface{}) error {
	raw, ok := s[key]
	if !ok {
		return errors.Errorf("authority state has no field '%v'", key)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:     out,
	})
	if err != nil {
		return errors.Wrap(err, "cannot create authority state decoder")
	}

	if err := decoder.Decode(raw); err != nil {
		return errors.Wrapf(err, "cannot decode authority state field '%v'", key)
	}

	return nil
}
