package bcao

import (
	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

// GetClassifiedError converts a rejection carrying an authority error code to the matching predefined error.
// Anything else is wrapped with the name of the call that failed.
func GetClassifiedError(fcn string, err error) error {
	if err == nil {
		return nil
	}

	if classified := errorcode.FromMessage(err.Error()); classified != nil {
		return classified
	}

	return errors.Wrapf(err, "cannot invoke ledger function '%v'", fcn)
}
