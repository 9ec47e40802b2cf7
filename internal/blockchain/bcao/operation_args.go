package bcao

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Argument shapes of the mutating ledger functions. Dates travel as RFC 3339 strings.

type RegisterCounterpartyArgs struct {
	Name      string `mapstructure:"name"`
	Country   string `mapstructure:"country"`
	ShortName string `mapstructure:"shortName"`
}

func (a *RegisterCounterpartyArgs) ToArgs() map[string]interface{} {
	return map[string]interface{}{
		"name":      a.Name,
		"country":   a.Country,
		"shortName": a.ShortName,
	}
}

type RegisterHolderArgs struct {
	Holder     string `mapstructure:"holder"` // Address of the holder's signing identity
	Name       string `mapstructure:"name"`
	Surname    string `mapstructure:"surname"`
	BirthDate  string `mapstructure:"birthDate"`
	BirthPlace string `mapstructure:"birthPlace"`
	Country    string `mapstructure:"country"`
}

func (a *RegisterHolderArgs) ToArgs() map[string]interface{} {
	return map[string]interface{}{
		"holder":     a.Holder,
		"name":       a.Name,
		"surname":    a.Surname,
		"birthDate":  a.BirthDate,
		"birthPlace": a.BirthPlace,
		"country":    a.Country,
	}
}

type EnrollArgs struct {
	CourseCode  string  `mapstructure:"courseCode"`
	CourseName  string  `mapstructure:"courseName"`
	ProgramName string  `mapstructure:"programName"`
	Credits     float64 `mapstructure:"credits"`
}

func (a *EnrollArgs) ToArgs() map[string]interface{} {
	return map[string]interface{}{
		"courseCode":  a.CourseCode,
		"courseName":  a.CourseName,
		"programName": a.ProgramName,
		"credits":     a.Credits,
	}
}

type EvaluateArgs struct {
	CourseCode     string `mapstructure:"courseCode"`
	Grade          string `mapstructure:"grade"`
	Date           string `mapstructure:"date"`
	CertificateCID string `mapstructure:"certificateCid"`
}

func (a *EvaluateArgs) ToArgs() map[string]interface{} {
	return map[string]interface{}{
		"courseCode":     a.CourseCode,
		"grade":          a.Grade,
		"date":           a.Date,
		"certificateCid": a.CertificateCID,
	}
}

// PermissionArgs is shared by request, grant and revoke. Counterparty is empty for requests, where the signer is
// the counterparty.
type PermissionArgs struct {
	Counterparty string `mapstructure:"counterparty"`
	Capability   string `mapstructure:"capability"`
}

func (a *PermissionArgs) ToArgs() map[string]interface{} {
	return map[string]interface{}{
		"counterparty": a.Counterparty,
		"capability":   a.Capability,
	}
}

// DecodeArgs decodes the arguments of an operation into one of the argument structs.
func DecodeArgs(args map[string]interface{}, out interface{}) error {
	if err := mapstructure.Decode(args, out); err != nil {
		return errors.Wrap(err, "cannot decode operation arguments")
	}

	return nil
}
