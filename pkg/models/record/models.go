package record

import "time"

// Profile is the holder's personal data. Only an authority may change it.
type Profile struct {
	Name       string    `json:"name" mapstructure:"name"`
	Surname    string    `json:"surname" mapstructure:"surname"`
	BirthDate  time.Time `json:"birthDate" mapstructure:"birthDate"`
	BirthPlace string    `json:"birthPlace" mapstructure:"birthPlace"`
	Country    string    `json:"country" mapstructure:"country"`
}

// Result is one course enrollment of a holder. It is created on enrollment and completed in place on evaluation;
// it is never deleted.
type Result struct {
	CourseCode     string     `json:"courseCode" mapstructure:"courseCode"` // Unique within a counterparty and holder
	CourseName     string     `json:"courseName" mapstructure:"courseName"`
	Counterparty   string     `json:"counterparty" mapstructure:"counterparty"` // Address of the issuing authority
	ProgramName    string     `json:"programName" mapstructure:"programName"`
	Grade          *string    `json:"grade,omitempty" mapstructure:"grade"` // nil until evaluated
	Date           *time.Time `json:"date,omitempty" mapstructure:"date"`
	Credits        float64    `json:"credits" mapstructure:"credits"`
	CertificateCID *string    `json:"certificateCid,omitempty" mapstructure:"certificateCid"`
}

// IsEvaluated reports whether the result has been completed by an evaluation.
func (r *Result) IsEvaluated() bool {
	return r.Grade != nil
}

// Counterparty is the public profile of an issuing authority. Immutable once established.
type Counterparty struct {
	Address   string `json:"address" mapstructure:"address"`
	Name      string `json:"name" mapstructure:"name"`
	Country   string `json:"country" mapstructure:"country"`
	ShortName string `json:"shortName" mapstructure:"shortName"`
}

// UnknownCounterpartyName is displayed for counterparties that cannot be resolved.
const UnknownCounterpartyName = "Unknown"

// Snapshot is the holder record read once at login.
type Snapshot struct {
	RecordAddress string   `json:"recordAddress"`
	Profile       Profile  `json:"profile"`
	Results       []Result `json:"results"`
}

// CopyResults deep-copies results so that callers cannot mutate a shared snapshot.
func CopyResults(results []Result) []Result {
	copied := make([]Result, len(results))
	for i, r := range results {
		if r.Grade != nil {
			grade := *r.Grade
			r.Grade = &grade
		}
		if r.Date != nil {
			date := *r.Date
			r.Date = &date
		}
		if r.CertificateCID != nil {
			cid := *r.CertificateCID
			r.CertificateCID = &cid
		}
		copied[i] = r
	}

	return copied
}
