package permission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
)

// Capability is the kind of access a counterparty holds over a holder's records.
type Capability int

const (
	// Read allows the counterparty to read the holder's results.
	Read Capability = iota + 1
	// Write allows the counterparty to enroll the holder and evaluate results.
	Write
)

func (c Capability) String() string {
	switch c {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// Validate returns `errorcode.ErrorInvalidCapability` for anything other than Read or Write.
func (c Capability) Validate() error {
	if c != Read && c != Write {
		return errors.Wrapf(errorcode.ErrorInvalidCapability, "'%v'", c)
	}

	return nil
}

// ParseCapability accepts "read" or "write" in any case.
func ParseCapability(str string) (Capability, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return 0, errors.Wrapf(errorcode.ErrorInvalidCapability, "'%v'", str)
	}
}

func (c Capability) MarshalJSON() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return json.Marshal(c.String())
}

func (c *Capability) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "capability must be a string")
	}

	parsed, err := ParseCapability(str)
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}

// Phase is the lifecycle position of a live permission. An absent permission has no phase: it is simply not in the view.
type Phase int

const (
	// Requested means the counterparty asked for the capability and the holder has not answered yet.
	Requested Phase = iota + 1
	// Granted means the holder approved the request.
	Granted
)

func (p Phase) String() string {
	switch p {
	case Requested:
		return "requested"
	case Granted:
		return "granted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase accepts "requested" or "granted" in any case.
func ParsePhase(str string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "requested":
		return Requested, nil
	case "granted":
		return Granted, nil
	default:
		return 0, fmt.Errorf("invalid phase '%v'", str)
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	if p != Requested && p != Granted {
		return nil, fmt.Errorf("invalid phase %v", p)
	}

	return json.Marshal(p.String())
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "phase must be a string")
	}

	parsed, err := ParsePhase(str)
	if err != nil {
		return err
	}

	*p = parsed
	return nil
}

// Key identifies a permission within a holder's view. At most one live permission exists per key.
type Key struct {
	Counterparty string
	Capability   Capability
}

func (k Key) String() string {
	return k.Counterparty + "/" + k.Capability.String()
}

// Permission is a live capability entry between a holder and a counterparty.
type Permission struct {
	Counterparty string     `json:"counterparty"` // Address of the counterparty
	Capability   Capability `json:"capability"`
	Phase        Phase      `json:"phase"`
}

// Key returns the key the permission is stored under.
func (p Permission) Key() Key {
	return Key{Counterparty: p.Counterparty, Capability: p.Capability}
}

// Validate checks the capability and phase tags and the counterparty address.
func (p Permission) Validate() error {
	if err := p.Capability.Validate(); err != nil {
		return err
	}

	if p.Phase != Requested && p.Phase != Granted {
		return fmt.Errorf("invalid permission phase %v", p.Phase)
	}

	if strings.TrimSpace(p.Counterparty) == "" {
		return fmt.Errorf("permission counterparty cannot be empty")
	}

	return nil
}

// NewRequest builds a Requested permission.
func NewRequest(counterparty string, capability Capability) Permission {
	return Permission{Counterparty: counterparty, Capability: capability, Phase: Requested}
}

// NewGrant builds a Granted permission.
func NewGrant(counterparty string, capability Capability) Permission {
	return Permission{Counterparty: counterparty, Capability: capability, Phase: Granted}
}

// Sets is the partitioned view of a holder's permissions.
type Sets struct {
	Requests []Permission `json:"requests"`
	Read     []Permission `json:"read"`
	Write    []Permission `json:"write"`
}

// Len returns the total number of live permissions.
func (s Sets) Len() int {
	return len(s.Requests) + len(s.Read) + len(s.Write)
}
