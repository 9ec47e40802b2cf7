package sqlmodel

import (
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"gorm.io/gorm"
)

// Counterparty defines the table counterparties, a local cache of counterparty profiles read from the ledger.
type Counterparty struct {
	gorm.Model
	Address   string `gorm:"type:VARCHAR(42) NOT NULL;uniqueIndex"`
	Name      string `gorm:"type:VARCHAR(255) NOT NULL"`
	Country   string `gorm:"type:VARCHAR(64)"`
	ShortName string `gorm:"type:VARCHAR(64)"`
}

// NewCounterpartyFromModel converts a `record.Counterparty` into a `sqlmodel.Counterparty`.
func NewCounterpartyFromModel(c *record.Counterparty) *Counterparty {
	return &Counterparty{
		Address:   c.Address,
		Name:      c.Name,
		Country:   c.Country,
		ShortName: c.ShortName,
	}
}

// ToModel converts a `sqlmodel.Counterparty` into a `record.Counterparty`.
func (c *Counterparty) ToModel() *record.Counterparty {
	return &record.Counterparty{
		Address:   c.Address,
		Name:      c.Name,
		Country:   c.Country,
		ShortName: c.ShortName,
	}
}
