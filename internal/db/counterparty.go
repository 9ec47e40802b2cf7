package db

import (
	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/internal/models/sqlmodel"
	"github.com/tintun2602/eduwallet-sub000/pkg/errorcode"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCounterpartyStore caches counterparty profiles in a SQL database.
type GormCounterpartyStore struct {
	DB *gorm.DB
}

// NewGormCounterpartyStore migrates the counterparties table and returns a store on top of it.
func NewGormCounterpartyStore(db *gorm.DB) (*GormCounterpartyStore, error) {
	if err := db.AutoMigrate(&sqlmodel.Counterparty{}); err != nil {
		return nil, errors.Wrap(err, "cannot migrate counterparty table")
	}

	return &GormCounterpartyStore{DB: db}, nil
}

// Get reads the counterparty with the given address from the database.
func (s *GormCounterpartyStore) Get(address string) (*record.Counterparty, error) {
	var counterpartyDB sqlmodel.Counterparty
	dbResult := s.DB.Where("address = ?", address).Take(&counterpartyDB)
	if dbResult.Error != nil {
		if errors.Cause(dbResult.Error) == gorm.ErrRecordNotFound {
			return nil, errorcode.ErrorNotFound
		} else {
			return nil, errors.Wrap(dbResult.Error, "cannot read counterparty from the database")
		}
	}

	return counterpartyDB.ToModel(), nil
}

// Save writes the counterparty to the database, overwriting an existing row with the same address.
func (s *GormCounterpartyStore) Save(counterparty *record.Counterparty) error {
	dbResult := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "country", "short_name", "updated_at"}),
	}).Create(sqlmodel.NewCounterpartyFromModel(counterparty))
	if dbResult.Error != nil {
		return errors.Wrap(dbResult.Error, "cannot save counterparty to the database")
	}

	return nil
}
