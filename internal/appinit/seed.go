package appinit

import (
	"context"
	"time"

	errors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/blockchain/bcao"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/permission"
	"github.com/tintun2602/eduwallet-sub000/pkg/models/record"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
)

// SeedInfo lists counterparties and holders to register on an in-memory ledger at startup.
type SeedInfo struct {
	Counterparties []SeedCounterparty `yaml:"counterparties"`
}

// SeedCounterparty is a counterparty together with the holders it registers.
type SeedCounterparty struct {
	Identifier string       `yaml:"identifier"`
	Secret     string       `yaml:"secret"`
	Name       string       `yaml:"name"`
	Country    string       `yaml:"country"`
	ShortName  string       `yaml:"shortName"`
	Holders    []SeedHolder `yaml:"holders"`
}

// SeedHolder is a holder and the capabilities its counterparty requests right after registering it.
type SeedHolder struct {
	Identifier string   `yaml:"identifier"`
	Secret     string   `yaml:"secret"`
	Name       string   `yaml:"name"`
	Surname    string   `yaml:"surname"`
	BirthDate  string   `yaml:"birthDate"` // YYYY-MM-DD
	BirthPlace string   `yaml:"birthPlace"`
	Country    string   `yaml:"country"`
	Requests   []string `yaml:"requests"` // "read" and/or "write"
}

// Seed registers the seed data through the authority service and waits for every operation.
func (a *App) Seed(ctx context.Context, seed *SeedInfo) error {
	for _, sc := range seed.Counterparties {
		actor, err := sm2keyutils.DeriveSigningIdentity(sc.Secret, sc.Identifier)
		if err != nil {
			return err
		}

		err = a.seedCounterparty(ctx, actor, &sc)
		actor.Wipe()
		if err != nil {
			return errors.Wrapf(err, "cannot seed counterparty '%v'", sc.Name)
		}
	}

	return nil
}

func (a *App) seedCounterparty(ctx context.Context, actor *sm2keyutils.SigningIdentity, sc *SeedCounterparty) error {
	profile := &record.Counterparty{Name: sc.Name, Country: sc.Country, ShortName: sc.ShortName}
	if err := settle(ctx)(a.Authority.RegisterCounterparty(ctx, actor, profile)); err != nil {
		return err
	}
	log.WithField("address", actor.Address()).Infof("seeded counterparty '%v'", sc.Name)

	for _, sh := range sc.Holders {
		holder, err := sm2keyutils.DeriveSigningIdentity(sh.Secret, sh.Identifier)
		if err != nil {
			return err
		}
		holderAddress := holder.Address()
		holder.Wipe()

		holderProfile := &record.Profile{Name: sh.Name, Surname: sh.Surname, BirthPlace: sh.BirthPlace, Country: sh.Country}
		if sh.BirthDate != "" {
			if holderProfile.BirthDate, err = time.Parse("2006-01-02", sh.BirthDate); err != nil {
				return errors.Wrapf(err, "invalid birth date of holder '%v'", sh.Identifier)
			}
		}

		if err = settle(ctx)(a.Authority.RegisterHolder(ctx, actor, holderAddress, holderProfile)); err != nil {
			return err
		}

		recordAddress, err := a.Authority.ResolveRecordAddress(ctx, actor, holderAddress)
		if err != nil {
			return err
		}

		for _, capabilityStr := range sh.Requests {
			capability, err := permission.ParseCapability(capabilityStr)
			if err != nil {
				return err
			}
			if err = settle(ctx)(a.Authority.RequestPermission(ctx, actor, recordAddress, capability)); err != nil {
				return err
			}
		}
		log.WithField("recordAddress", recordAddress).Infof("seeded holder '%v'", sh.Identifier)
	}

	return nil
}

// settle returns a func waiting for a submitted operation, to be applied directly to a service call's results.
func settle(ctx context.Context) func(*bcao.PendingOperation, error) error {
	return func(pending *bcao.PendingOperation, err error) error {
		if err != nil {
			return err
		}

		_, err = pending.Wait(ctx)
		return err
	}
}
