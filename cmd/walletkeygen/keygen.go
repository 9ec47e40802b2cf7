package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
	"gopkg.in/yaml.v2"
)

// deriveKeys derives the identity of every holder and saves its public key. Private keys are never written: they
// are derived again from the credentials whenever needed.
//
// Returns:
//
//	a map of holder identifier to address, also saved as `index.yaml`
func deriveKeys(dirKeys string, holders []holderCredentials) (map[string]string, error) {
	// Exit if the dir exists
	if _, err := os.Stat(dirKeys); err == nil {
		return nil, fmt.Errorf("the holder keys are already derived. Delete the folder first before running again")
	}

	if err := os.MkdirAll(dirKeys, 0755); err != nil {
		return nil, errors.Wrap(err, "cannot create output directory")
	}

	index := make(map[string]string, len(holders))
	for _, holder := range holders {
		if _, exists := index[holder.Identifier]; exists {
			return nil, fmt.Errorf("holder '%v' is listed twice", holder.Identifier)
		}

		identity, err := sm2keyutils.DeriveSigningIdentity(holder.Secret, holder.Identifier)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot derive the identity of '%v'", holder.Identifier)
		}
		pubKeyPem, err := identity.PublicKeyPEM()
		address := identity.Address()
		identity.Wipe()
		if err != nil {
			return nil, errors.Wrapf(err, "cannot encode the public key of '%v'", holder.Identifier)
		}

		// Create a directory for the holder
		dirHolder := path.Join(dirKeys, holder.Identifier)
		if err = os.MkdirAll(dirHolder, 0755); err != nil {
			return nil, errors.Wrapf(err, "cannot create directory for '%v'", holder.Identifier)
		}

		if err = ioutil.WriteFile(path.Join(dirHolder, holder.Identifier+".pem"), pubKeyPem, 0644); err != nil {
			return nil, errors.Wrapf(err, "cannot save the public key of '%v'", holder.Identifier)
		}

		index[holder.Identifier] = address
	}

	indexBytes, err := yaml.Marshal(index)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode the index")
	}
	if err = ioutil.WriteFile(path.Join(dirKeys, "index.yaml"), indexBytes, 0644); err != nil {
		return nil, errors.Wrap(err, "cannot save the index")
	}

	return index, nil
}
