package main

import (
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// holderCredentials is one entry of the input file.
type holderCredentials struct {
	Identifier string `yaml:"identifier"`
	Secret     string `yaml:"secret"`
}

func main() {
	var configPath, dirKeys string

	app := &cli.App{
		Name:  "walletkeygen",
		Usage: "Derive holder public keys and addresses from a YAML list of credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "conf",
				Aliases:     []string{"c"},
				Value:       "cmd/walletkeygen/holders.yaml",
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Value:       "holderkeys",
				Destination: &dirKeys,
			},
		},
		Action: func(c *cli.Context) error {
			holders, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			index, err := deriveKeys(dirKeys, holders)
			if err != nil {
				return err
			}

			log.Infof("derived %v holder identities into '%v'", len(index), dirKeys)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func loadConfig(filePath string) ([]holderCredentials, error) {
	fileBytes, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read config file")
	}

	holders := []holderCredentials{}
	if err = yaml.Unmarshal(fileBytes, &holders); err != nil {
		return nil, errors.Wrap(err, "cannot load config file")
	}

	return holders, nil
}
