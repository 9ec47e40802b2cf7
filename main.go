package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tintun2602/eduwallet-sub000/internal/appinit"
	"github.com/tintun2602/eduwallet-sub000/internal/controller"
	"github.com/tintun2602/eduwallet-sub000/pkg/sm2keyutils"
	"github.com/urfave/cli/v2"
)

func main() {
	var configPath, sdkConfigPath string
	var identifier, secret string

	app := &cli.App{
		Name:  "eduwallet",
		Usage: "Holder wallet for academic records kept on a permissioned ledger",
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"s"},
				Usage:   "Start as server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "conf",
						Aliases:     []string{"c"},
						Value:       "server.yaml",
						EnvVars:     []string{"EW_CONF"},
						Destination: &configPath,
					},
					&cli.StringFlag{
						Name:        "sdkconf",
						Aliases:     []string{"s"},
						Value:       "config-network.yaml",
						EnvVars:     []string{"EW_SDK_CONF"},
						Destination: &sdkConfigPath,
					},
				},
				Action: getServeFunc(&configPath, &sdkConfigPath),
			},
			{
				Name:    "derive",
				Aliases: []string{"d"},
				Usage:   "Print the public key and address derived from a holder's credentials",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "identifier",
						Aliases:     []string{"i"},
						Required:    true,
						Destination: &identifier,
					},
					&cli.StringFlag{
						Name:        "secret",
						EnvVars:     []string{"EW_SECRET"},
						Usage:       "prefer the EW_SECRET environment variable; flags end up in shell history",
						Destination: &secret,
					},
				},
				Action: getDeriveFunc(&identifier, &secret),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func getDeriveFunc(identifier *string, secret *string) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		identity, err := sm2keyutils.DeriveSigningIdentity(*secret, *identifier)
		if err != nil {
			return err
		}
		defer identity.Wipe()

		pemBytes, err := identity.PublicKeyPEM()
		if err != nil {
			return err
		}

		fmt.Printf("Address: %v\n%v", identity.Address(), string(pemBytes))
		return nil
	}
}

func getServeFunc(configPath *string, sdkConfigPath *string) func(c *cli.Context) error {
	serveFunc := func(c *cli.Context) error {
		// Load serve info from `server.yaml`
		serverInfo, err := appinit.LoadServerInfo(*configPath)
		if err != nil {
			return err
		}

		if err = appinit.SetupLogger(&serverInfo); err != nil {
			return err
		}

		app, err := appinit.NewApp(&serverInfo, *sdkConfigPath)
		if err != nil {
			return err
		}
		defer app.Close()

		if serverInfo.Seed != nil {
			if serverInfo.Ledger.Backend != appinit.BackendMemory {
				return fmt.Errorf("seed data can only be loaded into the in-memory ledger")
			}
			if err = app.Seed(c.Context, serverInfo.Seed); err != nil {
				return err
			}
		}

		router, err := controller.NewRouter(app.Registry, app.Resolver)
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:    fmt.Sprintf(":%v", serverInfo.Port),
			Handler: router,
		}

		chanError := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				chanError <- errors.Wrap(err, "cannot start HTTP server")
			}
		}()
		log.Infof("listening on port %v with the %v ledger", serverInfo.Port, serverInfo.Ledger.Backend)

		// Sessions hold private keys in memory; make sure they are wiped on the way out.
		chanQuit := make(chan os.Signal, 1)
		signal.Notify(chanQuit, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-chanError:
			return err
		case <-chanQuit:
			log.Infoln("received a stop signal, exiting...")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Infoln("stopping HTTP server...")
			if err := httpServer.Shutdown(ctx); err != nil {
				return errors.Wrap(err, "cannot stop HTTP server")
			}
		}

		return nil
	}

	return serveFunc
}
