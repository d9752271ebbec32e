// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mendersoftware/go-lib-micro/config"
	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/urfave/cli"

	dconfig "github.com/mendersoftware/taskqueue-artifacts/config"
	"github.com/mendersoftware/taskqueue-artifacts/store/mongo"
)

func main() {
	doMain(os.Args)
}

func doMain(args []string) {
	var configPath string

	app := cli.NewApp()
	app.Usage = "Task-queue artifact mediation service"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name: "config",
			Usage: "Configuration `FILE`." +
				" Supports JSON, TOML, YAML and HCL formatted configs.",
			Destination: &configPath,
		},
	}

	app.Commands = []cli.Command{
		{
			Name:   "server",
			Usage:  "Run the HTTP API server",
			Action: cmdServer,
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "automigrate",
					Usage: "Run database migrations before starting.",
				},
			},
		},
		{
			Name:   "migrate",
			Usage:  "Run the database migrations",
			Action: cmdMigrate,
		},
	}

	app.Action = cmdServer
	app.Before = func(args *cli.Context) error {
		// map settings like aws.auth.key to AWS_AUTH_KEY env keys
		config.Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		config.Config.SetEnvPrefix("ARTIFACTS")
		config.Config.AutomaticEnv()

		err := config.FromConfigFile(configPath,
			dconfig.Defaults, dconfig.Validators...)
		if err != nil {
			return cli.NewExitError(
				fmt.Sprintf("error loading configuration: %s", err), 1,
			)
		}

		return nil
	}

	err := app.Run(args)
	if err != nil {
		log.NewEmpty().Fatal(err)
	}
}

func cmdServer(args *cli.Context) error {
	ctx := context.Background()
	dbClient, err := mongo.NewMongoClient(ctx, config.Config)
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("failed to connect to db: %s", err), 2,
		)
	}
	defer func() {
		_ = dbClient.Disconnect(context.Background())
	}()

	err = mongo.Migrate(ctx, mongo.DbVersion, dbClient, args.Bool("automigrate"))
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("failed to run migrations: %s", err), 3,
		)
	}

	err = RunServer(ctx, dbClient)
	if err != nil {
		return cli.NewExitError(err.Error(), 4)
	}
	return nil
}

func cmdMigrate(args *cli.Context) error {
	ctx := context.Background()
	dbClient, err := mongo.NewMongoClient(ctx, config.Config)
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("failed to connect to db: %s", err), 2,
		)
	}
	defer func() {
		_ = dbClient.Disconnect(context.Background())
	}()

	err = mongo.Migrate(ctx, mongo.DbVersion, dbClient, true)
	if err != nil {
		return cli.NewExitError(
			fmt.Sprintf("failed to run migrations: %s", err), 3,
		)
	}
	return nil
}
