/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements. See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License. You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"github.com/gookit/color"
	"github.com/noctarius/datastore-column-mapper/internal"
	"github.com/noctarius/datastore-column-mapper/internal/mapper"
	"github.com/noctarius/datastore-column-mapper/internal/supporting"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	spiconfig "github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/encoding"
	"github.com/noctarius/datastore-column-mapper/spi/version"
	"github.com/urfave/cli"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
)

const configEnvironmentVariable = "COLUMN_MAPPER_CONFIG"

var (
	configurationFile string
	verbose           bool
	withCaller        bool
	logToStdErr       bool
	versionOnly       bool
)

var resourceFlag = &cli.StringFlag{
	Name:  "resource,r",
	Usage: "Id of the data resource",
}

func main() {
	app := &cli.App{
		Name:  version.BinName,
		Usage: "Maps over-length column names of datastore resources to storage-safe identifiers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config,c",
				Value:       "",
				Usage:       "Load configuration from `FILE`",
				Destination: &configurationFile,
			},
			&cli.BoolFlag{
				Name:        "verbose",
				Usage:       "Show verbose output",
				Destination: &verbose,
			},
			&cli.BoolFlag{
				Name:        "caller",
				Usage:       "Collect caller information for log messages",
				Destination: &withCaller,
			},
			&cli.BoolFlag{
				Name:        "log-to-stderr",
				Usage:       "Redirects logging output to stderr, keeps stdout for the JSON output",
				Destination: &logToStdErr,
			},
			&cli.BoolFlag{
				Name:        "version",
				Usage:       "Prints the version and exits",
				Destination: &versionOnly,
			},
		},
		Action: func(*cli.Context) error {
			printVersion()
			return nil
		},
		Commands: []cli.Command{
			{
				Name:      "load",
				Usage:     "Maps the header of a CSV file and prints the rewritten batch",
				ArgsUsage: "<file.csv>",
				Flags: []cli.Flag{
					resourceFlag,
					&cli.StringFlag{
						Name:  "name",
						Usage: "Name of the data resource, fetched from the catalog if missing",
					},
					&cli.StringFlag{
						Name:  "package",
						Usage: "Id of the package owning the data resource",
					},
				},
				Action: withColumnMapper(load),
			},
			{
				Name:   "show",
				Usage:  "Prints the mapping of a resource",
				Flags:  []cli.Flag{resourceFlag},
				Action: withColumnMapper(show),
			},
			{
				Name:   "drop",
				Usage:  "Drops the mapping of a deleted resource",
				Flags:  []cli.Flag{resourceFlag},
				Action: withColumnMapper(drop),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func printVersion() {
	fmt.Fprintf(os.Stderr, "%s version %s (git revision %s; branch %s)\n",
		version.BinName, version.Version, version.CommitHash, version.Branch,
	)
}

type command func(ctx context.Context, c *cli.Context, columnMapper *mapper.ColumnMapper) error

func withColumnMapper(
	cmd command,
) func(c *cli.Context) error {

	return func(c *cli.Context) error {
		if versionOnly {
			printVersion()
			return nil
		}

		if c.String("resource") == "" {
			return cli.NewExitError("resource id required (--resource)", 2)
		}

		config, err := loadConfiguration()
		if err != nil {
			return err
		}

		columnMapper, err := internal.NewColumnMapper(config)
		if err != nil {
			return supporting.AdaptErrorWithMessage(err, "Failed to initialize", supporting.ExitCodeGeneric)
		}

		if err := columnMapper.Start(); err != nil {
			return supporting.AdaptErrorWithMessage(err, "Failed to start", supporting.ExitCodeGeneric)
		}
		defer func() {
			if err := columnMapper.Stop(); err != nil {
				fmt.Fprintf(os.Stderr, "Error when stopping: %v\n", err)
			}
		}()

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		return supporting.AdaptError(cmd(ctx, c, columnMapper), supporting.ExitCodeGeneric)
	}
}

func loadConfiguration() (*spiconfig.Config, error) {
	logging.WithCaller = withCaller
	logging.WithVerbose = verbose

	config := &spiconfig.Config{}

	// No configuration file set? Try env variable!
	if configurationFile == "" {
		if cf, present := os.LookupEnv(configEnvironmentVariable); present {
			fmt.Fprintf(os.Stderr, "Using configuration file from environment variable\n")
			configurationFile = cf
		}
	}

	if configurationFile != "" {
		fmt.Fprintf(os.Stderr, "Loading configuration file: %s\n", configurationFile)
		if err := spiconfig.LoadFile(configurationFile, config); err != nil {
			return nil, cli.NewExitError(fmt.Sprintf("Configuration file couldn't be loaded: %v\n", err), 6)
		}
	}

	if err := logging.InitializeLogging(config, logToStdErr); err != nil {
		return nil, err
	}

	if spiconfig.GetOrDefault(config, spiconfig.PropertyPostgresqlConnection, "") == "" {
		return nil, cli.NewExitError("PostgreSQL connection string required", 7)
	}
	return config, nil
}

func load(
	ctx context.Context, c *cli.Context, columnMapper *mapper.ColumnMapper,
) error {

	if c.NArg() != 1 {
		return cli.NewExitError("exactly one CSV file required", 2)
	}

	file, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()

	fields, records, err := readCsv(file)
	if err != nil {
		return err
	}

	request := &columnmapping.LoadRequest{
		ResourceId: c.String("resource"),
		Fields:     fields,
		Records:    records,
	}
	if name := c.String("name"); name != "" {
		request.Resource = &columnmapping.ResourceDescriptor{
			Id:        request.ResourceId,
			Name:      name,
			PackageId: c.String("package"),
		}
	}

	result, err := columnMapper.Map(ctx, request)
	if err != nil {
		return err
	}

	return encoding.NewIndentingJsonEncoder("  ").Encode(os.Stdout, struct {
		State   string                       `json:"state"`
		Rebuilt bool                         `json:"rebuilt"`
		Fields  []columnmapping.Field        `json:"fields"`
		Mapping []columnmapping.MappingEntry `json:"mapping"`
		Records int                          `json:"records"`
	}{
		State:   result.State.String(),
		Rebuilt: result.Rebuilt,
		Fields:  result.Fields,
		Mapping: result.Entries,
		Records: len(result.Records),
	})
}

func show(
	ctx context.Context, c *cli.Context, columnMapper *mapper.ColumnMapper,
) error {

	entries, err := columnMapper.Mapping(ctx, c.String("resource"))
	if err != nil {
		return err
	}
	printEntries(os.Stdout, c.String("resource"), entries)
	return nil
}

func drop(
	ctx context.Context, c *cli.Context, columnMapper *mapper.ColumnMapper,
) error {

	resourceId := c.String("resource")
	if err := columnMapper.DeleteResource(ctx, resourceId); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Dropped mapping of resource %s\n", resourceId)
	return nil
}

func printEntries(
	writer io.Writer, resourceId string, entries []columnmapping.MappingEntry,
) {

	if len(entries) == 0 {
		fmt.Fprintf(writer, "Resource %s has no mapping\n", resourceId)
		return
	}

	fmt.Fprintf(writer, "Mapping of resource %s (%s):\n",
		color.Bold.Sprint(resourceId), columnmapping.MappingTableName(resourceId),
	)
	for _, entry := range entries {
		fmt.Fprintf(writer, "  %s => %s %s\n",
			color.Cyan.Sprint(entry.OriginalName),
			color.Green.Sprint(entry.MappedName),
			color.FgDarkGray.Sprintf("(%s)", entry.ColumnType),
		)
	}
}
