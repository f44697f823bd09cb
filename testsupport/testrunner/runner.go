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

package testrunner

import (
	"context"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	spiconfig "github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/testsupport/containers"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"testing"
)

var logger *logging.Logger

func init() {
	l, err := logging.NewLogger("TestRunner")
	if err != nil {
		panic(err)
	}
	logger = l
}

// TestRunner is the base of test suites requiring a running
// PostgreSQL. The container is shared by all tests of the suite
// and the suite is skipped in short mode or without docker.
type TestRunner struct {
	suite.Suite
	container  testcontainers.Container
	connection string
	pool       *pgxpool.Pool
}

func (tr *TestRunner) SetupSuite() {
	if testing.Short() {
		tr.T().Skip("requires docker")
	}

	container, connection, err := containers.SetupPostgresContainer()
	if err != nil {
		tr.T().Skipf("postgres container not available: %v", err)
	}
	tr.container = container
	tr.connection = connection

	pool, err := pgxpool.New(context.Background(), connection)
	if err != nil {
		tr.FailNow("failed to connect to postgres", err)
	}
	tr.pool = pool
}

func (tr *TestRunner) TearDownSuite() {
	if tr.pool != nil {
		tr.pool.Close()
	}
	if tr.container != nil {
		if err := tr.container.Terminate(context.Background()); err != nil {
			logger.Warnf("failed to terminate postgres container: %v", err)
		}
	}
}

func (tr *TestRunner) Pool() *pgxpool.Pool {
	return tr.pool
}

func (tr *TestRunner) ConnectionString() string {
	return tr.connection
}

// Config returns a configuration pointing at the container,
// adjusted by the given configurators
func (tr *TestRunner) Config(
	configurators ...func(config *spiconfig.Config),
) *spiconfig.Config {

	config := &spiconfig.Config{
		PostgreSQL: spiconfig.PostgreSQLConfig{
			Connection: tr.connection,
			Schema:     containers.DatabaseSchema,
		},
	}
	for _, configurator := range configurators {
		configurator(config)
	}
	return config
}

// ColumnNames reads the column names of a table in the test
// schema in their ordinal order
func (tr *TestRunner) ColumnNames(
	tableName string,
) []string {

	rows, err := tr.pool.Query(context.Background(),
		"SELECT column_name FROM information_schema.columns "+
			"WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position",
		containers.DatabaseSchema, tableName,
	)
	tr.Require().NoError(err)

	columnNames, err := pgx.CollectRows(rows, pgx.RowTo[string])
	tr.Require().NoError(err)
	return columnNames
}

// TableExists checks the catalog directly, bypassing the storage
// implementation under test
func (tr *TestRunner) TableExists(
	tableName string,
) bool {

	var found bool
	err := tr.pool.QueryRow(context.Background(),
		"SELECT EXISTS(SELECT 1 FROM pg_catalog.pg_tables WHERE schemaname = $1 AND tablename = $2)",
		containers.DatabaseSchema, tableName,
	).Scan(&found)
	tr.Require().NoError(err)
	return found
}
