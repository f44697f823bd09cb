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

package containers

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"time"
)

const (
	postgresImage  = "postgres:16-alpine"
	databaseName   = "datastore"
	DatabaseSchema = "datastore"
	postgresUser   = "postgres"
	postgresPass   = "postgres"
	datastoreUser  = "datastore"
	datastorePass  = "datastore"
)

// SetupPostgresContainer starts a PostgreSQL container with a
// non-superuser login owning DatabaseSchema and returns its
// connection string
func SetupPostgresContainer() (testcontainers.Container, string, error) {
	containerRequest := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Cmd:          []string{"-c", "fsync=off"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(time.Minute),
		Env: map[string]string{
			"POSTGRES_DB":       databaseName,
			"POSTGRES_PASSWORD": postgresPass,
			"POSTGRES_USER":     postgresUser,
		},
	}

	logger, err := logging.NewLogger("testcontainers")
	if err != nil {
		return nil, "", err
	}
	postgresLogger, err := logging.NewLogger("testcontainers-postgres")
	if err != nil {
		return nil, "", err
	}

	container, err := testcontainers.GenericContainer(
		context.Background(),
		testcontainers.GenericContainerRequest{
			ContainerRequest: containerRequest,
			Started:          true,
			Logger:           logger,
		},
	)
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(context.Background())
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}

	port, err := container.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}

	config, err := pgx.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		postgresUser, postgresPass, host, port.Int(), databaseName))
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, "", err
	}

	var conn *pgx.Conn
	for i := 0; ; i++ {
		conn, err = pgx.ConnectConfig(context.Background(), config)
		if err != nil {
			if i == 9 {
				_ = container.Terminate(context.Background())
				return nil, "", err
			} else {
				time.Sleep(time.Second)
			}
		} else {
			break
		}
	}
	defer conn.Close(context.Background())

	exec := func(query string) error {
		if _, err := conn.Exec(context.Background(), query); err != nil {
			_ = container.Terminate(context.Background())
			return err
		}
		return nil
	}

	postgresLogger.Verbosef("Create default user login")
	if err := exec(
		fmt.Sprintf("CREATE ROLE %s LOGIN ENCRYPTED PASSWORD '%s'", datastoreUser, datastorePass),
	); err != nil {
		return nil, "", err
	}
	postgresLogger.Verbosef("Create %s schema", DatabaseSchema)
	if err := exec(
		fmt.Sprintf("CREATE SCHEMA %s AUTHORIZATION %s", DatabaseSchema, datastoreUser),
	); err != nil {
		return nil, "", err
	}

	return container, fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		datastoreUser, datastorePass, host, port.Int(), databaseName), nil
}
