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

package pgstorage

import (
	"context"
	"fmt"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-errors/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/noctarius/datastore-column-mapper/internal/supporting/logging"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/noctarius/datastore-column-mapper/spi/config"
	"github.com/noctarius/datastore-column-mapper/spi/storage"
	"github.com/noctarius/datastore-column-mapper/spi/version"
	"time"
)

const tableExistsQuery = `
SELECT EXISTS (
    SELECT 1
    FROM pg_catalog.pg_tables
    WHERE schemaname = $1
      AND tablename = $2
)`

const serverVersionQuery = "SHOW SERVER_VERSION"

// PostgresStorage implements storage.Storage on top of a pgx
// connection pool
type PostgresStorage struct {
	logger         *logging.Logger
	pool           *pgxpool.Pool
	schema         string
	connectTimeout time.Duration
	serverVersion  version.PostgresVersion
}

func NewPostgresStorage(
	c *config.Config,
) (*PostgresStorage, error) {

	connection := config.GetOrDefault(c, config.PropertyPostgresqlConnection, "host=localhost user=postgres")
	poolConfig, err := pgxpool.ParseConfig(connection)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	if password := config.GetOrDefault(c, config.PropertyPostgresqlPassword, ""); password != "" {
		poolConfig.ConnConfig.Password = password
	}
	if maxConnections := config.GetOrDefault(c, config.PropertyPostgresqlPoolMaxConnections, int32(0)); maxConnections > 0 {
		poolConfig.MaxConns = maxConnections
	}

	connectTimeout := time.Second * time.Duration(
		config.GetOrDefault(c, config.PropertyPostgresqlConnectTimeout, config.DefaultConnectTimeoutSeconds),
	)
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	schema := config.GetOrDefault(c, config.PropertyPostgresqlSchema, config.DefaultPostgresqlSchema)
	return NewPostgresStorageWithPoolConfig(poolConfig, schema, connectTimeout)
}

func NewPostgresStorageWithPoolConfig(
	poolConfig *pgxpool.Config, schema string, connectTimeout time.Duration,
) (*PostgresStorage, error) {

	logger, err := logging.NewLogger("PostgresStorage")
	if err != nil {
		return nil, err
	}

	// The pool connects lazily, Start verifies the connection
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	return &PostgresStorage{
		logger:         logger,
		pool:           pool,
		schema:         schema,
		connectTimeout: connectTimeout,
	}, nil
}

// Pool returns the underlying connection pool
func (ps *PostgresStorage) Pool() *pgxpool.Pool {
	return ps.pool
}

func (ps *PostgresStorage) ServerVersion() version.PostgresVersion {
	return ps.serverVersion
}

func (ps *PostgresStorage) Start() error {
	operation := func() error {
		return ps.newSession(context.Background(), ps.connectTimeout, func(session *session) error {
			var serverVersion string
			if err := session.queryRow(serverVersionQuery).Scan(&serverVersion); err != nil {
				ps.logger.Warnf("Connection attempt failed: %s", err.Error())
				return err
			}

			pgVersion, err := version.ParsePostgresVersion(serverVersion)
			if err != nil {
				return backoff.Permanent(err)
			}
			if pgVersion.Compare(version.PG_MIN_VERSION) < 0 {
				return backoff.Permanent(errors.Errorf(
					"PostgreSQL %s is not supported, requires at least %s", pgVersion, version.PG_MIN_VERSION,
				))
			}
			ps.serverVersion = pgVersion
			return nil
		})
	}

	if err := backoff.Retry(operation, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)); err != nil {
		return errors.Wrap(err, 0)
	}

	ps.logger.Infof("Connected to PostgreSQL %s, mapping tables in schema '%s'", ps.serverVersion, ps.schema)
	return nil
}

func (ps *PostgresStorage) Stop() error {
	ps.pool.Close()
	return nil
}

func (ps *PostgresStorage) QualifiedName(
	tableName string,
) string {

	return pgx.Identifier{ps.schema, tableName}.Sanitize()
}

func (ps *PostgresStorage) TableExists(
	ctx context.Context, tableName string, timeout time.Duration,
) (found bool, err error) {

	err = ps.newSession(ctx, timeout, func(session *session) error {
		return session.queryRow(tableExistsQuery, ps.schema, tableName).Scan(&found)
	})
	if err != nil {
		if isTimeout(ctx, err) {
			return false, &columnmapping.StorageTimeoutError{
				TableName: tableName,
				Timeout:   timeout,
				Err:       err,
			}
		}
		return false, errors.Wrap(err, 0)
	}
	return found, nil
}

func (ps *PostgresStorage) Execute(
	ctx context.Context, query string, args ...any,
) ([]storage.Row, error) {

	return execute(ctx, ps.pool, query, args...)
}

func (ps *PostgresStorage) InTransaction(
	ctx context.Context, fn func(executor storage.Executor) error,
) error {

	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		return fn(&txExecutor{tx: tx})
	})
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func execute(
	ctx context.Context, querier querier, query string, args ...any,
) ([]storage.Row, error) {

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return result, nil
}

type txExecutor struct {
	tx pgx.Tx
}

func (t *txExecutor) Execute(
	ctx context.Context, query string, args ...any,
) ([]storage.Row, error) {

	return execute(ctx, t.tx, query, args...)
}

func (ps *PostgresStorage) newSession(
	ctx context.Context, timeout time.Duration, fn func(session *session) error,
) error {

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	connection, err := ps.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer connection.Release()

	return fn(&session{
		connection: connection,
		ctx:        ctx,
	})
}

type session struct {
	connection *pgxpool.Conn
	ctx        context.Context
}

func (s *session) queryRow(
	query string, args ...any,
) pgx.Row {

	return s.connection.QueryRow(s.ctx, query, args...)
}

func isTimeout(
	ctx context.Context, err error,
) bool {

	if errors.Is(err, context.DeadlineExceeded) {
		// Only the session's deadline counts, not the caller's cancellation
		return ctx.Err() == nil || errors.Is(ctx.Err(), context.DeadlineExceeded)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.QueryCanceled
	}
	return false
}

func (ps *PostgresStorage) String() string {
	return fmt.Sprintf("PostgresStorage{schema=%s}", ps.schema)
}
