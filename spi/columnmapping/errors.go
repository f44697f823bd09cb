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

package columnmapping

import (
	"fmt"
	"github.com/go-errors/errors"
	"time"
)

// ErrSchemaMismatchRecovered signals that a persisted mapping
// diverged from the incoming field set and was rebuilt. It is
// never returned to callers of the reconciliation entry point.
var ErrSchemaMismatchRecovered = errors.Errorf("mapping schema mismatch recovered")

// MissingFieldsError is returned when a batch carries no
// field descriptors.
type MissingFieldsError struct {
	ResourceId string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("no fields given for resource '%s'", e.ResourceId)
}

// StorageTimeoutError is returned when the existence check of
// a mapping table exceeds the configured statement timeout.
type StorageTimeoutError struct {
	TableName string
	Timeout   time.Duration
	Err       error
}

func (e *StorageTimeoutError) Error() string {
	return fmt.Sprintf("existence check of table '%s' exceeded %s: %v", e.TableName, e.Timeout, e.Err)
}

func (e *StorageTimeoutError) Unwrap() error {
	return e.Err
}

// StorageEngineError wraps any other failure reported by the
// storage engine or the resource catalog.
type StorageEngineError struct {
	Operation string
	Err       error
}

func (e *StorageEngineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Operation, e.Err)
}

func (e *StorageEngineError) Unwrap() error {
	return e.Err
}

// NewStorageEngineError wraps err unless it is already part of
// the error taxonomy.
func NewStorageEngineError(
	operation string, err error,
) error {

	if err == nil {
		return nil
	}
	if IsStorageTimeout(err) {
		return err
	}
	var engineError *StorageEngineError
	if errors.As(err, &engineError) {
		return err
	}
	return &StorageEngineError{
		Operation: operation,
		Err:       err,
	}
}

func IsMissingFields(
	err error,
) bool {

	var e *MissingFieldsError
	return errors.As(err, &e)
}

func IsStorageTimeout(
	err error,
) bool {

	var e *StorageTimeoutError
	return errors.As(err, &e)
}

func IsStorageEngineError(
	err error,
) bool {

	var e *StorageEngineError
	return errors.As(err, &e)
}
