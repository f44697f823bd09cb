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

package supporting

import (
	"fmt"
	"github.com/noctarius/datastore-column-mapper/spi/columnmapping"
	"github.com/urfave/cli"
)

const (
	ExitCodeGeneric       = 1
	ExitCodeMissingFields = 3
	ExitCodeTimeout       = 4
	ExitCodeStorageEngine = 5
)

// AdaptError converts err into a cli exit error, deriving the
// exit code from the mapping error taxonomy where possible
func AdaptError(
	err error, exitCode int,
) error {

	if err == nil {
		return nil
	}
	if e, ok := err.(*cli.ExitError); ok {
		return e
	}
	return cli.NewExitError(err.Error(), exitCodeOf(err, exitCode))
}

func AdaptErrorWithMessage(
	err error, msg string, exitCode int,
) error {

	if err == nil {
		return nil
	}
	if e, ok := err.(*cli.ExitError); ok {
		return e
	}
	return cli.NewExitError(fmt.Sprintf("%s => err: %s", msg, err.Error()), exitCodeOf(err, exitCode))
}

func exitCodeOf(
	err error, fallback int,
) int {

	switch {
	case columnmapping.IsMissingFields(err):
		return ExitCodeMissingFields
	case columnmapping.IsStorageTimeout(err):
		return ExitCodeTimeout
	case columnmapping.IsStorageEngineError(err):
		return ExitCodeStorageEngine
	}
	return fallback
}
