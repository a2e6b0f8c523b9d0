/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks a user-cancelled external step (dialog closed, capture aborted).
var ErrCancelled = errors.New("cancelled")

// ValidationError reports bad input. The model is left untouched.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	if len(e.Messages) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Add appends a formatted message.
func (e *ValidationError) Add(format string, args ...any) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

// OrNil returns e when it holds messages, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Messages) == 0 {
		return nil
	}
	return e
}

func invalid(format string, args ...any) error {
	return &ValidationError{Messages: []string{fmt.Sprintf(format, args...)}}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ExternalIOError wraps a failure of a host collaborator: persistence,
// printer enumeration or print submission.
type ExternalIOError struct {
	Op  string
	Err error
}

func (e *ExternalIOError) Error() string {
	if e.Err == nil {
		return e.Op + ": failed"
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ExternalIOError) Unwrap() error { return e.Err }

// ExternalIO wraps err as an ExternalIOError unless it is nil.
func ExternalIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalIOError{Op: op, Err: err}
}
