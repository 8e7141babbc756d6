// Copyright 2015-2018 trivago N.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package kerrors defines the typed service errors every handler returns
// and the HTTP status / wire __type mapping the transport layer needs to
// render them the way the real service does.
package kerrors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is one of the wire error codes named in spec §7.
type Kind string

// Error kinds.
const (
	InvalidArgument               Kind = "InvalidArgumentException"
	ValidationError               Kind = "ValidationException"
	ResourceNotFound              Kind = "ResourceNotFoundException"
	ResourceInUse                 Kind = "ResourceInUseException"
	LimitExceeded                 Kind = "LimitExceededException"
	ProvisionedThroughputExceeded Kind = "ProvisionedThroughputExceededException"
	ExpiredIterator               Kind = "ExpiredIteratorException"
	ExpiredNextToken              Kind = "ExpiredNextTokenException"
	KMSAccessDenied               Kind = "KMSAccessDeniedException"
	InternalFailure               Kind = "InternalFailure"
)

// HTTPStatus returns the status code this kind is rendered with for a
// handler response outside of PutRecord/GetRecords, where spec §6 calls
// for a dedicated 509 instead - see ThrottleHTTPStatus.
func (k Kind) HTTPStatus() int {
	if k == InternalFailure {
		return 500
	}
	return 400
}

// ThrottleHTTPStatus returns the status a single-record throughput
// rejection (PutRecord, GetRecords) is rendered with, per spec §6.
const ThrottleHTTPStatus = 509

// ServiceError is the typed error every handler returns. It carries the
// wire __type and a human message, and wraps an optional cause so
// internal diagnostics are not lost on the way to the client response.
type ServiceError struct {
	Kind    Kind
	Message string
	cause   error
}

// New creates a ServiceError with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an InternalFailure ServiceError around an unexpected error,
// preserving it as the cause for logging.
func Wrap(err error, context string) *ServiceError {
	return &ServiceError{
		Kind:    InternalFailure,
		Message: context,
		cause:   errors.Wrap(err, context),
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Cause returns the wrapped error, if any, satisfying github.com/pkg/errors'
// causer interface so errors.Cause(e) unwraps correctly.
func (e *ServiceError) Cause() error {
	return e.cause
}

// FieldErrors accumulates per-field validation problems and, once asked
// to build an error, joins them into a single ValidationException the
// way spec §7 requires - clients get every problem in one response
// instead of playing whack-a-mole with one InvalidArgumentException at
// a time.
type FieldErrors struct {
	messages []string
}

// Addf records one field problem.
func (f *FieldErrors) Addf(format string, args ...interface{}) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

// Any reports whether any problems were recorded.
func (f *FieldErrors) Any() bool {
	return len(f.messages) > 0
}

// Err returns nil if no problems were recorded, or a single
// ValidationException joining every recorded message with ", " otherwise.
func (f *FieldErrors) Err() error {
	if !f.Any() {
		return nil
	}
	return New(ValidationError, "%s", strings.Join(f.messages, ", "))
}
