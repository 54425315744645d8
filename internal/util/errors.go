// Copyright 2024 The Conveyor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"github.com/sorintlab/errors"
)

type ErrorKind int

const (
	ErrBadRequest ErrorKind = iota
	ErrNotExist
	ErrForbidden
	ErrUnauthorized
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrBadRequest:
		return "badrequest"
	case ErrNotExist:
		return "notexist"
	case ErrForbidden:
		return "forbidden"
	case ErrUnauthorized:
		return "unauthorized"
	case ErrInternal:
		return "internal"
	}

	return "unknown"
}

// APIError is an error to be reported to the api caller. It wraps the
// causing error and carries the error kind used for the http status mapping
// plus an optional machine readable code and human readable message.
type APIError struct {
	err error

	Kind    ErrorKind
	Code    string
	Message string
}

type APIErrorOption func(e *APIError)

func WithCode(code string) APIErrorOption {
	return func(e *APIError) {
		e.Code = code
	}
}

func WithMessage(message string) APIErrorOption {
	return func(e *APIError) {
		e.Message = message
	}
}

func NewAPIError(kind ErrorKind, err error, opts ...APIErrorOption) error {
	derr := &APIError{err: err, Kind: kind}

	for _, opt := range opts {
		opt(derr)
	}

	return errors.WithStack(derr)
}

func (e *APIError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}

	return e.Kind.String()
}

func (e *APIError) Unwrap() error {
	return e.err
}

func AsAPIError(err error) (*APIError, bool) {
	var apiError *APIError
	return apiError, errors.As(err, &apiError)
}

func APIErrorIs(err error, kind ErrorKind) bool {
	if apiError, ok := AsAPIError(err); ok && apiError.Kind == kind {
		return true
	}

	return false
}
