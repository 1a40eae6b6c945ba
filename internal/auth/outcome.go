// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Loginsys Contributors

package auth

import "errors"

// Outcome is the caller-facing result category of a service call.
type Outcome int

// Outcomes. The zero value is OutcomeSuccess.
const (
	OutcomeSuccess Outcome = iota
	OutcomeCreated
	OutcomeBadRequest
	OutcomeConflict
	OutcomeUnauthorized
	OutcomeForbidden
	OutcomeNotFound
	OutcomeServiceUnavailable
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:            "success",
	OutcomeCreated:            "created",
	OutcomeBadRequest:         "bad_request",
	OutcomeConflict:           "conflict",
	OutcomeUnauthorized:       "unauthorized",
	OutcomeForbidden:          "forbidden",
	OutcomeNotFound:           "not_found",
	OutcomeServiceUnavailable: "service_unavailable",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Classify maps an error returned by this package's services onto an Outcome.
// A nil error is OutcomeSuccess. Anything unrecognised is treated as a
// collaborator failure, so an infrastructure fault can never surface as a
// credential or validation decision.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}

	var verr *ValidationError
	switch {
	case errors.Is(err, ErrUnavailable):
		return OutcomeServiceUnavailable
	case errors.As(err, &verr):
		return OutcomeBadRequest
	case errors.Is(err, ErrUsernameTaken):
		return OutcomeConflict
	case errors.Is(err, ErrInvalidCredentials):
		return OutcomeUnauthorized
	case errors.Is(err, ErrAccountInactive):
		return OutcomeForbidden
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeServiceUnavailable
	}
}
