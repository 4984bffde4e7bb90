// Package services defines the business logic for the request lifecycle, the
// operator access gate, and the dashboard. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrRequestNotFound indicates that the requested service request does
	// not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidServiceType is returned when a submission names a service
	// type outside the fixed enumeration.
	ErrInvalidServiceType = errors.New("unrecognized service type")

	// ErrMissingField is returned when a submission lacks a required
	// submitter field (full name, NIK, or phone number).
	ErrMissingField = errors.New("full name, NIK and phone number are required")

	// ErrInvalidStatus is returned when an update names a status outside the
	// fixed enumeration.
	ErrInvalidStatus = errors.New("unrecognized status")

	// ErrDocumentTooLarge is returned when an attached document exceeds the
	// configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds the maximum allowed size")

	// ErrDocumentType is returned when an attached document has a media type
	// outside the allowed set.
	ErrDocumentType = errors.New("document type not allowed")

	// ErrDuplicateRequestNumber is returned when both the generated request
	// number and the timestamp fallback collide; the submission cannot be
	// persisted.
	ErrDuplicateRequestNumber = errors.New("request number already taken")

	// ErrNotOperator is returned when a principal without the operator or
	// admin role attempts a dashboard mutation.
	ErrNotOperator = errors.New("operator role required")
)
