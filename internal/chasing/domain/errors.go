package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrCadenceNotFound     = errors.New("cadence_not_found")
	ErrUnknownAction       = errors.New("unknown_action")
	ErrSenderUnavailable   = errors.New("sender_unavailable")
)
