package domain

import "errors"

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrTicketAlreadyExists = errors.New("ticket already exists")
	ErrInvalidOwner        = errors.New("invalid ticket owner")
	ErrMetadataTooLarge    = errors.New("metadata exceeds maximum length")
	ErrInvalidIdentity     = errors.New("invalid identity")
)
