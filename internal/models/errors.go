package models

import "errors"

var (
	ErrMissingPhone      = errors.New("phone number is required")
	ErrMissingName       = errors.New("client name is required")
	ErrInvalidClientType = errors.New("client type must be individual or fleet")
	ErrInvalidLocation   = errors.New("latitude must be within ±90 and longitude within ±180")
)
