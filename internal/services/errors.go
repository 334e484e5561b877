package services

import "github.com/abrezinsky/gatecheck/internal/errors"

// Service errors
var (
	ErrInvalidCheckInURL = errors.Validation("check-in URL must be an absolute http or https URL")
	ErrInvalidTicketURL  = errors.Validation("ticket base URL must be an absolute http or https URL")
	ErrInvalidTicketCode = errors.InvalidInput("not a ticket code")
	ErrInvalidQRSize     = errors.InvalidInput("size must be between 64 and 1024")
	ErrLabelTooLong      = errors.Validation("event label must be at most 80 characters")
)
