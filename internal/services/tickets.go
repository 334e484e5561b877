package services

import (
	"context"
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/ticketcode"
)

// QR image bounds in pixels
const (
	DefaultQRSize = 256
	MinQRSize     = 64
	MaxQRSize     = 1024
)

// TicketBaseURLSource provides the URL ticket QR codes point at
type TicketBaseURLSource interface {
	TicketBaseURL(ctx context.Context) (string, error)
}

// StaticBaseURL is a fixed ticket base URL
type StaticBaseURL string

// TicketBaseURL implements TicketBaseURLSource
func (u StaticBaseURL) TicketBaseURL(ctx context.Context) (string, error) {
	return string(u), nil
}

// TicketQRService renders ticket codes as QR labels for testing and reprints
type TicketQRService struct {
	log  logger.Logger
	base TicketBaseURLSource
}

// NewTicketQRService creates a new TicketQRService. base may be nil for raw-code labels.
func NewTicketQRService(log logger.Logger, base TicketBaseURLSource) *TicketQRService {
	return &TicketQRService{log: log, base: base}
}

// Content returns the text encoded in the label for code: either the code itself
// or the ticket URL with a code query parameter. Both extract back to the same code.
func (s *TicketQRService) Content(ctx context.Context, code string) (string, error) {
	normalized := ticketcode.Extract(code)
	if !ticketcode.Looks(normalized) {
		return "", ErrInvalidTicketCode
	}

	if s.base == nil {
		return normalized, nil
	}
	base, err := s.base.TicketBaseURL(ctx)
	if err != nil {
		return "", fmt.Errorf("error reading ticket base URL: %w", err)
	}
	if base == "" {
		return normalized, nil
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", ErrInvalidTicketURL
	}
	q := u.Query()
	q.Set("code", normalized)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// QRImage renders the label as a PNG. size 0 means DefaultQRSize.
func (s *TicketQRService) QRImage(ctx context.Context, code string, size int) ([]byte, error) {
	if size == 0 {
		size = DefaultQRSize
	}
	if size < MinQRSize || size > MaxQRSize {
		return nil, ErrInvalidQRSize
	}
	content, err := s.Content(ctx, code)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(content, qrcode.Medium, size)
}
