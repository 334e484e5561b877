package services

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abrezinsky/gatecheck/internal/logger"
	"github.com/abrezinsky/gatecheck/internal/repository"
)

const maxLabelLength = 80

// EndpointSetter receives check-in endpoint changes
type EndpointSetter interface {
	SetBaseURL(url string)
}

// LabelSetter receives event label changes
type LabelSetter interface {
	SetLabel(label string)
}

// Settings is the kiosk configuration stored in the database
type Settings struct {
	CheckInURL    string `json:"checkin_url"`
	EventLabel    string `json:"event_label"`
	TicketBaseURL string `json:"ticket_base_url"`
}

// SettingsUpdate carries the fields to change; nil fields are left alone
type SettingsUpdate struct {
	CheckInURL    *string `json:"checkin_url"`
	EventLabel    *string `json:"event_label"`
	TicketBaseURL *string `json:"ticket_base_url"`
}

// SettingsService handles settings-related business logic
type SettingsService struct {
	log      logger.Logger
	repo     repository.SettingsRepository
	endpoint EndpointSetter

	mu     sync.Mutex
	labels []LabelSetter
}

// NewSettingsService creates a new SettingsService. endpoint may be nil.
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository, endpoint EndpointSetter) *SettingsService {
	return &SettingsService{log: log, repo: repo, endpoint: endpoint}
}

// AddLabelSetter registers a receiver for event label changes
func (s *SettingsService) AddLabelSetter(l LabelSetter) {
	s.mu.Lock()
	s.labels = append(s.labels, l)
	s.mu.Unlock()
}

// CheckInURL returns the configured check-in endpoint
func (s *SettingsService) CheckInURL(ctx context.Context) (string, error) {
	return s.optional(ctx, repository.SettingCheckInURL)
}

// SetCheckInURL validates and saves the check-in endpoint, then points the client at it
func (s *SettingsService) SetCheckInURL(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if !validHTTPURL(raw) {
		return ErrInvalidCheckInURL
	}
	if err := s.repo.SetSetting(ctx, repository.SettingCheckInURL, raw); err != nil {
		return err
	}
	if s.endpoint != nil {
		s.endpoint.SetBaseURL(raw)
	}
	s.log.Info("Check-in endpoint updated", "url", raw)
	return nil
}

// EventLabel returns the label shown in the kiosk header
func (s *SettingsService) EventLabel(ctx context.Context) (string, error) {
	return s.optional(ctx, repository.SettingEventLabel)
}

// SetEventLabel saves the kiosk label
func (s *SettingsService) SetEventLabel(ctx context.Context, label string) error {
	label = strings.TrimSpace(label)
	if utf8.RuneCountInString(label) > maxLabelLength {
		return ErrLabelTooLong
	}
	if err := s.repo.SetSetting(ctx, repository.SettingEventLabel, label); err != nil {
		return err
	}
	s.pushLabel(label)
	return nil
}

// TicketBaseURL returns the URL ticket QR codes point at; empty means raw codes
func (s *SettingsService) TicketBaseURL(ctx context.Context) (string, error) {
	return s.optional(ctx, repository.SettingTicketQRURL)
}

// SetTicketBaseURL saves the ticket URL. An empty value switches back to raw codes.
func (s *SettingsService) SetTicketBaseURL(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" && !validHTTPURL(raw) {
		return ErrInvalidTicketURL
	}
	return s.repo.SetSetting(ctx, repository.SettingTicketQRURL, raw)
}

// AllSettings returns every kiosk setting
func (s *SettingsService) AllSettings(ctx context.Context) (*Settings, error) {
	stored, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &Settings{
		CheckInURL:    stored[repository.SettingCheckInURL],
		EventLabel:    stored[repository.SettingEventLabel],
		TicketBaseURL: stored[repository.SettingTicketQRURL],
	}, nil
}

// UpdateSettings applies the non-nil fields. Every field is validated before anything is saved.
func (s *SettingsService) UpdateSettings(ctx context.Context, update SettingsUpdate) (*Settings, error) {
	if update.CheckInURL != nil && !validHTTPURL(strings.TrimSpace(*update.CheckInURL)) {
		return nil, ErrInvalidCheckInURL
	}
	if update.TicketBaseURL != nil {
		if v := strings.TrimSpace(*update.TicketBaseURL); v != "" && !validHTTPURL(v) {
			return nil, ErrInvalidTicketURL
		}
	}
	if update.EventLabel != nil && utf8.RuneCountInString(strings.TrimSpace(*update.EventLabel)) > maxLabelLength {
		return nil, ErrLabelTooLong
	}

	if update.CheckInURL != nil {
		if err := s.SetCheckInURL(ctx, *update.CheckInURL); err != nil {
			return nil, err
		}
	}
	if update.EventLabel != nil {
		if err := s.SetEventLabel(ctx, *update.EventLabel); err != nil {
			return nil, err
		}
	}
	if update.TicketBaseURL != nil {
		if err := s.SetTicketBaseURL(ctx, *update.TicketBaseURL); err != nil {
			return nil, err
		}
	}
	return s.AllSettings(ctx)
}

// Apply pushes stored settings into the running components. A stored endpoint
// wins over fallbackURL; fallbackURL is saved when nothing is stored yet.
func (s *SettingsService) Apply(ctx context.Context, fallbackURL string) error {
	endpoint, err := s.CheckInURL(ctx)
	if err != nil {
		return err
	}
	if endpoint == "" && fallbackURL != "" {
		if err := s.SetCheckInURL(ctx, fallbackURL); err != nil {
			return err
		}
		endpoint = strings.TrimSpace(fallbackURL)
	}
	if s.endpoint != nil && endpoint != "" {
		s.endpoint.SetBaseURL(endpoint)
	}

	label, err := s.EventLabel(ctx)
	if err != nil {
		return err
	}
	s.pushLabel(label)

	if endpoint == "" {
		s.log.Warn("No check-in endpoint configured; every validation will fail until one is set")
	}
	return nil
}

func (s *SettingsService) pushLabel(label string) {
	s.mu.Lock()
	labels := append([]LabelSetter(nil), s.labels...)
	s.mu.Unlock()
	for _, l := range labels {
		l.SetLabel(label)
	}
}

// optional reads a setting, treating a missing row as empty
func (s *SettingsService) optional(ctx context.Context, key string) (string, error) {
	value, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
