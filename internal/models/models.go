package models

import "time"

// OutcomeKind classifies a check-in response
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeAlready     OutcomeKind = "already"
	OutcomePending     OutcomeKind = "pending"
	OutcomeNotFound    OutcomeKind = "notfound"
	OutcomeRateLimited OutcomeKind = "ratelimited"
	OutcomeError       OutcomeKind = "error"
)

// OutcomeKinds lists every kind in display order
var OutcomeKinds = []OutcomeKind{
	OutcomeSuccess,
	OutcomeAlready,
	OutcomePending,
	OutcomeNotFound,
	OutcomeRateLimited,
	OutcomeError,
}

// ScanResult is one successful optical decode
type ScanResult struct {
	RawText string `json:"raw_text"`
	Format  string `json:"format"`
}

// Ticket is the attendee ticket as returned by the check-in endpoint
type Ticket struct {
	FullName    string `json:"full_name"`
	TicketCode  string `json:"ticket_code"`
	CheckedInAt string `json:"checked_in_at,omitempty"`
}

// Event is the event a ticket belongs to
type Event struct {
	Title string `json:"title"`
}

// OutcomeData carries the optional ticket/event payload of an outcome
type OutcomeData struct {
	Ticket *Ticket `json:"ticket,omitempty"`
	Event  *Event  `json:"event,omitempty"`
}

// CheckInOutcome is the result of validating a ticket code
type CheckInOutcome struct {
	Kind    OutcomeKind  `json:"kind"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Data    *OutcomeData `json:"data,omitempty"`
}

// Modal is the result dialog shown to the operator
type Modal struct {
	Open    bool         `json:"open"`
	Type    OutcomeKind  `json:"type,omitempty"`
	Title   string       `json:"title,omitempty"`
	Message string       `json:"message,omitempty"`
	Data    *OutcomeData `json:"data,omitempty"`
}

// Permission values mirror the browser permission states
const (
	PermissionUnknown = "unknown"
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// SessionSnapshot is everything a kiosk page needs to render the scan session
type SessionSnapshot struct {
	SessionID      string          `json:"session_id"`
	Phase          string          `json:"phase"`
	Scanning       bool            `json:"scanning"`
	Loading        bool            `json:"loading"`
	Error          string          `json:"error,omitempty"`
	Permission     string          `json:"permission"`
	TorchSupported bool            `json:"torch_supported"`
	TorchOn        bool            `json:"torch_on"`
	LastText       string          `json:"last_text"`
	LastFormat     string          `json:"last_format"`
	Verifying      bool            `json:"verifying"`
	Paused         bool            `json:"paused"`
	CheckStatus    *CheckInOutcome `json:"check_status"`
	Modal          Modal           `json:"modal"`
}

// Scan sources
const (
	SourceCamera = "camera"
	SourceManual = "manual"
)

// ScanRecord is one answered validation, kept in the local journal
type ScanRecord struct {
	ID          int64       `json:"id"`
	SessionID   string      `json:"session_id"`
	Code        string      `json:"code"`
	RawText     string      `json:"raw_text"`
	Format      string      `json:"format"`
	Source      string      `json:"source"`
	Kind        OutcomeKind `json:"kind"`
	Message     string      `json:"message"`
	Attendee    string      `json:"attendee,omitempty"`
	EventTitle  string      `json:"event_title,omitempty"`
	CheckedInAt string      `json:"checked_in_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ScanStats counts journal entries per outcome kind
type ScanStats struct {
	Total  int                 `json:"total"`
	ByKind map[OutcomeKind]int `json:"by_kind"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
