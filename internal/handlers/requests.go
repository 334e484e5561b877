package handlers

// ValidateRequest represents manually entered ticket text
type ValidateRequest struct {
	Text string `json:"text"`
}

// VisibilityRequest reports the kiosk page visibility
type VisibilityRequest struct {
	Hidden bool `json:"hidden"`
}

// SettingsUpdateRequest represents a request to update settings; omitted fields are unchanged
type SettingsUpdateRequest struct {
	CheckInURL    *string `json:"checkin_url"`
	EventLabel    *string `json:"event_label"`
	TicketBaseURL *string `json:"ticket_base_url"`
}
