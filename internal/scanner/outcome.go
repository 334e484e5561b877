package scanner

import (
	"fmt"
	"net/http"

	"github.com/abrezinsky/gatecheck/internal/models"
	"github.com/abrezinsky/gatecheck/pkg/checkinapi"
)

var titles = map[models.OutcomeKind]string{
	models.OutcomeSuccess:     "Check-in successful",
	models.OutcomeAlready:     "Already checked in",
	models.OutcomePending:     "Payment pending",
	models.OutcomeNotFound:    "Ticket not found",
	models.OutcomeRateLimited: "Too many scans",
	models.OutcomeError:       "Check-in failed",
}

// Title returns the modal title for kind
func Title(kind models.OutcomeKind) string {
	if t, ok := titles[kind]; ok {
		return t
	}
	return titles[models.OutcomeError]
}

// KindForStatus maps an HTTP status from the check-in endpoint to an outcome kind
func KindForStatus(status int) models.OutcomeKind {
	switch {
	case status >= 200 && status < 300:
		return models.OutcomeSuccess
	case status == http.StatusConflict:
		return models.OutcomeAlready
	case status == http.StatusBadRequest:
		return models.OutcomePending
	case status == http.StatusNotFound:
		return models.OutcomeNotFound
	case status == http.StatusTooManyRequests:
		return models.OutcomeRateLimited
	default:
		return models.OutcomeError
	}
}

// MapResponse turns a check-in answer (or the failure to get one) into an outcome
func MapResponse(code string, resp *checkinapi.CheckInResponse, err error) models.CheckInOutcome {
	if err != nil || resp == nil {
		reason := "no response"
		if err != nil {
			reason = err.Error()
		}
		return models.CheckInOutcome{
			Kind:    models.OutcomeError,
			Code:    code,
			Message: fmt.Sprintf("Could not validate ticket %s (%s). It is safe to scan again.", code, reason),
		}
	}

	kind := KindForStatus(resp.StatusCode)
	data := convertPayload(resp.Data)
	out := models.CheckInOutcome{Kind: kind, Code: code, Data: data}

	var ticket *models.Ticket
	if data != nil {
		ticket = data.Ticket
	}

	switch kind {
	case models.OutcomeSuccess:
		if ticket != nil && ticket.FullName != "" {
			out.Message = fmt.Sprintf("Welcome %s. Ticket %s is valid and attendance has been recorded.", ticket.FullName, displayCode(code, ticket))
		} else {
			out.Message = fmt.Sprintf("Ticket %s is valid and attendance has been recorded.", code)
		}
	case models.OutcomeAlready:
		if ticket != nil && ticket.CheckedInAt != "" {
			out.Message = fmt.Sprintf("Ticket %s was already checked in at %s. Do not admit twice.", displayCode(code, ticket), ticket.CheckedInAt)
		} else {
			out.Message = fmt.Sprintf("Ticket %s was already checked in. Do not admit twice.", code)
		}
	case models.OutcomePending:
		out.Message = fmt.Sprintf("Ticket %s has an unpaid or pending order. Send the attendee to resolve payment before check-in.", code)
	case models.OutcomeNotFound:
		out.Message = fmt.Sprintf("No ticket matches code %s. Re-scan or verify the code with the attendee.", code)
	case models.OutcomeRateLimited:
		out.Message = "Too many check-ins in a short time. Slow down and try again in a few seconds."
	default:
		detail := resp.Detail()
		if detail == "" {
			detail = fmt.Sprintf("server answered %d", resp.StatusCode)
		}
		out.Message = fmt.Sprintf("Could not validate ticket %s (%s). It is safe to scan again.", code, detail)
	}
	return out
}

// ModalFor builds the result dialog for an outcome
func ModalFor(o models.CheckInOutcome) models.Modal {
	return models.Modal{
		Open:    true,
		Type:    o.Kind,
		Title:   Title(o.Kind),
		Message: o.Message,
		Data:    o.Data,
	}
}

func displayCode(code string, t *models.Ticket) string {
	if t != nil && t.TicketCode != "" {
		return t.TicketCode
	}
	return code
}

func convertPayload(p *checkinapi.Payload) *models.OutcomeData {
	if p == nil || (p.Ticket == nil && p.Event == nil) {
		return nil
	}
	data := &models.OutcomeData{}
	if p.Ticket != nil {
		data.Ticket = &models.Ticket{
			FullName:    p.Ticket.FullName,
			TicketCode:  p.Ticket.TicketCode.String(),
			CheckedInAt: p.Ticket.CheckedInAt.String(),
		}
	}
	if p.Event != nil {
		data.Event = &models.Event{Title: p.Event.Title}
	}
	return data
}
