package actions

import (
	"context"
	"encoding/json"

	"github.com/comigor/amy/internal/conversation"
	"github.com/comigor/amy/internal/logger"
)

// Event is one calendar entry.
type Event struct {
	Name         string   `json:"name"`
	Participants []string `json:"participants"`
}

// Calendar is a mock calendar API that answers every request with the same
// events.
type Calendar struct {
	Events []Event
}

// NewCalendar returns a Calendar with two sample events.
func NewCalendar() *Calendar {
	return &Calendar{Events: []Event{
		{Name: "2am meeting", Participants: []string{"muks"}},
		{Name: "5am yoga", Participants: []string{}},
	}}
}

// Perform implements conversation.ActionProvider.
func (c *Calendar) Perform(_ context.Context, req conversation.ActionRequest) (conversation.ActionResult, error) {
	logger.L.Debug("calendar action invoked", "target", req.Target)

	b, err := json.Marshal(struct {
		Events []Event `json:"events"`
	}{c.Events})
	if err != nil {
		return conversation.ActionResult{}, err
	}
	return conversation.ActionResult{Status: conversation.ActionSuccess, Content: string(b)}, nil
}
