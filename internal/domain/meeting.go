package domain

import (
	"strings"
	"time"
)

// MeetingStatus is the lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingUpcoming   MeetingStatus = "upcoming"
	MeetingActive     MeetingStatus = "active"
	MeetingCompleted  MeetingStatus = "completed"
	MeetingProcessing MeetingStatus = "processing"
	MeetingCanceled   MeetingStatus = "canceled"
)

// MeetingStatuses lists every status in display order.
var MeetingStatuses = []MeetingStatus{
	MeetingUpcoming,
	MeetingActive,
	MeetingCompleted,
	MeetingProcessing,
	MeetingCanceled,
}

// ParseMeetingStatus returns the status named by s, or false if s is not one.
func ParseMeetingStatus(s string) (MeetingStatus, bool) {
	for _, st := range MeetingStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Label is the human readable status name.
func (s MeetingStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Meeting is a session associating a user with one of their agents.
type Meeting struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	AgentID   string        `json:"agentId"`
	UserID    string        `json:"userId"`
	Status    MeetingStatus `json:"status"`
	StartedAt *time.Time    `json:"startedAt,omitempty"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Duration is the time between start and end, or zero if either is unset.
func (m Meeting) Duration() time.Duration {
	if m.StartedAt == nil || m.EndedAt == nil {
		return 0
	}
	return m.EndedAt.Sub(*m.StartedAt)
}

// MeetingListItem is a meeting as returned by the list and detail procedures.
type MeetingListItem struct {
	Meeting
	AgentName string `json:"agentName"`
	// DurationSeconds is zero until the meeting has both started and ended.
	DurationSeconds int64 `json:"duration,omitempty"`
}

// MeetingInput is the payload of meetings.create and meetings.update.
// Status is only honored on update.
type MeetingInput struct {
	Name    string        `json:"name"`
	AgentID string        `json:"agentId"`
	Status  MeetingStatus `json:"status,omitempty"`
}

// Validate checks the input the same way on both sides of the wire.
func (in MeetingInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(in.AgentID) == "" {
		fields["agentId"] = "Agent is required"
	}
	if in.Status != "" {
		if _, ok := ParseMeetingStatus(string(in.Status)); !ok {
			fields["status"] = "Invalid status"
		}
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}
