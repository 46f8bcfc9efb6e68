package domain

import (
	"strings"
	"time"
)

// Agent is an AI persona configuration owned by one user.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// AgentListItem is an agent as returned by the list and detail procedures.
type AgentListItem struct {
	Agent
	MeetingCount int `json:"meetingCount"`
}

// AgentInput is the payload of agents.create and agents.update.
type AgentInput struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// Validate checks the input the same way on both sides of the wire.
func (in AgentInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(in.Instructions) == "" {
		fields["instructions"] = "Instructions are required"
	}
	if len(fields) > 0 {
		return Validation(fields)
	}
	return nil
}
