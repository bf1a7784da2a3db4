package handlers

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error" example:"Error message"`
}

// StatusResponse acknowledges a request that has no other payload
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// HostActionRequest represents the body of a host action
type HostActionRequest struct {
	Action string `json:"action" example:"mute_all"`
	// Accepted for forward compatibility; every action applies to the whole room.
	TargetUserID string `json:"target_user_id,omitempty"`
}

// CreateWorkshopRequest represents the request body for creating a workshop
type CreateWorkshopRequest struct {
	Title           string    `json:"title" example:"Morning breathwork"`
	Description     string    `json:"description"`
	StartTime       time.Time `json:"startTime" example:"2026-03-01T09:00:00Z"`
	DurationMinutes int       `json:"durationMinutes" example:"60"`
	PriceCents      int64     `json:"priceCents" example:"1500"`
	MaxParticipants int       `json:"maxParticipants" example:"12"`
}

// UpdateWorkshopRequest represents a partial workshop update
type UpdateWorkshopRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	StartTime       *time.Time `json:"startTime"`
	DurationMinutes *int       `json:"durationMinutes"`
	PriceCents      *int64     `json:"priceCents"`
	MaxParticipants *int       `json:"maxParticipants"`
}

// ParticipantInfo is one membership of a workshop
type ParticipantInfo struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email,omitempty"`
	Name     string    `json:"name,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
