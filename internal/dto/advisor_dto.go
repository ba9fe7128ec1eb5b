package dto

import (
	"time"

	"ai-act-advisor-be/pkg/rag/interview"
	"ai-act-advisor-be/pkg/rag/report"
	"ai-act-advisor-be/pkg/rag/screen"
	"ai-act-advisor-be/pkg/store"
)

type CreateSessionResponse struct {
	SessionID     string             `json:"session_id"`
	InitialPrompt string             `json:"initial_prompt"`
	Progress      interview.Progress `json:"progress"`
}

type ChatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Content   string `json:"content" validate:"required,max=8000"`
}

type ChatResponse struct {
	SessionID string                   `json:"session_id"`
	Message   string                   `json:"message"`
	Kind      interview.Kind           `json:"kind"`
	IsDone    bool                     `json:"is_done"`
	Topic     string                   `json:"topic,omitempty"`
	Progress  interview.Progress       `json:"progress"`
	Report    *report.StructuredReport `json:"report,omitempty"`
	Alerts    []screen.Finding         `json:"alerts,omitempty"`
}

type TurnResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionResponse struct {
	SessionID       string             `json:"session_id"`
	State           store.State        `json:"state"`
	Progress        interview.Progress `json:"progress"`
	CollectedFields map[string]string  `json:"collected_fields"`
	Turns           []TurnResponse     `json:"turns"`
	Alerts          []screen.Finding   `json:"alerts,omitempty"`
	// True while the session waits for a yes/no after a CRITICAL alert
	AwaitingConfirmation bool                     `json:"awaiting_confirmation"`
	Report               *report.StructuredReport `json:"report,omitempty"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

type HealthResponse struct {
	Status    string `json:"status"`    // "ok" | "degraded"
	Inference string `json:"inference"` // "up" | "down" | "unchecked"
	Chunks    int    `json:"chunks"`
	Sessions  int    `json:"sessions"`
}
