package model

import "time"

// CreateSessionResponse is returned by POST /sessions
type CreateSessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// SendMessageRequest is the body of POST /sessions/:id/messages
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendMessageResponse carries the bot reply and the state it produced
type SendMessageResponse struct {
	Message   Message   `json:"message"`
	UIContext UIContext `json:"ui_context"`
	Took      int64     `json:"took_ms"`
}

// SetZipCodeRequest is the body of PUT /sessions/:id/zip
type SetZipCodeRequest struct {
	ZipCode string `json:"zipCode"`
}

// SetTabRequest is the body of PUT /sessions/:id/tab
type SetTabRequest struct {
	Tab string `json:"tab" binding:"required"`
}

// TokenizeRequest is the body of POST /links/tokenize
type TokenizeRequest struct {
	Text string `json:"text" binding:"required"`
}

// ExportResponse mirrors the transcript upload result
type ExportResponse struct {
	Success   bool   `json:"success"`
	Uploaded  bool   `json:"r2_upload"`
	FileKey   string `json:"file_key"`
	Timestamp string `json:"timestamp"`
}

// ActivationRecord is one link activation written to the activation log
type ActivationRecord struct {
	SessionID   string    `json:"session_id" db:"session_id"`
	MessageID   int64     `json:"message_id" db:"message_id"`
	LinkType    string    `json:"link_type" db:"link_type"`
	Label       string    `json:"label" db:"label"`
	ZPID        string    `json:"zpid,omitempty" db:"zpid"`
	Outcome     string    `json:"outcome" db:"outcome"`
	ActivatedAt time.Time `json:"activated_at" db:"activated_at"`
}
