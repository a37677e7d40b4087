package core

import "encoding/json"

// ResponseModeBlocking asks the upstream for a single, complete reply.
const ResponseModeBlocking = "blocking"

// PromptPayload is the JSON body sent to the upstream chat endpoint.
type PromptPayload struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	User           string         `json:"user"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// NewPromptPayload builds a blocking payload with an empty inputs object.
func NewPromptPayload(query, user, conversationID string) *PromptPayload {
	return &PromptPayload{
		Inputs:         map[string]any{},
		Query:          query,
		ResponseMode:   ResponseModeBlocking,
		User:           user,
		ConversationID: conversationID,
	}
}

// ChatResponse is returned to the web client on success.
type ChatResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	ConversationID string          `json:"conversation_id"`
	Raw            json.RawMessage `json:"raw"`
}

// FailureResponse is returned to the web client on any error.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
