// Package chat proxies chat completions to an OpenAI-compatible API and
// keeps per-session conversation history for the policy assistant.
package chat

import (
	"fmt"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the proxy request body. Zero fields take the completer's
// defaults.
type Request struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// Defaults fill unset Request fields.
type Defaults struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (r Request) WithDefaults(d Defaults) Request {
	if r.Model == "" {
		r.Model = d.Model
	}
	if r.Temperature == nil {
		t := d.Temperature
		r.Temperature = &t
	}
	if r.MaxTokens <= 0 {
		r.MaxTokens = d.MaxTokens
	}
	return r
}

// Validate checks the message list. Errors wrap ErrInvalidInput.
func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "Invalid messages format")
	}
	for i, m := range r.Messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "messages[%d]: unknown role %q", i, m.Role)
		}
		if m.Content == "" {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "messages[%d]: content is empty", i)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "temperature %.2f outside [0, 2]", *r.Temperature)
	}
	return nil
}

// Response mirrors the OpenAI chat completion object.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Text returns the first choice's content, or "" when there is none.
func (r *Response) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

func (u Usage) String() string {
	return fmt.Sprintf("%d+%d=%d", u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}
