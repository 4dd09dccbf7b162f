package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/logger"
)

// MaxUploadBytes bounds a single uploaded document.
const MaxUploadBytes = 10 << 20

const (
	// aiPreviewChars is how much extracted text is sent for AI analysis.
	aiPreviewChars = 1000
	aiTemperature  = 0.5
	aiMaxTokens    = 600
)

type Handler struct {
	completer chat.Completer
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

// WithCompleter adds an AI summary to every analysis. A failing completer
// only drops the summary.
func WithCompleter(c chat.Completer) HandlerOption {
	return func(h *Handler) { h.completer = c }
}

func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		logger: slog.Default().With("component", "document-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type analyzeResponse struct {
	*Processed
	AISummary string `json:"ai_summary,omitempty"`
}

type textRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// Analyze accepts either a multipart upload in the "file" field or a JSON
// body carrying already-extracted text.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)

	var (
		fileName, contentType string
		data                  []byte
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		if err != nil {
			h.writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		fileName = header.Filename
		contentType = header.Header.Get("Content-Type")
	} else {
		var req textRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		fileName, data = req.FileName, []byte(req.Text)
		contentType = req.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		if fileName == "" {
			fileName = "pasted.txt"
		}
	}

	processed, err := Process(fileName, contentType, data)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		message := http.StatusText(status)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			message = appErr.Message
		}
		h.writeError(w, status, message)
		return
	}

	log := logger.FromContext(r.Context())
	resp := analyzeResponse{Processed: processed}
	if h.completer != nil {
		summary, err := h.summarize(r.Context(), processed)
		if err != nil {
			log.Warn("AI document analysis failed", "file", processed.FileName, "error", err)
		}
		resp.AISummary = summary
	}

	log.Info("document analyzed",
		"file", processed.FileName,
		"size", processed.FileSize,
		"words", processed.WordCount,
		"type", processed.Analysis.DocumentType,
		"ai_summary", resp.AISummary != "",
	)
	h.writeJSON(w, http.StatusOK, resp)
}

// summarize asks the completer for a structured reading of the start of the
// document.
func (h *Handler) summarize(ctx context.Context, p *Processed) (string, error) {
	temperature := aiTemperature
	resp, err := h.completer.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: "You review Ministry of Education policy documents for India."},
			{Role: chat.RoleUser, Content: "Document: " + p.FileName + "\n\n" +
				chat.Truncate(p.ExtractedText, aiPreviewChars) + "\n\n" +
				"Summarise it under these headings: Document Type, Key Points (3 to 4 bullets), " +
				"Financial Data, Statistics, Action Items."},
		},
		Temperature: &temperature,
		MaxTokens:   aiMaxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
