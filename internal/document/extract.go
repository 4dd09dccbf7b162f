package document

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
)

var supportedTypes = map[string]bool{
	"text/plain": true,
	"text/csv":   true,
}

var supportedExtensions = map[string]bool{
	".txt": true,
	".csv": true,
}

// Processed is an extracted and analysed upload.
type Processed struct {
	FileName      string    `json:"file_name"`
	FileSize      string    `json:"file_size"`
	FileType      string    `json:"file_type"`
	ExtractedText string    `json:"extracted_text"`
	WordCount     int       `json:"word_count"`
	Analysis      Analysis  `json:"analysis"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// Process extracts the text of an upload and analyses it.
func Process(fileName, contentType string, data []byte) (*Processed, error) {
	text, err := Extract(fileName, contentType, data)
	if err != nil {
		return nil, err
	}
	return &Processed{
		FileName:      fileName,
		FileSize:      FormatSize(int64(len(data))),
		FileType:      mediaType(contentType),
		ExtractedText: text,
		WordCount:     WordCount(text),
		Analysis:      Analyze(fileName, text),
		ProcessedAt:   time.Now().UTC(),
	}, nil
}

// Extract decodes a plain-text or CSV upload. A byte order mark selects the
// UTF-16 or UTF-8 decoder; input that is not valid UTF-8 is read as
// Windows-1252. PDF and other binary types are rejected.
func Extract(fileName, contentType string, data []byte) (string, error) {
	if !Supported(fileName, contentType) {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusUnsupportedMediaType,
			"Unsupported file type. Please upload TXT or CSV files.")
	}

	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	if !utf8.Valid(data) {
		fallback = charmap.Windows1252.NewDecoder()
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", apperrors.Newf(apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "decoding %s: %v", fileName, err)
	}
	text := string(decoded)
	if strings.TrimSpace(text) == "" {
		return "", apperrors.New(apperrors.ErrInvalidInput, http.StatusUnprocessableEntity, "Could not extract text from file")
	}
	return text, nil
}

// Supported reports whether the content type or file extension is a text
// format Extract can read.
func Supported(fileName, contentType string) bool {
	if supportedTypes[mediaType(contentType)] {
		return true
	}
	return supportedExtensions[strings.ToLower(filepath.Ext(fileName))]
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

// FormatSize renders a byte count as B, KB or MB.
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(bytes)/(1024*1024))
	}
}
