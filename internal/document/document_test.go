package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/chat"
	apperrors "github.com/Adithya-Monish-Kumar-K/NitiSetu/pkg/errors"
)

const sampleText = `Samagra Shiksha Policy Guidelines
The allocation for 2024 is ₹37,453 crore under the PM SHRI Schools programme.
A further ₹ 1,200.50 lakh supports the National Digital Education Mission.
Scheme for Tribal Students covers 12 districts.`

func TestAnalyze(t *testing.T) {
	a := Analyze("samagra.txt", sampleText)

	if a.DocumentType != TypePolicy {
		t.Errorf("document type = %q, want %q", a.DocumentType, TypePolicy)
	}
	d := a.ExtractedData
	if d.WordCount != WordCount(sampleText) {
		t.Errorf("word count = %d", d.WordCount)
	}
	if d.BudgetMentions != 2 {
		t.Errorf("budget mentions = %d, want 2", d.BudgetMentions)
	}
	if !d.HasFinancialData || !d.HasPolicyContent || !d.HasStatistics {
		t.Errorf("flags = %+v, want all set", d)
	}
	if len(d.SchemeNames) == 0 || !strings.HasPrefix(d.SchemeNames[0], "PM SHRI Schools") {
		t.Errorf("scheme names = %q", d.SchemeNames)
	}
	if len(a.KeyInsights) != 4 {
		t.Errorf("key insights = %d, want 4", len(a.KeyInsights))
	}
	if !strings.Contains(a.Summary, `"samagra.txt"`) {
		t.Errorf("summary = %q", a.Summary)
	}
}

func TestAnalyzeThousandsSeparator(t *testing.T) {
	text := strings.Repeat("word ", 1234)
	a := Analyze("long.txt", text)
	if !strings.Contains(a.Summary, "1,234 words") {
		t.Errorf("summary = %q, want grouped word count", a.Summary)
	}
}

func TestAnalyzePlainText(t *testing.T) {
	a := Analyze("notes.txt", "meeting notes without figures")
	d := a.ExtractedData
	if d.HasFinancialData || d.HasStatistics || d.HasPolicyContent {
		t.Errorf("flags = %+v, want none set", d)
	}
	if d.SchemeNames == nil || len(d.SchemeNames) != 0 {
		t.Errorf("scheme names = %#v, want empty slice", d.SchemeNames)
	}
	if a.DocumentType != TypeGovernment {
		t.Errorf("document type = %q", a.DocumentType)
	}
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Budget allocation and scheme policy", TypePolicy},
		{"GUIDELINE for states", TypePolicy},
		{"Budget allocation for schemes", TypeBudget},
		{"Scheme implementation program", TypeScheme},
		{"Annual Report 2023-24", TypeAnnual},
		{"Minutes of the meeting", TypeGovernment},
	}
	for _, tt := range tests {
		if got := DetectType(tt.text); got != tt.want {
			t.Errorf("DetectType(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestExtractSchemesDedup(t *testing.T) {
	text := "PM Poshan. Later PM Poshan. The national digital library initiative."
	got := ExtractSchemes(text)
	want := []string{"PM Poshan", "national digital library initiative"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractSchemes = %q, want %q", got, want)
	}
}

func TestAnalyzeLimitsSchemeNames(t *testing.T) {
	var b strings.Builder
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot", "Golf"} {
		b.WriteString("PM " + name + "\n1\n")
	}
	a := Analyze("many.txt", b.String())
	if n := len(a.ExtractedData.SchemeNames); n != maxSchemeNames {
		t.Errorf("scheme names = %d, want %d", n, maxSchemeNames)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		want        string
		status      int
	}{
		{"plain", "a.txt", "text/plain; charset=utf-8", []byte("hello"), "hello", 0},
		{"csv by type", "data", "text/csv", []byte("a,b\n1,2"), "a,b\n1,2", 0},
		{"txt by extension", "NOTES.TXT", "application/octet-stream", []byte("notes"), "notes", 0},
		{"utf8 bom", "a.txt", "text/plain", []byte("\xef\xbb\xbfbom"), "bom", 0},
		{"utf16 bom", "a.txt", "text/plain", []byte{0xff, 0xfe, 'h', 0, 'i', 0}, "hi", 0},
		{"windows-1252", "a.txt", "text/plain", []byte("caf\xe9"), "café", 0},
		{"pdf", "a.pdf", "application/pdf", []byte("%PDF-1.7"), "", http.StatusUnsupportedMediaType},
		{"empty", "a.txt", "text/plain", []byte(" \n\t"), "", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.fileName, tt.contentType, tt.data)
			if tt.status != 0 {
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				if s := apperrors.HTTPStatusCode(err); s != tt.status {
					t.Errorf("status = %d, want %d", s, tt.status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got != tt.want {
				t.Errorf("Extract = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	tests := map[int64]string{
		0:           "0 B",
		1023:        "1023 B",
		1536:        "1.50 KB",
		5 * 1 << 20: "5.00 MB",
	}
	for in, want := range tests {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestHandlerMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="budget.txt"`)
	hdr.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("Budget allocation of ₹500 crore"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	NewHandler().Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var got Processed
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.FileName != "budget.txt" || got.FileType != "text/plain" {
		t.Errorf("file = %q / %q", got.FileName, got.FileType)
	}
	if got.Analysis.DocumentType != TypeBudget {
		t.Errorf("document type = %q", got.Analysis.DocumentType)
	}
	if got.Analysis.ExtractedData.BudgetMentions != 1 {
		t.Errorf("budget mentions = %d", got.Analysis.ExtractedData.BudgetMentions)
	}
}

func TestHandlerJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze",
		strings.NewReader(`{"text":"Annual report of the ministry"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	NewHandler().Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var got Processed
	json.NewDecoder(rec.Body).Decode(&got)
	if got.FileName != "pasted.txt" || got.WordCount != 5 {
		t.Errorf("got %+v", got)
	}
}

func TestHandlerErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"empty text", `{"text":"   "}`, http.StatusUnprocessableEntity},
		{"pdf", `{"file_name":"a.pdf","content_type":"application/pdf","text":"x"}`, http.StatusUnsupportedMediaType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			NewHandler().Analyze(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

type stubCompleter struct {
	reply string
	err   error
	last  chat.Request
}

func (s *stubCompleter) Complete(_ context.Context, req chat.Request) (*chat.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &chat.Response{Choices: []chat.Choice{{Message: chat.Message{Role: chat.RoleAssistant, Content: s.reply}}}}, nil
}

func analyzeJSON(t *testing.T, h *Handler, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	return got
}

func TestHandlerAISummary(t *testing.T) {
	stub := &stubCompleter{reply: "  Document Type: Budget Report\n- Key point  "}
	long := strings.Repeat("budget ", 400)
	got := analyzeJSON(t, NewHandler(WithCompleter(stub)), `{"file_name":"alloc.txt","text":"`+long+`"}`)

	if got["ai_summary"] != "Document Type: Budget Report\n- Key point" {
		t.Errorf("ai_summary = %q", got["ai_summary"])
	}
	if _, ok := got["analysis"]; !ok {
		t.Error("regex analysis missing from response")
	}
	if len(stub.last.Messages) != 2 || *stub.last.Temperature != aiTemperature || stub.last.MaxTokens != aiMaxTokens {
		t.Fatalf("request = %+v", stub.last)
	}
	prompt := stub.last.Messages[1].Content
	if !strings.Contains(prompt, "alloc.txt") || !strings.Contains(prompt, "Action Items") {
		t.Errorf("prompt = %q", prompt)
	}
	if !strings.Contains(prompt, strings.Repeat("budget ", 142)+"budget...") {
		t.Error("document text should be cut at 1000 characters")
	}
}

func TestHandlerAISummaryFailureKeepsAnalysis(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream down")}
	got := analyzeJSON(t, NewHandler(WithCompleter(stub)), `{"text":"Annual report of the ministry"}`)
	if _, ok := got["ai_summary"]; ok {
		t.Errorf("ai_summary present after failure: %v", got["ai_summary"])
	}
	if got["word_count"] != float64(5) {
		t.Errorf("word_count = %v", got["word_count"])
	}
}

func TestHandlerWithoutCompleterOmitsSummary(t *testing.T) {
	got := analyzeJSON(t, NewHandler(), `{"text":"Annual report of the ministry"}`)
	if _, ok := got["ai_summary"]; ok {
		t.Error("ai_summary without a completer")
	}
}
