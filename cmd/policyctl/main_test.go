package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/document"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSearchCommand(t *testing.T) {
	out, err := execute(t, "search", "digital", "education", "--limit", "2")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var res engine.SearchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.Query != "digital education" {
		t.Errorf("query = %q", res.Query)
	}
	if len(res.Results) != 2 || res.Results[0].Policy.ID != 4 {
		t.Errorf("results = %+v", res.Results)
	}
}

func TestSearchCommandFilters(t *testing.T) {
	out, err := execute(t, "search", "--max-budget", "8000", "--sort", "budget_asc")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	var res engine.SearchResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, r := range res.Results {
		ids = append(ids, r.Policy.ID)
	}
	if len(ids) != 3 || ids[0] != 6 || ids[1] != 3 || ids[2] != 5 {
		t.Errorf("ids = %v, want [6 3 5]", ids)
	}

	if _, err := execute(t, "search", "--min-budget", "10", "--max-budget", "5"); err == nil {
		t.Error("expected error for inverted budget range")
	}
}

func TestSuggestCommand(t *testing.T) {
	out, err := execute(t, "suggest", "x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Samagra Shiksha") {
		t.Errorf("output = %s", out)
	}
}

func TestAskCommand(t *testing.T) {
	out, err := execute(t, "ask", "what", "is", "the", "total", "budget")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Query    string `json:"query"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got.Query != "what is the total budget" || !strings.Contains(got.Response, "₹88,410 crore across 6 schemes") {
		t.Errorf("got %+v", got)
	}

	out, err = execute(t, "ask", "--policy", "6", "tell", "me", "more")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Atal Innovation Mission (Innovation") {
		t.Errorf("policy answer = %s", out)
	}
	if _, err := execute(t, "ask"); err == nil {
		t.Error("ask without a question should fail")
	}
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "stats")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Categories []string         `json:"categories"`
		Dashboard  engine.Dashboard `json:"dashboard"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Dashboard.Budget.Total != 88410 || len(got.Categories) != 6 {
		t.Errorf("stats = %+v", got)
	}
}

func TestDatasetFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	data := `[{"id":7,"name":"Mid-Day Meal","category":"Nutrition","description":"School meals","implementingAgency":"MoE","budget":12000,"status":"Active"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "--dataset", path, "search", "meal")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Mid-Day Meal") {
		t.Errorf("output = %s", out)
	}

	if _, err := execute(t, "--dataset", filepath.Join(t.TempDir(), "missing.json"), "stats"); err == nil {
		t.Error("expected error for missing dataset")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allocation.txt")
	if err := os.WriteFile(path, []byte("Budget allocation of ₹2,000 crore for PM Poshan."), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "analyze", path)
	if err != nil {
		t.Fatal(err)
	}
	var got document.Processed
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.FileName != "allocation.txt" || got.Analysis.DocumentType != document.TypeBudget {
		t.Errorf("processed = %+v", got)
	}

	pdf := filepath.Join(t.TempDir(), "scan.pdf")
	os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644)
	if _, err := execute(t, "analyze", pdf); err == nil {
		t.Error("expected error for pdf")
	}
}
