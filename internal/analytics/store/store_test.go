package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/analytics"
)

type execCall struct {
	query string
	args  []any
}

// fakeDB records ExecContext calls. Query methods are not exercised here.
type fakeDB struct {
	mu      sync.Mutex
	calls   []execCall
	execErr error
}

func (f *fakeDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.execErr != nil {
		return nil, f.execErr
	}
	return driverResult(1), nil
}

func (f *fakeDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (f *fakeDB) inserts() []execCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []execCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.query, "INSERT") {
			out = append(out, c)
		}
	}
	return out
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return 0, nil }
func (r driverResult) RowsAffected() (int64, error) { return int64(r), nil }

type fixedStats struct{ stats analytics.AggregatedStats }

func (f fixedStats) Stats() analytics.AggregatedStats { return f.stats }

func TestSaveSnapshot(t *testing.T) {
	db := &fakeDB{}
	s := New(db)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	if err := s.SaveSnapshot(context.Background(), analytics.AggregatedStats{TotalSearches: 7}); err != nil {
		t.Fatal(err)
	}
	ins := db.inserts()
	if len(ins) != 1 {
		t.Fatalf("inserts = %d, want 1", len(ins))
	}
	var decoded analytics.AggregatedStats
	if err := json.Unmarshal(ins[0].args[0].([]byte), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.TotalSearches != 7 {
		t.Errorf("stored total_searches = %d", decoded.TotalSearches)
	}
	if ins[0].args[1].(time.Time) != at {
		t.Errorf("captured_at = %v", ins[0].args[1])
	}
}

func TestSaveSnapshotError(t *testing.T) {
	s := New(&fakeDB{execErr: errors.New("connection reset")})
	if err := s.SaveSnapshot(context.Background(), analytics.AggregatedStats{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).EnsureSchema(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(db.calls) != 1 || !strings.Contains(db.calls[0].query, "CREATE TABLE IF NOT EXISTS analytics_snapshots") {
		t.Errorf("calls = %+v", db.calls)
	}
}

func TestRunTakesFinalSnapshot(t *testing.T) {
	db := &fakeDB{}
	s := New(db)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, fixedStats{analytics.AggregatedStats{TotalSearches: 3}}, 10*time.Millisecond)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := len(db.inserts()); n < 2 {
		t.Errorf("inserts = %d, want periodic plus final snapshots", n)
	}
}
