package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/minyanim/internal/calendar"
	"github.com/hitoshi/minyanim/internal/model"
)

// --- モック定義 ---

type mockOrganizationLister struct {
	orgs []model.Organization
	err  error
}

func (m *mockOrganizationLister) ListImportEnabled(context.Context) ([]model.Organization, error) {
	return m.orgs, m.err
}

// mockImporter は呼び出しを記録し、同時実行数の最大値を測る。
type mockImporter struct {
	mu          sync.Mutex
	called      []string
	failing     map[string]bool
	delay       time.Duration
	current     int32
	maxParallel int32
}

func (m *mockImporter) ImportOrganization(ctx context.Context, orgID string) (*calendar.ImportResult, error) {
	n := atomic.AddInt32(&m.current, 1)
	defer atomic.AddInt32(&m.current, -1)
	for {
		old := atomic.LoadInt32(&m.maxParallel)
		if n <= old || atomic.CompareAndSwapInt32(&m.maxParallel, old, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}

	m.mu.Lock()
	m.called = append(m.called, orgID)
	m.mu.Unlock()

	result := &calendar.ImportResult{RunID: "run-" + orgID, OrganizationID: orgID}
	if m.failing[orgID] {
		return result, model.NewFetchFailedError("HTTP 500")
	}
	result.Success = true
	result.NewEntries = 2
	result.UpdatedEntries = 1
	return result, nil
}

func (m *mockImporter) calledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.called)
}

func orgs(ids ...string) []model.Organization {
	out := make([]model.Organization, len(ids))
	for i, id := range ids {
		out[i] = model.Organization{ID: id, CalendarURL: "https://example.org/" + id, UseImportedCalendar: true}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// --- テスト ---

func TestScheduler_RunOnce(t *testing.T) {
	t.Run("全団体を取り込み結果を集計する", func(t *testing.T) {
		imp := &mockImporter{failing: map[string]bool{"b": true}}
		s := NewScheduler(&mockOrganizationLister{orgs: orgs("a", "b", "c")}, imp, Config{MaxConcurrency: 2}, discardLogger())

		summary, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Organizations != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
			t.Errorf("summary = %+v", summary)
		}
		if summary.NewEntries != 4 || summary.Updated != 2 {
			t.Errorf("entries = new %d updated %d, want 4/2", summary.NewEntries, summary.Updated)
		}
		if imp.calledCount() != 3 {
			t.Errorf("called = %d, want 3", imp.calledCount())
		}
	})

	t.Run("同時実行数の上限を守る", func(t *testing.T) {
		imp := &mockImporter{delay: 20 * time.Millisecond}
		s := NewScheduler(&mockOrganizationLister{orgs: orgs("a", "b", "c", "d", "e", "f")}, imp, Config{MaxConcurrency: 2}, discardLogger())

		if _, err := s.RunOnce(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&imp.maxParallel); got > 2 {
			t.Errorf("max parallel = %d, want <= 2", got)
		}
	})

	t.Run("対象がない場合は何もしない", func(t *testing.T) {
		imp := &mockImporter{}
		s := NewScheduler(&mockOrganizationLister{}, imp, Config{}, discardLogger())

		summary, err := s.RunOnce(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Organizations != 0 || imp.calledCount() != 0 {
			t.Errorf("summary = %+v, called = %d", summary, imp.calledCount())
		}
	})

	t.Run("一覧の取得エラーを返す", func(t *testing.T) {
		s := NewScheduler(&mockOrganizationLister{err: errors.New("db down")}, &mockImporter{}, Config{}, discardLogger())

		if _, err := s.RunOnce(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("キャンセル済みのコンテキストでは開始しない", func(t *testing.T) {
		imp := &mockImporter{}
		s := NewScheduler(&mockOrganizationLister{orgs: orgs("a", "b")}, imp, Config{OrgInterval: time.Hour}, discardLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		summary, err := s.RunOnce(ctx)
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if imp.calledCount() != 0 {
			t.Errorf("called = %d, want 0", imp.calledCount())
		}
		if summary.Failed != 2 {
			t.Errorf("failed = %d, want 2", summary.Failed)
		}
	})

	t.Run("サマリーをログに出力する", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		s := NewScheduler(&mockOrganizationLister{orgs: orgs("a")}, &mockImporter{}, Config{}, logger)

		if _, err := s.RunOnce(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "取り込みサイクルが完了しました") || !strings.Contains(out, `"succeeded":1`) {
			t.Errorf("summary log not found: %s", out)
		}
	})
}

func TestScheduler_Start(t *testing.T) {
	t.Run("不正なcron式はエラー", func(t *testing.T) {
		s := NewScheduler(&mockOrganizationLister{}, &mockImporter{}, Config{CronSpec: "every sunday"}, discardLogger())
		if err := s.Start(context.Background()); err == nil {
			t.Fatal("expected error for invalid cron spec")
		}
	})

	t.Run("起動直後に1回実行しキャンセルで停止する", func(t *testing.T) {
		imp := &mockImporter{}
		s := NewScheduler(&mockOrganizationLister{orgs: orgs("a")}, imp, Config{RunOnStart: true}, discardLogger())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Start(ctx) }()

		deadline := time.After(2 * time.Second)
		for imp.calledCount() == 0 {
			select {
			case <-deadline:
				t.Fatal("import was not run on start")
			case <-time.After(5 * time.Millisecond):
			}
		}
		cancel()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Start returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Start did not return after cancel")
		}
	})
}

func TestValidateCronSpec(t *testing.T) {
	for _, spec := range []string{DefaultCronSpec, "*/15 * * * *", "@daily"} {
		if err := ValidateCronSpec(spec); err != nil {
			t.Errorf("ValidateCronSpec(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "0 2 * *", "61 * * * *"} {
		if err := ValidateCronSpec(spec); err == nil {
			t.Errorf("ValidateCronSpec(%q) should fail", spec)
		}
	}
}
