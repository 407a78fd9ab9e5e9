package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	mu         sync.Mutex
	execCalled bool
	calls      int
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execCalled = true
	m.calls++
	m.query = query
	m.args = args
	return m.result, m.err
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogAttr はJSONログ行の中からkeyを持つ最初の値を返す。
func findLogAttr(buf *bytes.Buffer, key string) (interface{}, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestNewCleanupJob_DefaultRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	for _, days := range []int{0, -5} {
		job := NewCleanupJob(&mockExecutor{}, newTestLogger(&buf), days)
		if job.RetentionDays != DefaultRetentionDays {
			t.Errorf("NewCleanupJob(%d).RetentionDays = %d, want %d", days, job.RetentionDays, DefaultRetentionDays)
		}
	}
}

func TestNewCleanupJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockExecutor{}, newTestLogger(&buf), 7)
	if job.RetentionDays != 7 {
		t.Errorf("RetentionDays = %d, want 7", job.RetentionDays)
	}
}

func TestCleanupJob_Run_DeletesOldFinishedLogs(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf), 0)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されていない")
	}
	if !strings.Contains(mock.query, "DELETE FROM scraper_logs") {
		t.Errorf("クエリに DELETE FROM scraper_logs が含まれていない: %s", mock.query)
	}
	if !strings.Contains(mock.query, "started_at") {
		t.Errorf("クエリに started_at 条件が含まれていない: %s", mock.query)
	}
	// 実行中の履歴は削除しない
	if !strings.Contains(mock.query, "status <> 'running'") {
		t.Errorf("クエリが実行中の履歴を除外していない: %s", mock.query)
	}

	if len(mock.args) != 1 {
		t.Fatalf("引数の数 = %d, want 1", len(mock.args))
	}
	if got := mock.args[0]; got != "30 days" {
		t.Errorf("interval引数 = %v, want %q", got, "30 days")
	}
}

func TestCleanupJob_Run_UsesRetentionDaysField(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf), 30)
	job.RetentionDays = 90

	_ = job.Run(context.Background())

	if got := mock.args[0]; got != "90 days" {
		t.Errorf("interval引数 = %v, want %q", got, "90 days")
	}
}

func TestCleanupJob_Run_LogsResult(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 42}}
	job := NewCleanupJob(mock, newTestLogger(&buf), 14)

	_ = job.Run(context.Background())

	if v, ok := findLogAttr(&buf, "deleted_count"); !ok || v != float64(42) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if v, ok := findLogAttr(&buf, "retention_days"); !ok || v != float64(14) {
		t.Errorf("ログに retention_days=14 が記録されていない。ログ出力: %s", buf.String())
	}
	if _, ok := findLogAttr(&buf, "duration_ms"); !ok {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 0}}
	job := NewCleanupJob(mock, newTestLogger(&buf), 0)

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}
	if v, ok := findLogAttr(&buf, "deleted_count"); !ok || v != float64(0) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{err: sql.ErrConnDone}
	job := NewCleanupJob(mock, newTestLogger(&buf), 0)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for mock.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Start が周期実行していない: calls=%d", mock.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("コンテキストキャンセル後も Start が終了しない")
	}
}
