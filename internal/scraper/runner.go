// Package scraper は地域ごとの外部スクレイパープロセスの起動と管理を提供する。
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// waitDelay はプロセス終了後に出力パイプが閉じられるのを待つ上限。
// 孫プロセスがパイプを握ったままの場合にWaitが返らなくなるのを防ぐ。
const waitDelay = 5 * time.Second

// DefaultMaxOutputBytes は標準出力・標準エラーそれぞれで保持する既定の最大バイト数。
const DefaultMaxOutputBytes int64 = 64 * 1024

// ErrTimeout はプロセスが制限時間内に終了しなかったことを示す。
var ErrTimeout = errors.New("スクレイパーの実行がタイムアウトしました")

// Command は起動する外部プロセスを表す。
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

// String はログ出力用のコマンド文字列を返す。
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// ExecResult は外部プロセスの実行結果を表す。
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Killed   bool
	// Truncated は出力が保持上限を超えて切り捨てられたことを示す。
	Truncated bool
	Duration  time.Duration
}

// ProcessRunner は外部プロセスを1つ実行するインターフェース。
// onStartはプロセスの起動直後にPIDを渡して呼ばれる。
// 起動失敗・非ゼロ終了・タイムアウトの場合はエラーを返す。
// 起動に成功していればエラー時もExecResultを返す。
type ProcessRunner interface {
	Run(ctx context.Context, cmd Command, timeout time.Duration, onStart func(pid int)) (*ExecResult, error)
}

// ExecRunner はos/execでプロセスを起動するProcessRunnerの実装。
// 標準出力・標準エラーはそれぞれmaxOutputBytesまで保持し、超過分は読み捨てる。
type ExecRunner struct {
	maxOutputBytes int64
}

// NewExecRunner はExecRunnerを生成する。
// maxOutputBytesが0以下の場合はDefaultMaxOutputBytesを使用する。
func NewExecRunner(maxOutputBytes int64) *ExecRunner {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	return &ExecRunner{maxOutputBytes: maxOutputBytes}
}

// OutputLimitForRunes はmaxRunes文字を必ず保持できる出力バイト数を返す。
func OutputLimitForRunes(maxRunes int) int64 {
	if maxRunes <= 0 {
		return 0
	}
	return int64(maxRunes) * utf8.UTFMax
}

// Run はコマンドを実行し、終了まで待つ。
// タイムアウトまたはctxのキャンセル時はプロセスツリーごと強制終了する。
func (r *ExecRunner) Run(ctx context.Context, cmd Command, timeout time.Duration, onStart func(pid int)) (*ExecResult, error) {
	if cmd.Binary == "" {
		return nil, errors.New("実行コマンドが設定されていません")
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Cancel = func() error {
		return killProcessTree(execCmd.Process.Pid)
	}
	execCmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: r.maxOutputBytes}
	stderr := &limitedWriter{w: &stderrBuf, max: r.maxOutputBytes}
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr

	start := time.Now()
	if err := execCmd.Start(); err != nil {
		return nil, fmt.Errorf("プロセスの起動に失敗しました: %w", err)
	}
	if onStart != nil {
		onStart(execCmd.Process.Pid)
	}

	waitErr := execCmd.Wait()

	result := &ExecResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		ExitCode:  execCmd.ProcessState.ExitCode(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	if waitErr == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		result.Killed = true
		return result, fmt.Errorf("スクレイパーの実行が中断されました: %w", ctx.Err())
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		result.Killed = true
		return result, fmt.Errorf("%w (%s)", ErrTimeout, timeout)
	}
	return result, fmt.Errorf("スクレイパーが異常終了しました (exit %d): %w", result.ExitCode, waitErr)
}

// limitedWriter は書き込み総量をmaxバイトに制限するio.Writer。
// 上限を超えた分は書き込んだことにして捨てる。
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = n > 0 || lw.truncated
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	// 短い書き込みとして扱われないよう元の長さを返す
	return n, err
}

// String は保持した出力を返す。切り捨てで途中になった末尾の文字は取り除く。
func (lw *limitedWriter) String() string {
	buf, ok := lw.w.(*bytes.Buffer)
	if !ok {
		return ""
	}
	if !lw.truncated {
		return buf.String()
	}
	return strings.ToValidUTF8(buf.String(), "")
}
