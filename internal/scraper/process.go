package scraper

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// killProcessTree は指定PIDのプロセスとその子孫プロセスを強制終了する。
// 既に終了しているプロセスは成功として扱う。
func killProcessTree(pid int) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return fmt.Errorf("プロセス %d の取得に失敗しました: %w", pid, err)
	}

	// 子プロセスが取得できない場合も親の終了は試みる
	if children, err := p.Children(); err == nil {
		for _, child := range children {
			_ = killProcessTree(int(child.Pid))
		}
	}

	if err := p.Kill(); err != nil {
		if running, runErr := p.IsRunning(); runErr == nil && !running {
			return nil
		}
		return fmt.Errorf("プロセス %d の終了に失敗しました: %w", pid, err)
	}
	return nil
}
