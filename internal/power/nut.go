package power

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// NUT属性键
const (
	attrStatus  = "ups.status"
	attrCharge  = "battery.charge"
	attrRuntime = "battery.runtime"
)

// commandRunner 外部命令执行抽象（测试注入用）
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// execRunner 基于os/exec的默认实现
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// NUTReader 通过upsc读取NUT守护进程导出的UPS状态
type NUTReader struct {
	upsName string
	runner  commandRunner
}

// NewNUTReader 创建upsc读取器，upsName形如 ups@localhost
func NewNUTReader(upsName string) *NUTReader {
	return &NUTReader{
		upsName: upsName,
		runner:  execRunner{},
	}
}

// Read 执行一次 upsc <ups> 并解析完整属性转储
func (r *NUTReader) Read(ctx context.Context) (*models.Reading, error) {
	out, err := r.runner.Run(ctx, "upsc", r.upsName)
	if err != nil {
		return nil, fmt.Errorf("read ups %s: %w", r.upsName, err)
	}
	return parseReading(out), nil
}

// parseReading 解析upsc的 key: value 输出；缺失的属性按未知处理，不算错误
func parseReading(out string) *models.Reading {
	reading := &models.Reading{At: time.Now()}

	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch key {
		case attrStatus:
			reading.StatusTokens = strings.Fields(value)
		case attrCharge:
			if charge, err := strconv.ParseFloat(value, 64); err == nil {
				reading.ChargePercent = charge
				reading.ChargeKnown = true
			}
		case attrRuntime:
			if runtime, err := strconv.Atoi(value); err == nil {
				reading.RuntimeSeconds = runtime
				reading.RuntimeKnown = true
			}
		}
	}

	return reading
}
