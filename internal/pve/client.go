package pve

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// Proxmox控制命令
const (
	vmTool = "qm"
	ctTool = "pct"
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
		return string(out), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// lookPath 控制命令可用性探测（测试注入用）
var lookPath = exec.LookPath

// Client Proxmox VE控制面封装：qm管虚拟机，pct管容器
type Client struct {
	logger *logrus.Logger
	runner commandRunner
}

// NewClient 创建控制面客户端
func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		logger: logger,
		runner: execRunner{},
	}
}

// Available 判断指定类型的控制命令在本机是否可用
func (c *Client) Available(kind models.Kind) bool {
	_, err := lookPath(tool(kind))
	return err == nil
}

// ListWorkloads 列出指定类型的全部工作负载（含非运行状态）
func (c *Client) ListWorkloads(ctx context.Context, kind models.Kind) ([]models.Workload, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := c.runner.Run(ctx, tool(kind), "list")
	if err != nil {
		return nil, fmt.Errorf("list %s workloads: %w", kind, err)
	}

	if kind == models.KindVM {
		return parseQMList(out), nil
	}
	return parsePCTList(out), nil
}

// ListRunning 跨类型列出当前运行中的工作负载；不可用的控制面直接跳过
func (c *Client) ListRunning(ctx context.Context) ([]models.Workload, error) {
	var running []models.Workload

	for _, kind := range []models.Kind{models.KindContainer, models.KindVM} {
		if !c.Available(kind) {
			continue
		}
		workloads, err := c.ListWorkloads(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, w := range workloads {
			if w.Running() {
				running = append(running, w)
			}
		}
	}

	return running, nil
}

// GracefulStop 请求客户机配合的优雅关机
func (c *Client) GracefulStop(ctx context.Context, kind models.Kind, id int) error {
	_, err := c.runner.Run(ctx, tool(kind), "shutdown", strconv.Itoa(id))
	if err != nil {
		return fmt.Errorf("graceful stop %s %d: %w", kind, id, err)
	}
	return nil
}

// ForceStop 立即强制停止
func (c *Client) ForceStop(ctx context.Context, kind models.Kind, id int) error {
	_, err := c.runner.Run(ctx, tool(kind), "stop", strconv.Itoa(id))
	if err != nil {
		return fmt.Errorf("force stop %s %d: %w", kind, id, err)
	}
	return nil
}

// Hibernate 虚拟机挂起到磁盘
func (c *Client) Hibernate(ctx context.Context, id int) error {
	_, err := c.runner.Run(ctx, vmTool, "suspend", strconv.Itoa(id), "--todisk", "1")
	if err != nil {
		return fmt.Errorf("hibernate vm %d: %w", id, err)
	}
	return nil
}

// PowerOffHost 发出主机断电请求；进程预期随之被终止，不等待结果
func (c *Client) PowerOffHost(ctx context.Context) error {
	c.logger.Warn("Issuing host power-off")
	_, err := c.runner.Run(ctx, "shutdown", "-h", "now")
	if err != nil {
		return fmt.Errorf("host power-off: %w", err)
	}
	return nil
}

// tool 返回类型对应的控制命令
func tool(kind models.Kind) string {
	if kind == models.KindVM {
		return vmTool
	}
	return ctTool
}
