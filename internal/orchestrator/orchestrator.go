package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/executor"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/lock"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/plan"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/internal/power"
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// State 编排终态
type State string

const (
	// StateDone 序列完整走完
	StateDone State = "done"
	// StateAbortedAlreadyRunning 另一次编排已持有运行锁
	StateAbortedAlreadyRunning State = "aborted_already_running"
	// StateAbortedNoControlSurface 本机没有任何可用的工作负载控制面
	StateAbortedNoControlSurface State = "aborted_no_control_surface"
	// StateAbortedUnknownPower 电源状态不可知且未允许未知继续
	StateAbortedUnknownPower State = "aborted_unknown_power"
	// StateAbortedPowerRestored 电源已恢复
	StateAbortedPowerRestored State = "aborted_power_restored"
)

// Options 单次调用选项；由触发方传入，从不读环境态
type Options struct {
	// TestMode 全程只记录，不触碰控制面与主机
	TestMode bool
	// GuestsOnly 执行客户机动作但跳过主机断电
	GuestsOnly bool
	// SimulateFailure 绕过电源判定，无条件按断电处理
	SimulateFailure bool
	// SkipInitialWait 触发方已自行去抖时跳过初始等待
	SkipInitialWait bool
	// Event 触发事件标签，仅用于日志审计
	Event string
}

// Config 编排器配置；启动时装一次，运行期间不可变
type Config struct {
	UPSName                  string
	ProceedOnUnknown         bool
	BoostLowBatteryThreshold float64

	InitialWait time.Duration
	ActionDelay time.Duration
	GracePeriod time.Duration

	SyncAfterAction bool
	LockFile        string

	Defaults  plan.Defaults
	Overrides map[plan.OverrideKey]plan.Override
}

// Inventory 工作负载清单能力
type Inventory interface {
	Available(kind models.Kind) bool
	ListRunning(ctx context.Context) ([]models.Workload, error)
}

// HostController 主机断电能力
type HostController interface {
	PowerOffHost(ctx context.Context) error
}

// Orchestrator 一次性的关机编排状态机
//
// 单次调用内是纯顺序控制流，没有内部并行；
// 并发只存在于调用之间，完全由运行锁裁决。
type Orchestrator struct {
	cfg       Config
	inventory Inventory
	surface   executor.ControlSurface
	host      HostController
	reader    power.Reader
	logger    *logrus.Logger

	// 测试注入点
	sleep func(time.Duration)
}

// New 创建编排器
func New(cfg Config, inventory Inventory, surface executor.ControlSurface, host HostController, reader power.Reader, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		inventory: inventory,
		surface:   surface,
		host:      host,
		reader:    reader,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// Plan 从新取的清单构建当前执行计划；无锁无副作用
func (o *Orchestrator) Plan(ctx context.Context) ([]models.PlanEntry, error) {
	inventory, err := o.inventory.ListRunning(ctx)
	if err != nil {
		return nil, fmt.Errorf("list running workloads: %w", err)
	}
	return plan.Build(inventory, o.cfg.Overrides, o.cfg.Defaults), nil
}

// Run 执行一次完整的关机序列
//
// Idle → LockAcquired → (Waiting) → Classifying → Executing →
// GracePeriod → ForceStop → HostShutdown → Done。
// 仅两种失败向上冒错：控制面缺失与电源状态不可知；
// 其余一切（单个动作失败、重枚举失败、名称缺失）就地降级并继续。
func (o *Orchestrator) Run(ctx context.Context, opts Options) (State, error) {
	runLock, err := lock.Acquire(o.cfg.LockFile)
	if errors.Is(err, lock.ErrAlreadyRunning) {
		o.logger.Info("Another shutdown run is already in progress, nothing to do")
		return StateAbortedAlreadyRunning, nil
	}
	if err != nil {
		return StateAbortedAlreadyRunning, err
	}
	defer func() {
		if err := runLock.Release(); err != nil {
			o.logger.Warnf("Failed to release run lock: %v", err)
		}
	}()

	log := o.logger.WithFields(logrus.Fields{
		"run_id": uuid.NewString(),
		"event":  opts.Event,
	})

	// 预检：两类控制面都不可达时这台机器上无事可编排
	if !o.inventory.Available(models.KindContainer) && !o.inventory.Available(models.KindVM) {
		log.Error("Neither qm nor pct is available on this host")
		return StateAbortedNoControlSurface, errors.New("no workload control surface available")
	}

	// 初始等待：给未自行去抖的触发方留缓冲
	if o.cfg.InitialWait > 0 && !opts.SkipInitialWait {
		log.Infof("Waiting %s before evaluating power state", o.cfg.InitialWait)
		o.sleep(o.cfg.InitialWait)
	}

	// 判定电源状态；状态记录行无论结果如何都要落日志
	reading, readErr := o.reader.Read(ctx)
	if readErr != nil {
		log.Warnf("Failed to read UPS status: %v", readErr)
	}
	o.logStatusRecord(log, reading)

	decision := models.DecisionProceed
	if opts.SimulateFailure {
		log.Warn("Simulated power failure requested, bypassing power state classification")
	} else {
		decision = power.Classify(reading, o.cfg.ProceedOnUnknown, o.cfg.BoostLowBatteryThreshold)
	}

	switch decision {
	case models.DecisionAbstain:
		log.Info("Power restored, aborting shutdown sequence")
		return StateAbortedPowerRestored, nil
	case models.DecisionFail:
		log.Error("UPS status unknown and proceed_on_unknown is disabled, refusing to guess")
		return StateAbortedUnknownPower, errors.New("ups status unknown")
	}

	exec := executor.New(o.surface, executor.Config{
		TestMode:        opts.TestMode,
		SyncAfterAction: o.cfg.SyncAfterAction,
		ActionDelay:     o.cfg.ActionDelay,
	}, log)

	// 构建并按序下发计划；严格串行，优先级排序正是全部意义所在
	entries, err := o.Plan(ctx)
	if err != nil {
		log.Warnf("Failed to build execution plan, continuing with empty plan: %v", err)
	}
	if len(entries) == 0 {
		log.Info("No running workloads, nothing to plan")
	} else {
		log.Infof("Executing shutdown plan with %d entries", len(entries))
		for _, entry := range entries {
			exec.Apply(ctx, entry)
		}
	}

	// 宽限期：给优雅动作在客户机内部异步生效的时间
	if o.cfg.GracePeriod > 0 {
		log.Infof("Grace period %s before force stop", o.cfg.GracePeriod)
		o.sleep(o.cfg.GracePeriod)
	}

	// 安全网：重新枚举（不用过期计划），强停仍在运行者，不按优先级
	stragglers, err := o.inventory.ListRunning(ctx)
	if err != nil {
		log.Warnf("Failed to re-enumerate running workloads: %v", err)
	}
	for _, w := range stragglers {
		exec.ForceStop(ctx, w)
	}

	if opts.TestMode || opts.GuestsOnly {
		log.Info("Skipping host power-off")
		return StateDone, nil
	}

	if err := o.host.PowerOffHost(ctx); err != nil {
		log.Errorf("Host power-off failed: %v", err)
	}
	return StateDone, nil
}

// logStatusRecord 输出结构化状态记录行（时间戳、来源、状态、电量、续航）
func (o *Orchestrator) logStatusRecord(log logrus.FieldLogger, r *models.Reading) {
	status, charge, runtime := "unknown", "unknown", "unknown"
	if r != nil {
		if len(r.StatusTokens) > 0 {
			status = strings.Join(r.StatusTokens, " ")
		}
		if r.ChargeKnown {
			charge = fmt.Sprintf("%.0f%%", r.ChargePercent)
		}
		if r.RuntimeKnown {
			runtime = fmt.Sprintf("%ds", r.RuntimeSeconds)
		}
	}

	log.WithFields(logrus.Fields{
		"source":  o.cfg.UPSName,
		"status":  status,
		"charge":  charge,
		"runtime": runtime,
	}).Info("UPS status record")
}
