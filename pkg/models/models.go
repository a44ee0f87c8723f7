package models

import (
	"fmt"
	"time"
)

// Kind 工作负载类型
type Kind string

const (
	// KindContainer LXC容器
	KindContainer Kind = "ct"
	// KindVM QEMU虚拟机
	KindVM Kind = "vm"
)

// Rank 返回同优先级下的排序序号（容器先于虚拟机）
func (k Kind) Rank() int {
	if k == KindContainer {
		return 0
	}
	return 1
}

// Valid 判断是否为已知类型
func (k Kind) Valid() bool {
	return k == KindContainer || k == KindVM
}

// Action 关机动作
type Action string

const (
	// ActionShutdown 请求客户机配合的优雅关机
	ActionShutdown Action = "shutdown"
	// ActionStop 立即强制停止
	ActionStop Action = "stop"
	// ActionHibernate 挂起到磁盘（仅虚拟机）
	ActionHibernate Action = "hibernate"
)

// ValidFor 判断动作对指定类型是否合法
func (a Action) ValidFor(kind Kind) bool {
	switch a {
	case ActionShutdown, ActionStop:
		return kind.Valid()
	case ActionHibernate:
		return kind == KindVM
	}
	return false
}

// StatusRunning 运行中状态标识
const StatusRunning = "running"

// Workload 节点上的一个工作负载（每次运行从外部清单新取，不跨运行缓存）
type Workload struct {
	Kind   Kind   `json:"kind"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// DisplayName 返回名称，缺失时合成一个
func (w Workload) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}
	return fmt.Sprintf("%s-%d", w.Kind, w.ID)
}

// Running 判断是否处于运行状态
func (w Workload) Running() bool {
	return w.Status == StatusRunning
}

// PlanEntry 执行计划条目
type PlanEntry struct {
	Priority int    `json:"priority"`
	Kind     Kind   `json:"kind"`
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Action   Action `json:"action"`
}

// UPS状态标记
const (
	// TokenOnline 在线标记
	TokenOnline = "OL"
	// TokenBoost 升压（名义在线但正从储能补偿）标记
	TokenBoost = "BOOST"
)

// Reading UPS状态快照（每个决策点取一次，内部不重试）
type Reading struct {
	At             time.Time `json:"at"`
	StatusTokens   []string  `json:"status_tokens"`
	ChargePercent  float64   `json:"charge_percent"`
	ChargeKnown    bool      `json:"charge_known"`
	RuntimeSeconds int       `json:"runtime_seconds"`
	RuntimeKnown   bool      `json:"runtime_known"`
}

// Has 判断状态标记是否存在
func (r *Reading) Has(token string) bool {
	for _, t := range r.StatusTokens {
		if t == token {
			return true
		}
	}
	return false
}

// Decision 电源状态判定结果
type Decision string

const (
	// DecisionProceed 继续关机序列
	DecisionProceed Decision = "proceed"
	// DecisionAbstain 电源已恢复，停止序列
	DecisionAbstain Decision = "abstain"
	// DecisionFail 状态未知且未允许继续，拒绝猜测
	DecisionFail Decision = "fail"
)

// ActionOutcome 单个动作的执行结果
type ActionOutcome struct {
	Attempted bool  `json:"attempted"`
	Succeeded bool  `json:"succeeded"`
	Err       error `json:"-"`
}
