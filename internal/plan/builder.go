package plan

import (
	"sort"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// Defaults 类型级默认优先级与动作
type Defaults struct {
	VMPriority int
	CTPriority int
	VMAction   models.Action
	CTAction   models.Action
}

// OverrideKey 覆盖表键
type OverrideKey struct {
	Kind models.Kind
	ID   int
}

// Override 单个工作负载的优先级与动作覆盖
type Override struct {
	Priority int
	Action   models.Action
}

// Build 从清单快照生成确定性的有序执行计划
//
// 只纳入运行中的工作负载；优先级与动作取覆盖表，缺省回退到类型默认。
// 排序为全序：优先级升序，同优先级容器先于虚拟机，再按ID升序——
// 相同输入必然产出相同计划。数字小者先关：最不重要的叶子最先停。
func Build(inventory []models.Workload, overrides map[OverrideKey]Override, defaults Defaults) []models.PlanEntry {
	var entries []models.PlanEntry

	for _, w := range inventory {
		if !w.Running() {
			continue
		}

		priority := defaults.CTPriority
		action := defaults.CTAction
		if w.Kind == models.KindVM {
			priority = defaults.VMPriority
			action = defaults.VMAction
		}
		if ov, ok := overrides[OverrideKey{Kind: w.Kind, ID: w.ID}]; ok {
			priority = ov.Priority
			action = ov.Action
		}

		entries = append(entries, models.PlanEntry{
			Priority: priority,
			Kind:     w.Kind,
			ID:       w.ID,
			Name:     w.DisplayName(),
			Action:   action,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Kind != b.Kind {
			return a.Kind.Rank() < b.Kind.Rank()
		}
		return a.ID < b.ID
	})

	return entries
}
