package power

import (
	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// Classify 将一次UPS读数判定为继续/中止/失败
//
// 规则按顺序评估：
//   - 在线且未升压 → 中止（电源已恢复）
//   - 在线且升压且电量不高于阈值 → 继续（名义在线但供电已在衰竭）
//   - 在线且升压但电量高于阈值 → 中止
//   - 读数缺失且未允许未知继续 → 失败
//   - 读数缺失且允许未知继续 → 继续
//   - 其余（有状态且不在线）→ 继续
func Classify(r *models.Reading, proceedOnUnknown bool, boostLowBattery float64) models.Decision {
	if r == nil || len(r.StatusTokens) == 0 {
		if proceedOnUnknown {
			return models.DecisionProceed
		}
		return models.DecisionFail
	}

	if r.Has(models.TokenOnline) {
		if r.Has(models.TokenBoost) && r.ChargeKnown && r.ChargePercent <= boostLowBattery {
			return models.DecisionProceed
		}
		return models.DecisionAbstain
	}

	return models.DecisionProceed
}
