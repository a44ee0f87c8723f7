package power

import (
	"context"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// Reader UPS状态读取能力
type Reader interface {
	// Read 取一次状态快照；读取失败返回错误，调用方按未知处理
	Read(ctx context.Context) (*models.Reading, error)
}
