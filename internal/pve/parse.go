package pve

import (
	"strconv"
	"strings"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

// parseQMList 解析 qm list 的表格输出
//
// 列: VMID NAME STATUS MEM(MB) BOOTDISK(GB) PID
func parseQMList(out string) []models.Workload {
	var workloads []models.Workload

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		// 首列非数字的是表头
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		workloads = append(workloads, models.Workload{
			Kind:   models.KindVM,
			ID:     id,
			Name:   fields[1],
			Status: strings.ToLower(fields[2]),
		})
	}

	return workloads
}

// parsePCTList 解析 pct list 的表格输出
//
// 列: VMID Status Lock Name，Lock列常为空，名称取末列
func parsePCTList(out string) []models.Workload {
	var workloads []models.Workload

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}

		name := ""
		if len(fields) >= 3 {
			name = fields[len(fields)-1]
		}

		workloads = append(workloads, models.Workload{
			Kind:   models.KindContainer,
			ID:     id,
			Name:   name,
			Status: strings.ToLower(fields[1]),
		})
	}

	return workloads
}
