package handler

import (
	"runtime"
	"time"

	"main/utils"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

var serverStart = time.Now()

// StatsHandler reports process health for the dashboard's admin view.
func StatsHandler(c *gin.Context) {
	cpuPercent := 0.0
	if percentages, err := cpu.Percent(0, false); err == nil && len(percentages) > 0 {
		cpuPercent = percentages[0]
	}

	memUsedPercent := 0.0
	if vm, err := mem.VirtualMemory(); err == nil {
		memUsedPercent = vm.UsedPercent
	}

	utils.Success(c, gin.H{
		"uptime_seconds":   int64(time.Since(serverStart).Seconds()),
		"cpu_percent":      cpuPercent,
		"mem_used_percent": memUsedPercent,
		"goroutines":       runtime.NumGoroutine(),
	})
}
