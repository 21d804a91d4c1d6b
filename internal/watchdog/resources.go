package watchdog

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
)

const (
	cpuAlertPercent = 80.0
	memAlertPercent = 80.0
	alertCooldown   = 300 * time.Second
	sampleHistory   = 12
)

// ResourceMonitor samples host CPU and memory pressure. Alerts are rate
// limited so a sustained spike produces one log line per cooldown, not
// one per tick.
type ResourceMonitor struct {
	cpuSamples []float64
	memSamples []float64
	lastAlert  time.Time
}

func NewResourceMonitor() *ResourceMonitor {
	return &ResourceMonitor{
		cpuSamples: make([]float64, 0, sampleHistory),
		memSamples: make([]float64, 0, sampleHistory),
	}
}

func (r *ResourceMonitor) Check() {
	cpuPercent, err := cpu.Percent(0, false)
	if err != nil || len(cpuPercent) == 0 {
		logging.Debug("[WATCHDOG] CPU sample failed: %v", err)
		return
	}
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		logging.Debug("[WATCHDOG] Memory sample failed: %v", err)
		return
	}

	r.cpuSamples = appendSample(r.cpuSamples, cpuPercent[0])
	r.memSamples = appendSample(r.memSamples, memInfo.UsedPercent)

	if time.Since(r.lastAlert) < alertCooldown {
		return
	}

	cpuAvg := average(r.cpuSamples)
	memAvg := average(r.memSamples)
	if cpuAvg > cpuAlertPercent || memAvg > memAlertPercent {
		logging.Warn("[WATCHDOG] Resource pressure: CPU %.1f%% avg, memory %.1f%% avg", cpuAvg, memAvg)
		r.lastAlert = time.Now()
	}
}

func appendSample(samples []float64, v float64) []float64 {
	if len(samples) == sampleHistory {
		copy(samples, samples[1:])
		samples = samples[:sampleHistory-1]
	}
	return append(samples, v)
}

func average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}
