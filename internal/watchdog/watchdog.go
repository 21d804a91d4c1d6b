// Package watchdog supervises the running process: component heartbeats,
// host resource pressure, and platform connectivity. A sustained outage
// escalates to a fatal signal so the supervisor restarts the process.
package watchdog

import (
	"sync/atomic"
	"time"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
)

type Watchdog struct {
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	running       uint32

	resources    *ResourceMonitor
	connectivity *ConnectivityProbe
	fatal        chan string
}

type ComponentHealth struct {
	Name          string
	LastHeartbeat int64
	IsHealthy     uint32
	Threshold     time.Duration
}

func New(checkInterval time.Duration) *Watchdog {
	return &Watchdog{
		components:    make(map[string]*ComponentHealth),
		checkInterval: checkInterval,
		resources:     NewResourceMonitor(),
		connectivity:  NewConnectivityProbe(),
		fatal:         make(chan string, 1),
	}
}

// Fatal delivers at most one message, sent when the platform stays
// unreachable past the retry budget. Main treats it as a shutdown order.
func (w *Watchdog) Fatal() <-chan string {
	return w.fatal
}

// RegisterComponent must be called before Start; the registry is not
// mutated afterwards.
func (w *Watchdog) RegisterComponent(name string, threshold time.Duration) {
	w.components[name] = &ComponentHealth{
		Name:      name,
		IsHealthy: 1,
		Threshold: threshold,
	}
}

func (w *Watchdog) Heartbeat(name string) {
	if comp, exists := w.components[name]; exists {
		atomic.StoreInt64(&comp.LastHeartbeat, time.Now().UnixNano())
		atomic.StoreUint32(&comp.IsHealthy, 1)
	}
}

func (w *Watchdog) Start() {
	atomic.StoreUint32(&w.running, 1)
	go w.monitorLoop()
}

func (w *Watchdog) monitorLoop() {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for atomic.LoadUint32(&w.running) == 1 {
		<-ticker.C
		w.checkAllComponents()
		w.resources.Check()

		if !w.connectivity.Check() {
			if msg, dead := w.connectivity.RetryUntilFatal(func() bool {
				return atomic.LoadUint32(&w.running) == 1
			}); dead {
				select {
				case w.fatal <- msg:
				default:
				}
				return
			}
		}
	}
}

func (w *Watchdog) checkAllComponents() {
	now := time.Now().UnixNano()

	for name, comp := range w.components {
		lastBeat := atomic.LoadInt64(&comp.LastHeartbeat)
		if lastBeat == 0 {
			continue
		}

		elapsed := time.Duration(now - lastBeat)
		if elapsed > comp.Threshold {
			atomic.StoreUint32(&comp.IsHealthy, 0)
			logging.Error("[WATCHDOG] %s unhealthy (no heartbeat for %v)", name, elapsed)
		}
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	if comp, exists := w.components[name]; exists {
		return atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return false
}

func (w *Watchdog) Status() map[string]bool {
	status := make(map[string]bool)
	for name, comp := range w.components {
		status[name] = atomic.LoadUint32(&comp.IsHealthy) == 1
	}
	return status
}

func (w *Watchdog) Stop() {
	atomic.StoreUint32(&w.running, 0)
}
