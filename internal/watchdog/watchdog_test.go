package watchdog

import (
	"testing"
	"time"
)

func TestHeartbeatKeepsComponentHealthy(t *testing.T) {
	w := New(time.Hour)
	w.RegisterComponent("gateway", 50*time.Millisecond)

	w.Heartbeat("gateway")
	w.checkAllComponents()

	if !w.IsHealthy("gateway") {
		t.Fatal("fresh heartbeat should keep the component healthy")
	}
}

func TestStaleHeartbeatFlagsUnhealthy(t *testing.T) {
	w := New(time.Hour)
	w.RegisterComponent("gateway", 10*time.Millisecond)

	w.Heartbeat("gateway")
	time.Sleep(30 * time.Millisecond)
	w.checkAllComponents()

	if w.IsHealthy("gateway") {
		t.Fatal("component past its threshold should be unhealthy")
	}
	if status := w.Status(); status["gateway"] {
		t.Fatal("status map should report the component unhealthy")
	}
}

func TestComponentNeverBeatingStaysPending(t *testing.T) {
	// A component that has not reported yet is not flagged: the gateway
	// registers before its first payload arrives.
	w := New(time.Hour)
	w.RegisterComponent("gateway", time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	w.checkAllComponents()

	if !w.IsHealthy("gateway") {
		t.Fatal("a component awaiting its first heartbeat must not be flagged")
	}
}

func TestRetryUntilFatalExhaustsBudget(t *testing.T) {
	probes := 0
	p := &ConnectivityProbe{
		check:    func() bool { probes++; return false },
		attempts: 3,
		delay:    time.Millisecond,
	}

	msg, dead := p.RetryUntilFatal(func() bool { return true })
	if !dead {
		t.Fatal("exhausted retries should escalate")
	}
	if msg == "" {
		t.Fatal("escalation should carry a message")
	}
	if probes != 3 {
		t.Fatalf("expected 3 probes, got %d", probes)
	}
}

func TestRetryUntilFatalStopsOnRecovery(t *testing.T) {
	probes := 0
	p := &ConnectivityProbe{
		check:    func() bool { probes++; return probes >= 2 },
		attempts: 5,
		delay:    time.Millisecond,
	}

	if _, dead := p.RetryUntilFatal(func() bool { return true }); dead {
		t.Fatal("recovery during retries must not escalate")
	}
	if probes != 2 {
		t.Fatalf("expected retries to stop at recovery, got %d probes", probes)
	}
}

func TestRetryUntilFatalAbortsOnShutdown(t *testing.T) {
	p := &ConnectivityProbe{
		check:    func() bool { return false },
		attempts: 5,
		delay:    time.Millisecond,
	}

	if _, dead := p.RetryUntilFatal(func() bool { return false }); dead {
		t.Fatal("shutdown during retries must not escalate")
	}
}
