package watchdog

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"

	"github.com/zapricaa/ai-defender-bot/internal/logging"
)

const (
	gatewayInfoURL = "https://discord.com/api/v10/gateway"
	gatewayWSURL   = "wss://gateway.discord.gg/?v=10&encoding=json"

	probeTimeout  = 5 * time.Second
	retryAttempts = 3
	retryDelay    = 10 * time.Second
)

// ConnectivityProbe verifies the platform is reachable two ways: an HTTP
// request against the gateway info endpoint, and a raw websocket dial of
// the gateway itself. Either succeeding counts as connected.
type ConnectivityProbe struct {
	http   *fasthttp.Client
	dialer *websocket.Dialer

	// check replaces the live probes when set.
	check    func() bool
	attempts int
	delay    time.Duration
}

func NewConnectivityProbe() *ConnectivityProbe {
	return &ConnectivityProbe{
		http: &fasthttp.Client{
			ReadTimeout:         probeTimeout,
			WriteTimeout:        probeTimeout,
			MaxConnsPerHost:     2,
			MaxIdleConnDuration: time.Minute,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: probeTimeout,
		},
		attempts: retryAttempts,
		delay:    retryDelay,
	}
}

func (p *ConnectivityProbe) Check() bool {
	if p.check != nil {
		return p.check()
	}
	if p.probeHTTP() {
		return true
	}
	return p.probeGateway()
}

func (p *ConnectivityProbe) probeHTTP() bool {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(gatewayInfoURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := p.http.DoTimeout(req, resp, probeTimeout); err != nil {
		logging.Debug("[WATCHDOG] HTTP probe failed: %v", err)
		return false
	}
	return resp.StatusCode() < 500
}

func (p *ConnectivityProbe) probeGateway() bool {
	conn, _, err := p.dialer.Dial(gatewayWSURL, nil)
	if err != nil {
		logging.Debug("[WATCHDOG] Gateway dial failed: %v", err)
		return false
	}
	conn.Close()
	return true
}

// RetryUntilFatal re-probes a bounded number of times after a failed
// check. It returns a fatal message and true once the budget is spent;
// keepGoing lets the caller abort retries during shutdown.
func (p *ConnectivityProbe) RetryUntilFatal(keepGoing func() bool) (string, bool) {
	for attempt := 1; attempt <= p.attempts; attempt++ {
		logging.Warn("[WATCHDOG] Platform unreachable, retry %d/%d in %v", attempt, p.attempts, p.delay)
		time.Sleep(p.delay)
		if !keepGoing() {
			return "", false
		}
		if p.Check() {
			logging.Info("[WATCHDOG] Platform connectivity recovered")
			return "", false
		}
	}
	return fmt.Sprintf("platform unreachable after %d probes", p.attempts), true
}
