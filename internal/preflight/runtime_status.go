package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// DaemonProbe reports what the session API of a running daemon returned.
type DaemonProbe struct {
	Running  bool
	Address  string
	Sessions int
	Detail   string
}

type healthPayload struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// CheckDaemon queries /api/health on bind. A wildcard bind host is probed on
// the loopback address.
func CheckDaemon(ctx context.Context, bind string) DaemonProbe {
	address := probeAddress(bind)
	probe := DaemonProbe{Address: address}
	if address == "" {
		probe.Detail = "api.bind not configured"
		return probe
	}

	checkCtx, cancel := context.WithTimeout(ctx, httpCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, "http://"+address+"/api/health", nil)
	if err != nil {
		probe.Detail = err.Error()
		return probe
	}
	resp, err := (&http.Client{Timeout: httpCheckTimeout}).Do(req)
	if err != nil {
		probe.Detail = "Not running"
		return probe
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		probe.Detail = fmt.Sprintf("health check failed (%d)", resp.StatusCode)
		return probe
	}
	var payload healthPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		probe.Detail = fmt.Sprintf("invalid health payload (%v)", err)
		return probe
	}
	probe.Running = payload.Status == "ok"
	probe.Sessions = payload.Sessions
	probe.Detail = fmt.Sprintf("Running on %s (%d active sessions)", address, payload.Sessions)
	return probe
}

func probeAddress(bind string) string {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return ""
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
