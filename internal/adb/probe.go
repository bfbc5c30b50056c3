// Package adb answers one question for the rest of the core: is the
// instance at endpoint host:port reachable right now.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// probeTimeout bounds a single reachability check.
const probeTimeout = 5 * time.Second

// Prober abstracts the reachability tool so the lifecycle layer can be
// tested without a device bridge on the host.
type Prober interface {
	// Reachable reports whether the endpoint answers within a short timeout.
	Reachable(ctx context.Context, endpoint string) bool
	// Devices lists the endpoints currently known to the bridge.
	Devices(ctx context.Context) ([]string, error)
}

// EndpointForIndex returns the conventional endpoint for an instance index.
// The console assigns port 5554+2*index on loopback.
func EndpointForIndex(index int) string {
	return fmt.Sprintf("127.0.0.1:%d", 5554+2*index)
}

// ResolveEndpoint finds a reachable endpoint for the instance: the standard
// port first, then any bridge-listed device. Returns "" when nothing answers.
func ResolveEndpoint(ctx context.Context, p Prober, index int) string {
	std := EndpointForIndex(index)
	if p.Reachable(ctx, std) {
		return std
	}
	devices, err := p.Devices(ctx)
	if err != nil {
		return ""
	}
	for _, d := range devices {
		if p.Reachable(ctx, d) {
			return d
		}
	}
	return ""
}

// ExecProbe shells out to the adb binary.
type ExecProbe struct {
	Path string
	Log  zerolog.Logger
}

// NewExecProbe constructs an adb-backed Prober.
func NewExecProbe(path string, log zerolog.Logger) *ExecProbe {
	if path == "" {
		path = "adb"
	}
	return &ExecProbe{Path: path, Log: log}
}

// Reachable runs `adb -s endpoint shell echo ready` and checks the echo.
func (p *ExecProbe) Reachable(ctx context.Context, endpoint string) bool {
	cctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	cmd := exec.CommandContext(cctx, p.Path, "-s", endpoint, "shell", "echo", "ready")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return false
	}
	ok := strings.Contains(out.String(), "ready")
	p.Log.Debug().Str("event", "probe").Str("endpoint", endpoint).Bool("reachable", ok).Msg("probe result")
	return ok
}

// Devices parses `adb devices` output into endpoints. Serial forms like
// emulator-5554 are normalized to loopback endpoints.
func (p *ExecProbe) Devices(ctx context.Context) ([]string, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cmd := exec.CommandContext(cctx, p.Path, "devices")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return ParseDevices(out.String()), nil
}

// ParseDevices extracts attached device endpoints from adb devices output.
func ParseDevices(out string) []string {
	var endpoints []string
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		// First line is the "List of devices attached" header.
		if i == 0 || line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" {
			continue
		}
		serial := fields[0]
		if strings.HasPrefix(serial, "emulator-") {
			endpoints = append(endpoints, "127.0.0.1:"+strings.TrimPrefix(serial, "emulator-"))
			continue
		}
		if strings.Contains(serial, ":") {
			endpoints = append(endpoints, serial)
		}
	}
	return endpoints
}

// Available reports whether the adb binary itself responds.
func (p *ExecProbe) Available(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return exec.CommandContext(cctx, p.Path, "version").Run() == nil
}
