/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in, anonymous usage events (print outcomes,
// exports) and optional crash reports. Nothing is sent unless the user opted
// in and an endpoint is configured; printer names and file paths never leave
// the machine.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"photolayout/internal/config"
	applog "photolayout/internal/log"
	"photolayout/internal/printing"
	"photolayout/internal/version"
)

// Event names.
const (
	EventStarted      = "started"
	EventPrintOutcome = "print_outcome"
	EventExport       = "export"
)

const (
	EnvEventsURL = "PLY_TELEMETRY_URL"
	EnvCrashURL  = "PLY_CRASH_UPLOAD_URL"
	EnvTimeoutMs = "PLY_TELEMETRY_TIMEOUT_MS"
	EnvDebug     = "PLY_TELEMETRY_DEBUG"
)

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
// - PLY_TELEMETRY_OPT_IN: "1", "true", "yes" to enable
// - PLY_TELEMETRY_URL: endpoint events are POSTed to as JSON
// - PLY_CRASH_UPLOAD_URL: endpoint crash reports are POSTed to
// - PLY_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
// - PLY_TELEMETRY_DEBUG: log send attempts
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv(config.EnvTelemetryOptIn)),
		EventsURL:    strings.TrimSpace(os.Getenv(EnvEventsURL)),
		CrashURL:     strings.TrimSpace(os.Getenv(EnvCrashURL)),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv(EnvDebug) != "",
	}
	if ms := strings.TrimSpace(os.Getenv(EnvTimeoutMs)); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

// FromConfig starts from the environment and fills gaps from the user config.
func FromConfig(g config.GeneralConfig) Config {
	cfg := FromEnv()
	if !cfg.OptIn {
		cfg.OptIn = g.TelemetryOptIn
	}
	if cfg.EventsURL == "" {
		cfg.EventsURL = strings.TrimSpace(g.TelemetryURL)
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client queues events and posts them from one background goroutine.
// A full queue drops the event; sending never blocks the caller.
type Client struct {
	cfg    Config
	log    *slog.Logger
	cli    *http.Client
	q      chan map[string]any
	once   sync.Once
	closed chan struct{}

	sent    atomic.Int64
	dropped atomic.Int64
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault installs a client built from the environment on first use.
func InitDefault() {
	defaultOnce.Do(func() {
		if defaultClient == nil {
			defaultClient = New(FromEnv())
		}
	})
}

// NewDefault replaces the package-level client.
func NewDefault(cfg Config) {
	defaultOnce.Do(func() {})
	defaultClient = New(cfg)
}

// Default returns the package-level client.
func Default() *Client {
	InitDefault()
	return defaultClient
}

// New constructs a client and starts its sender.
func New(cfg Config) *Client {
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		cli:    &http.Client{Timeout: cfg.Timeout},
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events are sent at all.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

func Enabled() bool { return Default().Enabled() }

// Event queues a named event. props must not carry personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}
	select {
	case c.q <- payload:
	default:
		c.dropped.Add(1)
	}
}

func Event(name string, props map[string]any) { Default().Event(name, props) }

// PrintOutcome reports how a print job ended.
func (c *Client) PrintOutcome(job printing.Job) {
	c.Event(EventPrintOutcome, PrintOutcomeProps(job))
}

// PrintOutcomeProps reduces a job to anonymous properties: the kind of
// destination instead of its name, counts instead of contents.
func PrintOutcomeProps(job printing.Job) map[string]any {
	dest := "physical"
	switch {
	case job.Printer == printing.PDFPrinterName:
		dest = "pdf"
	case job.Printer == printing.TestPrinterName:
		dest = "test"
	case printing.IsVirtual(job.Printer):
		dest = "virtual"
	}
	return map[string]any{
		"state":       job.State.String(),
		"destination": dest,
		"pages":       job.Pages,
		"errors":      len(job.Errors),
		"duration_ms": job.Duration().Milliseconds(),
	}
}

// Flush waits briefly for the queue to drain.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Sent and Dropped count delivered and discarded events.
func (c *Client) Sent() int64    { return c.sent.Load() }
func (c *Client) Dropped() int64 { return c.dropped.Load() }

// Close stops the sender. Queued events are discarded.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			buf, err := json.Marshal(item)
			if err != nil {
				continue
			}
			if c.post(c.cfg.EventsURL, "application/json", buf) {
				c.sent.Add(1)
			}
		}
	}
}

func (c *Client) post(url, contentType string, body []byte) bool {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug("telemetry send failed", slog.String("url", url), slog.Any("err", err))
		}
		return false
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug("telemetry sent", slog.Int("status", resp.StatusCode))
	}
	return resp.StatusCode < 300
}

// UploadCrash posts a crash report in the background when opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	b := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", b)
}

func UploadCrash(report []byte) { Default().UploadCrash(report) }
