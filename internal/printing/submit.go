/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	applog "photolayout/internal/log"
)

// Request is a validated job handed to a print collaborator.
type Request struct {
	JobID    string
	HTML     string
	Pages    int
	Settings Settings
	Options  JobOptions
}

// Receipt describes where a submitted job went.
type Receipt struct {
	Printer string
	// Output is the written file for file destinations.
	Output string
}

// Submitter hands a rendered document to a print collaborator.
type Submitter interface {
	Submit(ctx context.Context, req Request) (Receipt, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req Request) (Receipt, error)

func (f SubmitterFunc) Submit(ctx context.Context, req Request) (Receipt, error) { return f(ctx, req) }

// ErrNoBackend is returned when no submitter handles the selected printer.
var ErrNoBackend = errors.New("no print backend configured")

// Router dispatches by printer: built-in destinations get their own
// submitter, everything else goes to Default.
type Router struct {
	PDF     Submitter
	Test    Submitter
	Default Submitter
}

func (r Router) Submit(ctx context.Context, req Request) (Receipt, error) {
	var s Submitter
	switch req.Options.Printer {
	case PDFPrinterName:
		s = r.PDF
	case TestPrinterName:
		s = r.Test
	default:
		s = r.Default
	}
	if s == nil {
		return Receipt{}, fmt.Errorf("%w for %q", ErrNoBackend, req.Options.Printer)
	}
	return s.Submit(ctx, req)
}

// TestSubmitter logs the job and succeeds after Delay.
type TestSubmitter struct {
	Delay  time.Duration
	Logger *slog.Logger
}

func (t TestSubmitter) Submit(ctx context.Context, req Request) (Receipt, error) {
	l := t.Logger
	if l == nil {
		l = applog.WithComponent("print.test")
	}
	l.InfoContext(ctx, "test printer job",
		slog.String("printer", req.Settings.Printer),
		slog.String("copies", req.Settings.Copies),
		slog.String("layout", req.Settings.Layout),
		slog.String("pages", req.Settings.Pages),
		slog.String("pageRanges", req.Settings.PageRanges),
		slog.String("quality", req.Settings.Quality),
		slog.String("paperType", req.Settings.PaperType),
		slog.String("paper", "A4"),
		slog.Int("documentPages", req.Pages),
		slog.Int("htmlBytes", len(req.HTML)),
	)
	if t.Delay > 0 {
		timer := time.NewTimer(t.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Receipt{}, ctx.Err()
		case <-timer.C:
		}
	}
	return Receipt{Printer: req.Options.Printer}, nil
}

// CommandSubmitter writes the document to a temporary HTML file and runs
// Command with the file path and printer name appended. Job options are
// passed through PLY_PRINT_* environment variables. The helper may print
// {"success": bool, "error": string} on stdout.
type CommandSubmitter struct {
	Command []string
	TempDir string
}

func (c CommandSubmitter) Submit(ctx context.Context, req Request) (Receipt, error) {
	if len(c.Command) == 0 {
		return Receipt{}, fmt.Errorf("%w: empty submit command", ErrNoBackend)
	}
	f, err := os.CreateTemp(c.TempDir, "print-content-*.html")
	if err != nil {
		return Receipt{}, fmt.Errorf("create print file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(req.HTML); err != nil {
		_ = f.Close()
		return Receipt{}, fmt.Errorf("write print file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Receipt{}, fmt.Errorf("close print file: %w", err)
	}

	args := append(append([]string(nil), c.Command[1:]...), path, req.Options.Printer)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	cmd.Env = append(os.Environ(), jobEnv(req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Receipt{}, fmt.Errorf("%s: %w: %s", c.Command[0], err, msg)
		}
		return Receipt{}, fmt.Errorf("%s: %w", c.Command[0], err)
	}
	if out := bytes.TrimSpace(stdout.Bytes()); len(out) > 0 && out[0] == '{' {
		var reply struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		if err := json.Unmarshal(out, &reply); err == nil && !reply.Success {
			return Receipt{}, fmt.Errorf("%s: %s", c.Command[0], reply.Error)
		}
	}
	return Receipt{Printer: req.Options.Printer}, nil
}

func jobEnv(req Request) []string {
	o := req.Options
	layout := "portrait"
	if o.Landscape {
		layout = "landscape"
	}
	return []string{
		"PLY_PRINT_JOB=" + req.JobID,
		"PLY_PRINT_COPIES=" + strconv.Itoa(o.Copies),
		"PLY_PRINT_LAYOUT=" + layout,
		"PLY_PRINT_DPI=" + strconv.Itoa(o.DPI),
		"PLY_PRINT_PAPER_TYPE=" + o.PaperType,
		"PLY_PRINT_PAGE_RANGES=" + RangesString(o.Ranges),
	}
}
