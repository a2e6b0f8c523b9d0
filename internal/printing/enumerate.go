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
	"os/exec"
	"strings"
)

// Enumerator lists the printers known to the host.
type Enumerator interface {
	Printers(ctx context.Context) ([]PrinterInfo, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(ctx context.Context) ([]PrinterInfo, error)

func (f EnumeratorFunc) Printers(ctx context.Context) ([]PrinterInfo, error) { return f(ctx) }

// StaticEnumerator serves a fixed list.
type StaticEnumerator []PrinterInfo

func (s StaticEnumerator) Printers(context.Context) ([]PrinterInfo, error) {
	return append([]PrinterInfo(nil), s...), nil
}

// EnumerationReply is the JSON printed by a printer enumeration helper.
type EnumerationReply struct {
	Success  bool `json:"success"`
	Printers []struct {
		Name      string `json:"name"`
		IsDefault bool   `json:"isDefault"`
		Status    int    `json:"status"`
	} `json:"printers"`
	Error string `json:"error,omitempty"`
}

// ParseEnumeration decodes a helper reply into PrinterInfo values.
func ParseEnumeration(data []byte) ([]PrinterInfo, error) {
	var r EnumerationReply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode printer list: %w", err)
	}
	if !r.Success {
		if r.Error == "" {
			r.Error = "unknown error"
		}
		return nil, errors.New(r.Error)
	}
	out := make([]PrinterInfo, 0, len(r.Printers))
	for _, p := range r.Printers {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		info := NewPrinterInfo(p.Name, p.Status)
		info.IsDefault = p.IsDefault
		out = append(out, info)
	}
	return out, nil
}

// CommandEnumerator runs an external helper (argv) that prints an
// EnumerationReply on stdout.
type CommandEnumerator struct {
	Command []string
}

func (c CommandEnumerator) Printers(ctx context.Context) ([]PrinterInfo, error) {
	if len(c.Command) == 0 {
		return nil, errors.New("no printer enumeration command configured")
	}
	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", c.Command[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", c.Command[0], err)
	}
	return ParseEnumeration(stdout.Bytes())
}

// WithBuiltins prepends the built-in destinations to what next reports.
// A nil next serves the built-ins alone.
func WithBuiltins(next Enumerator) Enumerator {
	return EnumeratorFunc(func(ctx context.Context) ([]PrinterInfo, error) {
		out := Builtins()
		if next == nil {
			return out, nil
		}
		list, err := next.Printers(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range list {
			if _, dup := FindPrinter(out, p.Name); !dup {
				out = append(out, p)
			}
		}
		return out, nil
	})
}
