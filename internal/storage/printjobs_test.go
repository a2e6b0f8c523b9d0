/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"
	"time"

	"photolayout/internal/printing"
)

func TestRecordAndListPrintJobs(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	start := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	ok := printing.Job{
		ID: "a", Printer: "HP", State: printing.StateSucceeded, Pages: 2,
		Settings:  printing.DefaultSettings(),
		StartedAt: start, EndedAt: start.Add(time.Second),
	}
	bad := printing.Job{
		ID: "b", Printer: "HP", State: printing.StateRejected,
		Errors:    []string{"Copies is required"},
		StartedAt: start.Add(time.Minute),
	}
	for _, j := range []printing.Job{ok, bad} {
		if err := ix.RecordPrintJob(ctx, j); err != nil {
			t.Fatalf("record %s: %v", j.ID, err)
		}
	}
	got, err := ix.ListPrintJobs(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Fatalf("newest first: %+v", got)
	}
	if len(got[0].Errors) != 1 || got[0].State != printing.StateRejected || !got[0].EndedAt.IsZero() {
		t.Fatalf("rejected job: %+v", got[0])
	}
	if got[1].Settings != ok.Settings || got[1].Duration() != time.Second {
		t.Fatalf("succeeded job: %+v", got[1])
	}
}
