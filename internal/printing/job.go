/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import (
	"fmt"
	"time"
)

// JobState is a step in the print job lifecycle.
type JobState string

const (
	StateIdle       JobState = "idle"
	StateDialogOpen JobState = "dialog_open"
	StateValidating JobState = "validating"
	StateRejected   JobState = "rejected"
	StateSubmitting JobState = "submitting"
	StateSucceeded  JobState = "succeeded"
	StateFailed     JobState = "failed"
	StateClosed     JobState = "closed"
)

var transitions = map[JobState][]JobState{
	StateIdle:       {StateDialogOpen},
	StateDialogOpen: {StateValidating, StateClosed},
	StateValidating: {StateRejected, StateSubmitting},
	StateRejected:   {StateDialogOpen},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateSucceeded:  {StateClosed},
	StateFailed:     {StateDialogOpen},
	StateClosed:     {StateDialogOpen},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s JobState) CanTransitionTo(target JobState) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the job has finished, successfully or not.
func (s JobState) IsTerminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateRejected
}

func (s JobState) String() string { return string(s) }

// TransitionError reports a disallowed state change.
type TransitionError struct{ From, To JobState }

func (e *TransitionError) Error() string {
	return fmt.Sprintf("print job cannot move from %s to %s", e.From, e.To)
}

// Job records one print attempt.
type Job struct {
	ID        string     `json:"id"`
	Printer   string     `json:"printer"`
	Settings  Settings   `json:"settings"`
	State     JobState   `json:"state"`
	Errors    []string   `json:"errors,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Output    string     `json:"output,omitempty"`
	Pages     int        `json:"pages"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   time.Time  `json:"endedAt,omitempty"`
	Trace     []JobState `json:"trace"`
}

// Duration is the time between validation start and the job's end.
func (j Job) Duration() time.Duration {
	if j.EndedAt.IsZero() {
		return 0
	}
	return j.EndedAt.Sub(j.StartedAt)
}
