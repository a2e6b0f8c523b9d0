/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package printing

import "testing"

func TestJobStateTransitions(t *testing.T) {
	allowed := [][2]JobState{
		{StateIdle, StateDialogOpen},
		{StateDialogOpen, StateValidating},
		{StateValidating, StateRejected},
		{StateRejected, StateDialogOpen},
		{StateValidating, StateSubmitting},
		{StateSubmitting, StateSucceeded},
		{StateSucceeded, StateClosed},
		{StateSubmitting, StateFailed},
		{StateFailed, StateDialogOpen},
		{StateDialogOpen, StateClosed},
	}
	for _, tr := range allowed {
		if !tr[0].CanTransitionTo(tr[1]) {
			t.Errorf("%s -> %s should be allowed", tr[0], tr[1])
		}
	}
	denied := [][2]JobState{
		{StateIdle, StateSubmitting},
		{StateDialogOpen, StateSubmitting},
		{StateRejected, StateSubmitting},
		{StateFailed, StateClosed},
		{StateSucceeded, StateDialogOpen},
		{StateValidating, StateClosed},
	}
	for _, tr := range denied {
		if tr[0].CanTransitionTo(tr[1]) {
			t.Errorf("%s -> %s should be denied", tr[0], tr[1])
		}
	}
}
