/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo implements the linear undo/redo command stack that every
// editor mutation of a Session goes through.
package undo

import (
	"errors"
	"sync"

	"photolayout/internal/domain"
)

// ErrBusy is returned when Execute, Undo or Redo is called while another
// command is still applying, including re-entrant calls from inside a command.
var ErrBusy = errors.New("undo: command stack busy")

// Config controls the depth cap.
type Config struct {
	// MaxDepth limits the number of commands kept (0 means unlimited).
	// The oldest commands are dropped first.
	MaxDepth int
}

// Stack is a single-branch undo log over one Session. index points at the
// last applied command; -1 means nothing to undo.
type Stack struct {
	cfg     Config
	session *domain.Session

	mu      sync.Mutex
	busy    bool
	history []Command
	index   int
}

func NewStack(s *domain.Session, cfg Config) *Stack {
	return &Stack{cfg: cfg, session: s, index: -1}
}

// Session returns the session the stack mutates.
func (st *Stack) Session() *domain.Session { return st.session }

func (st *Stack) enter() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.busy {
		return false
	}
	st.busy = true
	return true
}

func (st *Stack) leave() {
	st.mu.Lock()
	st.busy = false
	st.mu.Unlock()
}

// Execute applies cmd and records it, discarding any undone commands.
// A command whose apply fails is not recorded.
func (st *Stack) Execute(cmd Command) error {
	if cmd == nil {
		return errors.New("undo: nil command")
	}
	if !st.enter() {
		return ErrBusy
	}
	defer st.leave()
	if err := cmd.apply(st.session); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.history = append(st.history[:st.index+1], cmd)
	st.index++
	if st.cfg.MaxDepth > 0 && len(st.history) > st.cfg.MaxDepth {
		drop := len(st.history) - st.cfg.MaxDepth
		st.history = append([]Command(nil), st.history[drop:]...)
		st.index -= drop
	}
	return nil
}

// Undo reverts the last applied command. It reports false at the floor.
func (st *Stack) Undo() (bool, error) {
	if !st.enter() {
		return false, ErrBusy
	}
	defer st.leave()
	st.mu.Lock()
	if st.index < 0 {
		st.mu.Unlock()
		return false, nil
	}
	cmd := st.history[st.index]
	st.mu.Unlock()
	if err := cmd.revert(st.session); err != nil {
		return false, err
	}
	st.mu.Lock()
	st.index--
	st.mu.Unlock()
	return true, nil
}

// Redo re-applies the next undone command. It reports false at the ceiling.
func (st *Stack) Redo() (bool, error) {
	if !st.enter() {
		return false, ErrBusy
	}
	defer st.leave()
	st.mu.Lock()
	if st.index >= len(st.history)-1 {
		st.mu.Unlock()
		return false, nil
	}
	cmd := st.history[st.index+1]
	st.mu.Unlock()
	if err := cmd.apply(st.session); err != nil {
		return false, err
	}
	st.mu.Lock()
	st.index++
	st.mu.Unlock()
	return true, nil
}

func (st *Stack) CanUndo() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.index >= 0
}

func (st *Stack) CanRedo() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.index < len(st.history)-1
}

// Len is the number of recorded commands, including undone ones.
func (st *Stack) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.history)
}

// Index is the position of the last applied command.
func (st *Stack) Index() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.index
}

// Names lists recorded command names oldest first.
func (st *Stack) Names() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.history))
	for i, c := range st.history {
		out[i] = c.Name()
	}
	return out
}

// Reset forgets all commands and binds the stack to s, e.g. after loading
// a different layout.
func (st *Stack) Reset(s *domain.Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.session = s
	st.history = nil
	st.index = -1
}
