/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photolayout/internal/domain"
)

const (
	LayoutFileName = "layout.json"
	BackupsDirName = "backups"
	// DefaultBackupsKept bounds the backups directory when a Workspace does not say otherwise.
	DefaultBackupsKept = 10
)

var standardSubDirs = []string{
	"images",
	"exports",
	BackupsDirName,
}

// Workspace is a layout loaded from or saved to a directory.
// Root contains layout.json and the standard subfolders.
type Workspace struct {
	Root        string
	LayoutPath  string
	Session     *domain.Session
	BackupsKept int
}

// Init creates a workspace at root, scaffolds the subfolders and writes s.
func Init(root string, s *domain.Session) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if s == nil {
		s = domain.NewSession()
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	ws := &Workspace{Root: root, LayoutPath: filepath.Join(root, LayoutFileName), Session: s}
	if err := Save(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the workspace at root. If layout.json is missing, unreadable
// or fails validation, the newest backup is used instead.
func Open(root string) (*Workspace, error) {
	lpath := filepath.Join(root, LayoutFileName)
	b, err := os.ReadFile(lpath)
	if err == nil {
		var s *domain.Session
		if s, err = UnmarshalLayout(b); err == nil {
			return &Workspace{Root: root, LayoutPath: lpath, Session: s}, nil
		}
	}
	s, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open layout: %w; backup attempt: %v", err, berr)
	}
	return &Workspace{Root: root, LayoutPath: lpath, Session: s}, nil
}

// Save writes the session with a temp-file-and-rename and keeps a
// timestamped copy of the previous layout in backups/.
func Save(ws *Workspace) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if ws.Root == "" || ws.LayoutPath == "" {
		return errors.New("invalid Workspace: missing paths")
	}
	data, err := MarshalLayout(ws.Session)
	if err != nil {
		return err
	}

	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ws.LayoutPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", LayoutFileName, stamp))
		if cerr := copyFile(ws.LayoutPath, bpath); cerr != nil {
			return fmt.Errorf("backup current layout: %w", cerr)
		}
		keep := ws.BackupsKept
		if keep <= 0 {
			keep = DefaultBackupsKept
		}
		if _, perr := PruneBackups(ws.Root, keep); perr != nil {
			return perr
		}
	}
	return writeAtomic(ws.LayoutPath, data)
}

// AutosaveCrash writes the in-memory session next to the regular backups
// without touching layout.json. Open falls back to it like any backup.
func AutosaveCrash(ws *Workspace) (string, error) {
	if ws == nil || ws.Root == "" || ws.Session == nil {
		return "", errors.New("invalid Workspace")
	}
	data, err := MarshalLayout(ws.Session)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(ws.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(bdir, fmt.Sprintf("%s.%s.crash.bak", LayoutFileName, stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash autosave: %w", err)
	}
	return path, nil
}

// SaveAs moves the workspace to newRoot and saves it there.
func SaveAs(ws *Workspace, newRoot string) error {
	if ws == nil {
		return errors.New("nil Workspace")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	ws.Root = newRoot
	ws.LayoutPath = filepath.Join(newRoot, LayoutFileName)
	return Save(ws)
}

// Backups lists layout backups oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, LayoutFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// PruneBackups deletes all but the newest keep backups and reports how many went.
func PruneBackups(root string, keep int) (int, error) {
	all, err := Backups(root)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(all)-removed > keep {
		if err := os.Remove(all[removed]); err != nil {
			return removed, fmt.Errorf("prune backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// WriteLayoutFile saves s to an arbitrary path chosen by the user.
func WriteLayoutFile(path string, s *domain.Session) error {
	data, err := MarshalLayout(s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.ExternalIO("save layout", err)
	}
	return domain.ExternalIO("save layout", writeAtomic(path, data))
}

// ReadLayoutFile loads a layout from an arbitrary path.
func ReadLayoutFile(path string) (*domain.Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ExternalIO("load layout", err)
	}
	return UnmarshalLayout(b)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileSync writes data and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup walks backups newest first and returns the first valid one.
func openFromLatestBackup(root string) (*domain.Session, error) {
	candidates, err := Backups(root)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		b, err := os.ReadFile(candidates[i])
		if err != nil {
			lastErr = err
			continue
		}
		s, err := UnmarshalLayout(b)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", filepath.Base(candidates[i]), err)
			continue
		}
		return s, nil
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}
