// seehuhn.de/go/vectorize - interactive raster to vector conversion
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SessionContext is the identity the coordinator acts for. With a Token
// the user is authenticated; without one a guest id is loaded from Store,
// or created and saved there on first use.
type SessionContext struct {
	Token string
	Store Store
}

// Guest reports whether the session has no bearer token.
func (s SessionContext) Guest() bool {
	return s.Token == ""
}

// Store persists the guest id across runs.
type Store interface {
	// Load returns the saved id, or "" if none has been saved.
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, id string) error
}

// MemoryStore keeps the guest id for the lifetime of the process.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

func (m *MemoryStore) Save(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

// FileStore keeps the guest id in a JSON file which only the owner can
// read.
type FileStore struct {
	Path string
}

type fileRecord struct {
	GuestID string `json:"guest_id"`
}

func (f *FileStore) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("session file %s: %w", f.Path, err)
	}
	return rec.GuestID, nil
}

func (f *FileStore) Save(_ context.Context, id string) error {
	data, err := json.Marshal(fileRecord{GuestID: id})
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
