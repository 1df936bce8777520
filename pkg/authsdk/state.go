package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// PersistedState is what a Session keeps between runs. Tokens are only
// present with the bearer transport.
type PersistedState struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         *User  `json:"user,omitempty"`
	PendingEmail string `json:"pendingEmail,omitempty"`
	PendingFlow  string `json:"pendingFlow,omitempty"`
}

// StateStore persists session state. Load on an empty store returns the
// zero state and no error.
type StateStore interface {
	Load(ctx context.Context) (PersistedState, error)
	Save(ctx context.Context, st PersistedState) error
	Clear(ctx context.Context) error
}

// MemoryStateStore keeps state for the life of the process.
type MemoryStateStore struct {
	mu sync.Mutex
	st PersistedState
}

func NewMemoryStateStore() *MemoryStateStore { return &MemoryStateStore{} }

func (m *MemoryStateStore) Load(context.Context) (PersistedState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st, nil
}

func (m *MemoryStateStore) Save(_ context.Context, st PersistedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = st
	return nil
}

func (m *MemoryStateStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = PersistedState{}
	return nil
}

// FileStateStore keeps state in a JSON file readable only by its owner.
type FileStateStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStateStore(path string) *FileStateStore { return &FileStateStore{Path: path} }

func (f *FileStateStore) Load(context.Context) (PersistedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var st PersistedState
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read session state: %w", err)
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return PersistedState{}, fmt.Errorf("decode session state: %w", err)
	}
	return st, nil
}

// Save writes through a temp file so a crash never leaves half a file.
func (f *FileStateStore) Save(_ context.Context, st PersistedState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.Path), ".session-*")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}

func (f *FileStateStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
