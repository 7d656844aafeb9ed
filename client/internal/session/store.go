package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// TokenKey names the single persisted value.
const TokenKey = "access_token"

// TokenStore persists the raw bearer token. Load returns "" when none is
// stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, tok string) error
	Clear(ctx context.Context) error
}

// Store kinds accepted by OpenStore.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// OpenStore returns the TokenStore of the given kind rooted at path. path is
// ignored for the memory store.
func OpenStore(kind, path string) (TokenStore, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", StoreFile:
		return NewFileStore(path)
	case StoreSQLite:
		return OpenSQLiteStore(path)
	case StoreMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q (want file, sqlite or memory)", kind)
	}
}

// MemoryStore keeps the token for the lifetime of the process.
type MemoryStore struct {
	mu  sync.Mutex
	tok string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tok, nil
}

func (m *MemoryStore) Save(_ context.Context, tok string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = tok
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tok = ""
	return nil
}
