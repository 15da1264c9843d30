// Package keyring provides a small thread-safe registry of named signing
// identities for the CLI. Each entry maps a short alias to an ed25519 key
// file and its derived principal, so commands can sign as `--as alice`
// instead of juggling key paths. The registry file holds no secret material:
// private keys stay in their own PEM files under the keys directory.
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"courseledger.dev/cld/internal/identity"
	"courseledger.dev/cld/internal/types"
)

const (
	registryFileName = "keyring.json"
	keysDirName      = "keys"
)

// Entry records one named identity.
type Entry struct {
	Name      string          `json:"name"`
	KeyFile   string          `json:"key_file"`
	Principal types.Principal `json:"principal"`
	CreatedAt time.Time       `json:"created_at"`
}

// Keyring is a thread-safe registry of named identities persisted as a JSON
// file under the data directory.
type Keyring struct {
	mtx     sync.RWMutex
	file    string
	keysDir string
	entries map[string]Entry // keyed by alias
}

// Open loads the keyring under dir, starting empty when no registry file
// exists yet.
func Open(dir string) (*Keyring, error) {
	k := &Keyring{
		file:    filepath.Join(dir, registryFileName),
		keysDir: filepath.Join(dir, keysDirName),
		entries: make(map[string]Entry),
	}

	data, err := os.ReadFile(k.file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return k, nil
		}
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode keyring %s: %w", k.file, err)
	}
	for _, e := range entries {
		k.entries[e.Name] = e
	}
	return k, nil
}

// Create generates a fresh identity under the given alias and persists the
// registry. The alias must be unused; the key lands in the keys directory
// as <name>.pem.
func (k *Keyring) Create(name string) (Entry, error) {
	if !validName(name) {
		return Entry{}, fmt.Errorf("invalid key name %q: use letters, digits, '-' or '_'", name)
	}

	k.mtx.Lock()
	defer k.mtx.Unlock()

	if _, ok := k.entries[name]; ok {
		return Entry{}, fmt.Errorf("key %q already exists", name)
	}

	if err := os.MkdirAll(k.keysDir, 0o700); err != nil {
		return Entry{}, fmt.Errorf("create keys directory: %w", err)
	}

	keyFile := filepath.Join(k.keysDir, name+".pem")
	id, err := identity.CreateIdentity(keyFile)
	if err != nil {
		return Entry{}, fmt.Errorf("create identity %q: %w", name, err)
	}

	entry := Entry{
		Name:      name,
		KeyFile:   keyFile,
		Principal: types.Principal(id.PublicKeyHex()),
		CreatedAt: time.Now().UTC(),
	}
	k.entries[name] = entry
	if err := k.saveLocked(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Resolve loads the signing identity behind an alias.
func (k *Keyring) Resolve(name string) (*identity.Identity, error) {
	k.mtx.RLock()
	entry, ok := k.entries[name]
	k.mtx.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown key %q", name)
	}
	id, err := identity.LoadIdentity(entry.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load key %q: %w", name, err)
	}
	return id, nil
}

// Get returns the entry for an alias.
func (k *Keyring) Get(name string) (Entry, bool) {
	k.mtx.RLock()
	defer k.mtx.RUnlock()
	entry, ok := k.entries[name]
	return entry, ok
}

// List returns a snapshot of all entries, sorted by name.
func (k *Keyring) List() []Entry {
	k.mtx.RLock()
	defer k.mtx.RUnlock()

	out := make([]Entry, 0, len(k.entries))
	for _, e := range k.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remove forgets an alias. The key file itself is kept on disk: deleting it
// would orphan every ledger record tied to its principal.
func (k *Keyring) Remove(name string) error {
	k.mtx.Lock()
	defer k.mtx.Unlock()

	if _, ok := k.entries[name]; !ok {
		return fmt.Errorf("unknown key %q", name)
	}
	delete(k.entries, name)
	return k.saveLocked()
}

// saveLocked writes the registry atomically: temp file, then rename over
// the old one.
func (k *Keyring) saveLocked() error {
	entries := make([]Entry, 0, len(k.entries))
	for _, e := range k.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode keyring: %w", err)
	}

	dir := filepath.Dir(k.file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create keyring directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "keyring-*.json")
	if err != nil {
		return fmt.Errorf("create temp keyring file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp keyring file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp keyring file: %w", err)
	}

	if err := os.Rename(tmpPath, k.file); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("activate keyring file: %w", err)
	}
	return nil
}

// validName reports whether name is safe to embed in a key file name.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
