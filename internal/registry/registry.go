// Package registry tracks the set of identities sealed through a backend
// that cannot itself enumerate its credential-store entries (the
// credential-store and secure-element backends: the platform keyring
// APIs they sit on expose no service-prefix scan). It persists a small
// JSON array, written atomically via internal/securefile, and is
// intentionally dumb: the backend remains the source of truth for
// whether an artifact actually exists, this is only the enumeration aid.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/platformseal/hsm-go/internal/securefile"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	path string
}

// New returns a Registry persisted at <dir>/<name>.json.
func New(dir, name string) *Registry {
	return &Registry{path: filepath.Join(dir, name+".json")}
}

func (r *Registry) load() ([]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, err
	}
	return names, nil
}

func (r *Registry) save(names []string) error {
	if err := securefile.EnsureSecureDir(filepath.Dir(r.path)); err != nil {
		return err
	}
	sort.Strings(names)
	data, err := json.Marshal(names)
	if err != nil {
		return err
	}
	return securefile.WriteSecretFile(r.path, data)
}

// Add records identity as present. Idempotent.
func (r *Registry) Add(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.load()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == identity {
			return nil
		}
	}
	return r.save(append(names, identity))
}

// Remove clears identity from the registry. Idempotent.
func (r *Registry) Remove(identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names, err := r.load()
	if err != nil {
		return err
	}
	out := names[:0]
	for _, n := range names {
		if n != identity {
			out = append(out, n)
		}
	}
	return r.save(out)
}

// List returns every recorded identity, in sorted order.
func (r *Registry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Clear empties the registry.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(nil)
}
