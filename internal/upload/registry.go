package upload

import (
	"fmt"
	"sort"
	"sync"

	"github.com/joseph-ayodele/sheetload/internal/common"
)

// Registry looks up runners by job type name.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

func NewRegistry(runners ...Runner) *Registry {
	r := &Registry{runners: make(map[string]Runner)}
	for _, rn := range runners {
		r.Register(rn)
	}
	return r
}

func (r *Registry) Register(rn Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[rn.Name()] = rn
}

func (r *Registry) Get(name string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rn, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("job type %q: %w", name, common.ErrNotFound)
	}
	return rn, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.runners))
	for n := range r.runners {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
