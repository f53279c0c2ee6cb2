package usecase

import (
	"sort"
	"strings"
	"sync"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

// GraveDirectory maps each grave category to the repository holding it.
type GraveDirectory struct {
	mu    sync.RWMutex
	repos map[domain.GraveType]GraveRepository
}

func NewGraveDirectory() *GraveDirectory {
	return &GraveDirectory{repos: make(map[domain.GraveType]GraveRepository)}
}

func (d *GraveDirectory) Register(t domain.GraveType, repo GraveRepository) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.repos[t] = repo
}

// Resolve normalizes a category name and returns its repository.
func (d *GraveDirectory) Resolve(name string) (domain.GraveType, GraveRepository, error) {
	t := domain.GraveType(strings.ToLower(strings.TrimSpace(name)))
	repo, err := d.Lookup(t)
	if err != nil {
		return "", nil, err
	}
	return t, repo, nil
}

func (d *GraveDirectory) Lookup(t domain.GraveType) (GraveRepository, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	repo, ok := d.repos[t]
	if !ok {
		return nil, domain.ErrInvalidCategory
	}
	return repo, nil
}

// Types returns the registered categories sorted by name.
func (d *GraveDirectory) Types() []domain.GraveType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	types := make([]domain.GraveType, 0, len(d.repos))
	for t := range d.repos {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
