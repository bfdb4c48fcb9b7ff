package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/academic"
)

type moduleRepository struct {
	db *DB
}

var _ academic.Repository = (*moduleRepository)(nil) // interface compliance check

func NewModuleRepository(db *DB) *moduleRepository {
	return &moduleRepository{db: db}
}

func (repo *moduleRepository) Create(_ context.Context, m academic.Module, _ ...core.DBExecutor) (academic.Module, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.t.modules {
		if other.Name == m.Name {
			return academic.Module{}, academic.ErrNameExists
		}
	}
	m.ID = repo.db.nextPK()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	repo.db.t.modules[m.ID] = m
	return m, nil
}

func (repo *moduleRepository) GetByID(_ context.Context, id int, _ ...core.DBExecutor) (academic.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if m, ok := repo.db.t.modules[id]; ok {
		return m, nil
	}
	return academic.Module{}, academic.ErrNotFound
}

func (repo *moduleRepository) GetByName(_ context.Context, name string, _ ...core.DBExecutor) (academic.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, m := range repo.db.t.modules {
		if m.Name == name {
			return m, nil
		}
	}
	return academic.Module{}, academic.ErrNotFound
}

func (repo *moduleRepository) List(_ context.Context, activeOnly bool, _ ...core.DBExecutor) ([]academic.Module, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	modules := make([]academic.Module, 0, len(repo.db.t.modules))
	for _, m := range repo.db.t.modules {
		if !activeOnly || m.IsActive {
			modules = append(modules, m)
		}
	}
	sort.Slice(modules, func(i, j int) bool {
		if !modules[i].CreatedAt.Equal(modules[j].CreatedAt) {
			return modules[i].CreatedAt.After(modules[j].CreatedAt)
		}
		return modules[i].ID > modules[j].ID
	})
	return modules, nil
}

func (repo *moduleRepository) SetActive(_ context.Context, id int, active bool, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	m, ok := repo.db.t.modules[id]
	if !ok {
		return academic.ErrNotFound
	}
	m.IsActive = active
	repo.db.t.modules[id] = m
	return nil
}
