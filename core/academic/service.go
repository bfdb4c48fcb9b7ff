package academic

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
)

var (
	ErrNotFound   = errors.New("academic module not found")
	ErrNameExists = errors.New("a module with this name already exists")
)

type (
	Repository interface {
		Create(ctx context.Context, m Module, exec ...core.DBExecutor) (Module, error)
		GetByID(ctx context.Context, id int, exec ...core.DBExecutor) (Module, error)
		GetByName(ctx context.Context, name string, exec ...core.DBExecutor) (Module, error)
		// List returns modules newest first.
		List(ctx context.Context, activeOnly bool, exec ...core.DBExecutor) ([]Module, error)
		SetActive(ctx context.Context, id int, active bool, exec ...core.DBExecutor) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nm NewModule) (Module, error) {
	_, err := svc.repo.GetByName(ctx, nm.Name)
	switch {
	case err == nil:
		return Module{}, core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	case errors.Cause(err) != ErrNotFound:
		return Module{}, errors.Wrap(err, "checking module name")
	}

	return svc.repo.Create(ctx, Module{
		Name:          nm.Name,
		AcademicBatch: nm.AcademicBatch,
		YearLevel:     nm.YearLevel,
		Variant:       nm.Variant,
		Semester:      nm.Semester,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	})
}

func (svc *Service) Get(ctx context.Context, id int) (Module, error) {
	return svc.repo.GetByID(ctx, id)
}

func (svc *Service) List(ctx context.Context, activeOnly bool) ([]Module, error) {
	return svc.repo.List(ctx, activeOnly)
}

func (svc *Service) SetActive(ctx context.Context, id int, active bool) (Module, error) {
	if err := svc.repo.SetActive(ctx, id, active); err != nil {
		return Module{}, err
	}
	return svc.repo.GetByID(ctx, id)
}

// Current returns the module with the given id when it is active, else the newest active module.
// The default module is created when no module is active.
func (svc *Service) Current(ctx context.Context, id int) (Module, error) {
	if id > 0 {
		m, err := svc.repo.GetByID(ctx, id)
		if err == nil && m.IsActive {
			return m, nil
		}
		if err != nil && errors.Cause(err) != ErrNotFound {
			return Module{}, errors.Wrap(err, "getting module")
		}
	}

	active, err := svc.repo.List(ctx, true)
	if err != nil {
		return Module{}, errors.Wrap(err, "listing active modules")
	}
	if len(active) > 0 {
		return active[0], nil
	}
	return svc.defaultModule(ctx)
}

func (svc *Service) defaultModule(ctx context.Context) (Module, error) {
	m, err := svc.repo.GetByName(ctx, defaultModule.Name)
	if err == nil {
		return m, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Module{}, errors.Wrap(err, "getting default module")
	}

	m = defaultModule
	m.CreatedAt = time.Now().UTC()
	return svc.repo.Create(ctx, m)
}
