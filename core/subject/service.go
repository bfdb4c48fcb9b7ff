package subject

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkName(ctx context.Context, moduleID int, name string, excludeID int) error {
	s, err := svc.repo.GetByName(ctx, moduleID, name)
	switch {
	case err == nil && s.ID != excludeID:
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	case err != nil && errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "checking subject name")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, moduleID int, ns NewSubject) (Subject, error) {
	if err := svc.checkName(ctx, moduleID, ns.Name, 0); err != nil {
		return Subject{}, err
	}
	return svc.repo.Create(ctx, Subject{
		ModuleID:     moduleID,
		Name:         ns.Name,
		ShortName:    ns.ShortName,
		ResultFormat: ns.ResultFormat,
		DisplayOrder: ns.DisplayOrder,
		IsActive:     true,
	})
}

func (svc *Service) Get(ctx context.Context, moduleID, id int) (Subject, error) {
	return svc.repo.GetByID(ctx, moduleID, id)
}

// Ordered returns the active subjects of the module in display order.
func (svc *Service) Ordered(ctx context.Context, moduleID int) ([]Subject, error) {
	subjects, err := svc.repo.List(ctx, moduleID, true)
	if err != nil {
		return nil, err
	}
	Sort(subjects)
	return subjects, nil
}

func (svc *Service) List(ctx context.Context, moduleID int, activeOnly bool) ([]Subject, error) {
	return svc.repo.List(ctx, moduleID, activeOnly)
}

func (svc *Service) Update(ctx context.Context, moduleID, id int, us UpdateSubject) (Subject, error) {
	s, err := svc.repo.GetByID(ctx, moduleID, id)
	if err != nil {
		return Subject{}, err
	}
	if err = svc.checkName(ctx, moduleID, us.Name, id); err != nil {
		return Subject{}, err
	}

	s.Name = us.Name
	s.ShortName = us.ShortName
	s.ResultFormat = us.ResultFormat
	s.DisplayOrder = us.DisplayOrder
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	return svc.repo.Update(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, moduleID, id int) error {
	return svc.repo.Delete(ctx, moduleID, id)
}
