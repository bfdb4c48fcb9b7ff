package student

import (
	"context"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/mentor"
)

type Service struct {
	repo    Repository
	mentors *mentor.IdentityResolver
	logger  core.Logger
}

func NewService(repo Repository, mentors *mentor.IdentityResolver, logger core.Logger) *Service {
	return &Service{repo: repo, mentors: mentors, logger: logger}
}

func (svc *Service) Get(ctx context.Context, moduleID, id int) (Student, error) {
	return svc.repo.GetByID(ctx, moduleID, id)
}

func (svc *Service) GetByEnrollment(ctx context.Context, moduleID int, enrollment string) (Student, error) {
	return svc.repo.GetByEnrollment(ctx, moduleID, enrollment)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Search = core.CleanString(filter.Search)
	return svc.repo.Filter(ctx, filter)
}

// ClearModule deletes the student master of a module, with everything attached to its students.
func (svc *Service) ClearModule(ctx context.Context, moduleID int) (int, error) {
	return svc.repo.DeleteByModule(ctx, moduleID)
}
