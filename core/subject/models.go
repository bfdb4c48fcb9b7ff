package subject

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
)

// Result formats
const (
	FormatFull   = "full"    // T1, T2, T3 & T4
	FormatT4Only = "t4_only" // only the end-semester exam
)

var (
	ErrNotFound   = errors.New("subject not found")
	ErrNameExists = errors.New("a subject with this name already exists in the module")
)

type Subject struct {
	ID           int    `json:"id" db:"id"`
	ModuleID     int    `json:"module_id" db:"module_id"`
	Name         string `json:"name" db:"name"`
	ShortName    string `json:"short_name" db:"short_name"`
	ResultFormat string `json:"result_format" db:"result_format"`
	DisplayOrder int    `json:"display_order" db:"display_order"`
	IsActive     bool   `json:"is_active" db:"is_active"`
}

func (s Subject) T4Only() bool {
	return s.ResultFormat == FormatT4Only
}

// Label is the short name when set.
func (s Subject) Label() string {
	if s.ShortName != "" {
		return s.ShortName
	}
	return s.Name
}

type NewSubject struct {
	Name         string `json:"name" validate:"required,max=100"`
	ShortName    string `json:"short_name" validate:"max=30"`
	ResultFormat string `json:"result_format" validate:"omitempty,oneof=full t4_only"`
	DisplayOrder int    `json:"display_order" validate:"min=0"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ShortName = core.CleanString(ns.ShortName)
	ns.ResultFormat = core.CleanString(ns.ResultFormat, true)
	if ns.ResultFormat == "" {
		ns.ResultFormat = FormatFull
	}
	return validate.Struct(ns)
}

type UpdateSubject struct {
	NewSubject
	IsActive *bool `json:"is_active"`
}

type Repository interface {
	Create(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
	GetByID(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) (Subject, error)
	GetByName(ctx context.Context, moduleID int, name string, exec ...core.DBExecutor) (Subject, error)
	// List returns the subjects of a module ordered by name.
	List(ctx context.Context, moduleID int, activeOnly bool, exec ...core.DBExecutor) ([]Subject, error)
	Update(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
	Delete(ctx context.Context, moduleID, id int, exec ...core.DBExecutor) error
}
