package mentor

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
)

// Unknown collects students whose sheet row carries no mentor.
const Unknown = "UNKNOWN"

var ErrNotFound = errors.New("mentor not found")

// Mentor is a staff member following up a group of students.
// Name is the short code used across sheets ("HDS"); FullName is the long form when known.
type Mentor struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	FullName     string    `json:"full_name" db:"full_name"`
	StudentCount int       `json:"student_count" db:"student_count"` // read only
	CreatedAt    time.Time `json:"created_at" db:"created_at"`       // UTC
}

// DisplayName prefers the full name.
func (m Mentor) DisplayName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Name
}

// UpdateMentor sets the long form of a mentor's name.
type UpdateMentor struct {
	FullName string `json:"full_name" validate:"required,max=100,person_name"`
}

func (um *UpdateMentor) Validate(validate *validator.Validate) error {
	um.FullName = strings.ToUpper(core.CleanString(um.FullName))
	return validate.Struct(um)
}

type Repository interface {
	Create(ctx context.Context, m Mentor, exec ...core.DBExecutor) (Mentor, error)
	GetByID(ctx context.Context, id int, exec ...core.DBExecutor) (Mentor, error)
	// List returns all mentors (ordered by name) with their StudentCount filled.
	List(ctx context.Context, exec ...core.DBExecutor) ([]Mentor, error)
	UpdateFullName(ctx context.Context, id int, fullName string, exec ...core.DBExecutor) error
	// ReassignStudents moves every student of mentor `fromID` to mentor `toID`.
	ReassignStudents(ctx context.Context, fromID, toID int, exec ...core.DBExecutor) (int, error)
	Delete(ctx context.Context, id int, exec ...core.DBExecutor) error
}
