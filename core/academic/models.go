package academic

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/followup/core"
)

// Year levels & semesters
const (
	YearFirst  = "FY"
	YearSecond = "SY"
	YearThird  = "TY"
	YearLast   = "LY"

	SemesterOne = "Sem-1"
	SemesterTwo = "Sem-2"
)

// the module every fresh install starts with
var defaultModule = Module{
	Name:          "FY2 - Batch 2026-29_Sem-1",
	AcademicBatch: "2026-29",
	YearLevel:     YearFirst,
	Variant:       "FY2-CE",
	Semester:      SemesterOne,
	IsActive:      true,
}

// Module partitions students, subjects and uploads of one batch/semester.
type Module struct {
	ID            int       `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	AcademicBatch string    `json:"academic_batch" db:"academic_batch"`
	YearLevel     string    `json:"year_level" db:"year_level"`
	Variant       string    `json:"variant" db:"variant"`
	Semester      string    `json:"semester" db:"semester"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"` // UTC
}

type NewModule struct {
	Name          string `json:"name" validate:"required,max=120"`
	AcademicBatch string `json:"academic_batch" validate:"required,max=20"`
	YearLevel     string `json:"year_level" validate:"required,oneof=FY SY TY LY"`
	Variant       string `json:"variant" validate:"max=30"`
	Semester      string `json:"semester" validate:"required,oneof=Sem-1 Sem-2"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.AcademicBatch = core.CleanString(nm.AcademicBatch)
	nm.YearLevel = core.CleanString(nm.YearLevel)
	nm.Variant = core.CleanString(nm.Variant)
	nm.Semester = core.CleanString(nm.Semester)
	return validate.Struct(nm)
}
