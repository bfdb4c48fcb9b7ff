// Package call holds the follow-up call lifecycle shared by attendance and result call records.
package call

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/followup/core"
)

// Final statuses
const (
	StatusReceived    = "received"
	StatusNotReceived = "not_received"
)

// Who the mentor talked with
const (
	TalkedFather   = "father"
	TalkedMother   = "mother"
	TalkedGuardian = "guardian"
	TalkedStudent  = "student"
)

// Policy decides when an unanswered call becomes final.
type Policy int

const (
	// AutoNotReceived closes the call as not received once the second attempt went unanswered.
	AutoNotReceived Policy = iota
	// ExplicitNotReceived only closes the call when the mentor says so.
	ExplicitNotReceived
)

// Lifecycle tracks the attempts of a follow-up call. A nil FinalStatus means pending.
type Lifecycle struct {
	Attempt1Time null.Time   `json:"attempt1_time" db:"attempt1_time"`
	Attempt2Time null.Time   `json:"attempt2_time" db:"attempt2_time"`
	FinalStatus  null.String `json:"final_status" db:"final_status"`
	TalkedWith   null.String `json:"talked_with" db:"talked_with"`
	Duration     string      `json:"duration" db:"duration"`
	ParentReason string      `json:"parent_reason" db:"parent_reason"`
	MessageSent  bool        `json:"message_sent" db:"message_sent"`
}

func (l Lifecycle) Done() bool {
	return l.FinalStatus.Valid
}

func (l Lifecycle) Received() bool {
	return l.FinalStatus.Valid && l.FinalStatus.String == StatusReceived
}

func (l Lifecycle) NotReceived() bool {
	return l.FinalStatus.Valid && l.FinalStatus.String == StatusNotReceived
}

// Update is a mentor's report of one call attempt.
type Update struct {
	Status     string `json:"status" form:"status" validate:"omitempty,oneof=received not_received"`
	TalkedWith string `json:"talked_with" form:"talked_with" validate:"omitempty,oneof=father mother guardian student"`
	Duration   string `json:"duration" form:"duration" validate:"max=10"`
	Reason     string `json:"reason" form:"reason" validate:"max=2000"`
}

func (u *Update) Validate(validate *validator.Validate) error {
	u.Status = core.CleanString(u.Status, true)
	u.TalkedWith = core.CleanString(u.TalkedWith, true)
	u.Duration = core.CleanString(u.Duration)
	u.Reason = core.CleanString(u.Reason)
	return validate.Struct(u)
}

// Record registers an attempt at `now`: the first free attempt slot is stamped, then the status applies.
func (l *Lifecycle) Record(u Update, now time.Time, policy Policy) {
	switch {
	case !l.Attempt1Time.Valid:
		l.Attempt1Time = null.TimeFrom(now)
	case !l.Attempt2Time.Valid:
		l.Attempt2Time = null.TimeFrom(now)
	}

	switch {
	case u.Status == StatusReceived:
		l.FinalStatus = null.StringFrom(StatusReceived)
		l.TalkedWith = null.NewString(u.TalkedWith, u.TalkedWith != "")
		l.Duration = u.Duration
		l.ParentReason = u.Reason
	case policy == ExplicitNotReceived && u.Status == StatusNotReceived:
		l.FinalStatus = null.StringFrom(StatusNotReceived)
	case policy == AutoNotReceived && l.Attempt2Time.Valid:
		l.FinalStatus = null.StringFrom(StatusNotReceived)
	}
}

type (
	// Stats counts the state of a set of calls.
	Stats struct {
		Total       int `json:"total"`
		Done        int `json:"done"`
		Received    int `json:"received"`
		NotReceived int `json:"not_received"`
		MessageSent int `json:"message_sent"`
	}

	// MentorStat is the number of calls assigned to a mentor.
	MentorStat struct {
		Mentor string `json:"mentor" db:"mentor"`
		Total  int    `json:"total" db:"total"`
	}
)

func (s Stats) Pending() int {
	return s.Total - s.Done
}

func Tally(calls []Lifecycle) Stats {
	s := Stats{Total: len(calls)}
	for _, c := range calls {
		if c.Done() {
			s.Done++
		}
		if c.Received() {
			s.Received++
		}
		if c.NotReceived() {
			s.NotReceived++
		}
		if c.MessageSent {
			s.MessageSent++
		}
	}
	return s
}

func TotalCalls(stats []MentorStat) int {
	var total int
	for _, s := range stats {
		total += s.Total
	}
	return total
}
