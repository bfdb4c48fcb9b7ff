package mentor

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/followup/core"
	"github.com/trezcool/followup/core/sheet"
)

// shortCodeMaxLen is the longest compacted token still treated as initials ("HDS").
const shortCodeMaxLen = 5

// IdentityResolver maps the mentor tokens found in sheets (short codes or full names) to Mentor rows
// and merges duplicate mentor buckets created by earlier imports.
type IdentityResolver struct {
	repo   Repository
	logger core.Logger
}

func NewIdentityResolver(repo Repository, logger core.Logger) *IdentityResolver {
	return &IdentityResolver{repo: repo, logger: logger}
}

// isSubsequence tells whether all runes of `sub` appear in `s` in order.
func isSubsequence(sub, s string) bool {
	if sub == "" {
		return false
	}
	rs := []rune(sub)
	i := 0
	for _, r := range s {
		if r == rs[i] {
			i++
			if i == len(rs) {
				return true
			}
		}
	}
	return false
}

// Resolve finds the mentor a token designates. Mentors currently having students are preferred:
//  1. exact (case-insensitive) name
//  2. exact full name
//  3. same letters & digits in name or full name
//  4. short codes (up to 5 letters) as a subsequence of name or full name; most students wins, then name
//  5. the exact name or full name match, even without students
func (r *IdentityResolver) Resolve(ctx context.Context, token string, exec ...core.DBExecutor) (Mentor, bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Mentor{}, false, nil
	}
	mentors, err := r.repo.List(ctx, exec...)
	if err != nil {
		return Mentor{}, false, errors.Wrap(err, "listing mentors")
	}
	m, ok := resolve(token, mentors)
	return m, ok, nil
}

func resolve(token string, mentors []Mentor) (Mentor, bool) {
	var direct, full *Mentor
	for i := range mentors {
		m := &mentors[i]
		if direct == nil && strings.EqualFold(m.Name, token) {
			direct = m
		}
		if full == nil && m.FullName != "" && strings.EqualFold(m.FullName, token) {
			full = m
		}
	}

	if direct != nil && direct.StudentCount > 0 {
		return *direct, true
	}
	if full != nil && full.StudentCount > 0 {
		return *full, true
	}

	compact := sheet.NormKey(token)
	staffed := make([]Mentor, 0, len(mentors))
	for _, m := range mentors {
		if m.StudentCount > 0 {
			staffed = append(staffed, m)
		}
	}

	if compact != "" {
		for _, m := range staffed {
			if sheet.NormKey(m.Name) == compact || (m.FullName != "" && sheet.NormKey(m.FullName) == compact) {
				return m, true
			}
		}
	}

	if n := len([]rune(compact)); n > 0 && n <= shortCodeMaxLen {
		var candidates []Mentor
		for _, m := range staffed {
			if isSubsequence(compact, sheet.NormKey(m.Name)) || isSubsequence(compact, sheet.NormKey(m.FullName)) {
				candidates = append(candidates, m)
			}
		}
		if len(candidates) > 0 {
			sort.SliceStable(candidates, func(i, j int) bool {
				if candidates[i].StudentCount != candidates[j].StudentCount {
					return candidates[i].StudentCount > candidates[j].StudentCount
				}
				return strings.ToLower(candidates[i].Name) < strings.ToLower(candidates[j].Name)
			})
			return candidates[0], true
		}
	}

	if direct != nil {
		return *direct, true
	}
	if full != nil {
		return *full, true
	}
	return Mentor{}, false
}

// Consolidate returns the mentor for a sheet's (short code, full name) pair, creating it if needed.
// The full name is backfilled, and a separate mentor bucket named after the full name
// has its students moved to the resolved mentor before being deleted. The IDs of the deleted mentors are returned.
func (r *IdentityResolver) Consolidate(ctx context.Context, short, full string, exec ...core.DBExecutor) (Mentor, []int, error) {
	short, full = strings.TrimSpace(short), strings.TrimSpace(full)
	if short == "" {
		short = full
	}
	if short == "" {
		short = Unknown
	}
	if strings.EqualFold(short, full) {
		full = ""
	}

	m, found, err := r.Resolve(ctx, short, exec...)
	if err != nil {
		return Mentor{}, nil, errors.Wrap(err, "resolving mentor")
	}
	if !found {
		m, err = r.repo.Create(ctx, Mentor{Name: short, FullName: full}, exec...)
		if err != nil {
			return Mentor{}, nil, errors.Wrap(err, "creating mentor")
		}
	}
	if full == "" {
		return m, nil, nil
	}

	if m.FullName == "" && !strings.EqualFold(m.Name, full) {
		if err = r.repo.UpdateFullName(ctx, m.ID, full, exec...); err != nil {
			return Mentor{}, nil, errors.Wrap(err, "updating mentor full name")
		}
		m.FullName = full
	}

	mentors, err := r.repo.List(ctx, exec...)
	if err != nil {
		return Mentor{}, nil, errors.Wrap(err, "listing mentors")
	}
	var merged []int
	for _, other := range mentors {
		if other.ID == m.ID || !strings.EqualFold(other.Name, full) {
			continue
		}
		moved, err := r.repo.ReassignStudents(ctx, other.ID, m.ID, exec...)
		if err != nil {
			return Mentor{}, nil, errors.Wrap(err, "moving students to mentor")
		}
		if err = r.repo.Delete(ctx, other.ID, exec...); err != nil {
			return Mentor{}, nil, errors.Wrap(err, "deleting merged mentor")
		}
		m.StudentCount += moved
		merged = append(merged, other.ID)
		if r.logger != nil {
			r.logger.Info("merged mentor " + other.Name + " into " + m.Name)
		}
	}
	return m, merged, nil
}
