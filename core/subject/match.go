package subject

import (
	"sort"
	"strings"

	"github.com/trezcool/followup/core/sheet"
)

type alias struct {
	base    string
	aliases []string
}

// aliases of the subject short codes found in practical & theory sheets
var aliasTable = []alias{
	{base: "cws", aliases: []string{"computerworkshop", "workshop"}},
	{base: "phy", aliases: []string{"physics"}},
	{base: "maths1", aliases: []string{"mathematics1", "mathematics", "maths"}},
	{base: "java1", aliases: []string{"java"}},
	{base: "se", aliases: []string{"softwareengineering"}},
	{base: "es", aliases: []string{"environmentalscience", "environmentscience"}},
	{base: "iot", aliases: []string{"internetofthings"}},
}

// priorityOrder sorts subjects without an explicit display order.
var priorityOrder = []string{
	"maths1", "maths", "phy", "physics", "java1", "java",
	"se", "softwareengineering", "es", "environmentalscience", "iot", "cws",
}

const noPriority = 99

// KeyCandidates lists the normalized keys a sheet may use to designate the subject:
// short name, name, name without its bracketed suffix, and the alias table entries.
func KeyCandidates(s Subject) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	short, name := sheet.NormKey(s.ShortName), sheet.NormKey(s.Name)
	add(short)
	add(name)
	if strings.Contains(s.Name, "(") {
		add(sheet.NormKey(sheet.SubjectBaseName(s.Name)))
	}

	for _, a := range aliasTable {
		if short == a.base || name == a.base || (name != "" && strings.Contains(name, a.base)) {
			for _, al := range a.aliases {
				add(al)
			}
		}
		for _, al := range a.aliases {
			if name != "" && strings.Contains(name, al) {
				add(a.base)
				break
			}
		}
	}
	return keys
}

// MatchByText finds the subject designated by free text: exact key first, then containment either way.
func MatchByText(text string, subjects []Subject) (Subject, bool) {
	key := sheet.NormKey(text)
	if key == "" {
		return Subject{}, false
	}
	for _, s := range subjects {
		for _, k := range KeyCandidates(s) {
			if k == key {
				return s, true
			}
		}
	}
	for _, s := range subjects {
		for _, k := range KeyCandidates(s) {
			if strings.Contains(key, k) || strings.Contains(k, key) {
				return s, true
			}
		}
	}
	return Subject{}, false
}

func priority(s Subject) int {
	key := sheet.NormKey(s.Label())
	for i, tok := range priorityOrder {
		if strings.Contains(key, tok) {
			return i + 1
		}
	}
	return noPriority
}

// Sort orders subjects by display order (unset last), then by the usual curriculum order, then by label.
func Sort(subjects []Subject) {
	order := func(s Subject) int {
		if s.DisplayOrder > 0 {
			return s.DisplayOrder
		}
		return 999999
	}
	sort.SliceStable(subjects, func(i, j int) bool {
		a, b := subjects[i], subjects[j]
		if order(a) != order(b) {
			return order(a) < order(b)
		}
		if priority(a) != priority(b) {
			return priority(a) < priority(b)
		}
		return strings.ToLower(a.Label()) < strings.ToLower(b.Label())
	})
}
