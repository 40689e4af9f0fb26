package timetable

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const suggestionCutoff = 0.6

// CollectTeachers returns the distinct, non-blank teacher full names found in weeks, sorted.
func CollectTeachers(weeks []TimetableWeek) []string {
	seen := make(map[string]struct{})
	teachers := make([]string, 0)
	for _, w := range weeks {
		for _, l := range w.Lessons() {
			if !l.TeacherFullName.Valid {
				continue
			}
			name := strings.TrimSpace(l.TeacherFullName.String)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			teachers = append(teachers, name)
		}
	}
	sort.Strings(teachers)
	return teachers
}

// SuggestTeachers returns at most n names of `teachers` matching `query`:
// case-insensitive substring matches first (in input order), then close matches by similarity ratio.
func SuggestTeachers(query string, teachers []string, n int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || n <= 0 {
		return nil
	}

	type scored struct {
		name  string
		ratio float64
	}
	var (
		matches []string
		similar []scored
	)
	sm := difflib.NewMatcher(nil, nil)
	sm.SetSeq2(strings.Split(q, ""))
	for _, t := range teachers {
		lt := strings.ToLower(t)
		if strings.Contains(lt, q) {
			matches = append(matches, t)
			continue
		}
		sm.SetSeq1(strings.Split(lt, ""))
		if r := sm.Ratio(); r >= suggestionCutoff {
			similar = append(similar, scored{name: t, ratio: r})
		}
	}
	sort.SliceStable(similar, func(i, j int) bool { return similar[i].ratio > similar[j].ratio })
	for _, c := range similar {
		matches = append(matches, c.name)
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
