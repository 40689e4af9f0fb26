package timetable

import (
	"reflect"
	"testing"

	"github.com/volatiletech/null/v8"
)

func TestCollectTeachers(t *testing.T) {
	withTeacher := func(name string) Lesson {
		return Lesson{TeacherFullName: null.StringFrom(name)}
	}
	weeks := []TimetableWeek{
		classWeek(1,
			LessonCell{PeriodNumber: 1, Lessons: []Lesson{withTeacher("Ana Novak"), withTeacher("Zala Kranjc")}},
			EmptyCell{},
			LessonCell{PeriodNumber: 3, Lessons: []Lesson{withTeacher("Ana Novak"), {}}},
		),
		classWeek(2,
			LessonCell{PeriodNumber: 1, Lessons: []Lesson{withTeacher("  Ana Novak "), withTeacher("   "), withTeacher("Bojan Kos")}},
		),
	}

	got := CollectTeachers(weeks)
	want := []string{"Ana Novak", "Bojan Kos", "Zala Kranjc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectTeachers() = %v, want %v", got, want)
	}

	if got := CollectTeachers(nil); got == nil || len(got) != 0 {
		t.Errorf("CollectTeachers(nil) = %#v, want empty", got)
	}
}

func TestSuggestTeachers(t *testing.T) {
	teachers := []string{"Ana Novak", "Bojan Kos", "Dana Novakovič", "Zala Kranjc"}
	tests := []struct {
		name  string
		query string
		n     int
		want  []string
	}{
		{name: "empty query", query: " ", n: 5, want: nil},
		{name: "substring", query: "novak", n: 5, want: []string{"Ana Novak", "Dana Novakovič"}},
		{name: "limited", query: "novak", n: 1, want: []string{"Ana Novak"}},
		{name: "typo", query: "bojan kso", n: 5, want: []string{"Bojan Kos"}},
		{name: "no match", query: "xyz", n: 5, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestTeachers(tt.query, teachers, tt.n); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SuggestTeachers() = %v, want %v", got, tt.want)
			}
		})
	}
}
