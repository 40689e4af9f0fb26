package auth

import (
	"context"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/volatiletech/null/v8"
)

// maxNotificationPages bounds the notifications walk of FreeGrades.
const maxNotificationPages = 50

// "<value> - <subject short name>, <grade type>". Localized or reworded messages do not match
// and are skipped.
var gradeMessageRegex = regexp.MustCompile(`^\s*(\S+)\s*-\s*([^,]+)\s*,\s*(.+)`)

type gradesKey struct {
	childUUID string
	free      bool
}

// gradesCache holds grades per child. A clear bumps the generation so a fetch that started
// before it does not store stale grades afterwards.
type gradesCache struct {
	mu      sync.RWMutex
	gen     uint64
	entries map[gradesKey][]SubjectGrades
}

func newGradesCache() *gradesCache {
	return &gradesCache{entries: make(map[gradesKey][]SubjectGrades)}
}

func (c *gradesCache) get(key gradesKey) ([]SubjectGrades, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, ok := c.entries[key]
	return g, c.gen, ok
}

func (c *gradesCache) put(key gradesKey, gen uint64, g []SubjectGrades) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.gen {
		c.entries[key] = g
	}
}

func (c *gradesCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[gradesKey][]SubjectGrades)
}

// ClearGrades drops the cached grades of every child.
func (svc *Service) ClearGrades() {
	svc.grades.clear()
}

// Grades lists a child's grades (paid subscription). Results are cached per child until logout.
func (svc *Service) Grades(ctx context.Context, childUUID string) ([]SubjectGrades, error) {
	key := gradesKey{childUUID: childUUID}
	g, gen, ok := svc.grades.get(key)
	if ok {
		return g, nil
	}

	var grades []SubjectGrades
	err := svc.Do(ctx, func(ctx context.Context, token string) (err error) {
		grades, err = svc.client.Grades(ctx, token, childUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if grades == nil {
		grades = []SubjectGrades{}
	}
	svc.grades.put(key, gen, grades)
	return grades, nil
}

// FreeGrades rebuilds a child's grades of the current school year out of the notifications feed.
//
// The feed does not tell semesters apart, so every grade lands in semester 1 and semester 2 is
// always empty.
func (svc *Service) FreeGrades(ctx context.Context, childUUID string) ([]SubjectGrades, error) {
	key := gradesKey{childUUID: childUUID, free: true}
	g, gen, ok := svc.grades.get(key)
	if ok {
		return g, nil
	}

	items, err := svc.gradeNotifications(ctx, childUUID, SchoolYearStart(svc.now()))
	if err != nil {
		return nil, err
	}
	grades := GradesFromNotifications(items)
	svc.grades.put(key, gen, grades)
	return grades, nil
}

// gradeNotifications walks the feed backwards until a page ends before cutoff.
// The whole walk is one Do call: a retry after a refresh resumes at the page that failed, and a
// second unauthorized page expires the session.
func (svc *Service) gradeNotifications(ctx context.Context, childUUID string, cutoff time.Time) ([]NotificationItem, error) {
	var (
		all    []NotificationItem
		lastID int64
		page   int
	)
	err := svc.Do(ctx, func(ctx context.Context, token string) error {
		for ; page < maxNotificationPages; page++ {
			items, err := svc.client.Notifications(ctx, token, childUUID, lastID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return nil
			}
			all = append(all, items...)

			last := items[len(items)-1]
			if last.ID == lastID {
				return nil
			}
			lastID = last.ID
			if d, ok := notificationDate(last); ok && d.Before(cutoff) {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	grades := all[:0]
	for _, item := range all {
		if isGradeNotification(item) {
			grades = append(grades, item)
		}
	}
	return grades, nil
}

// SchoolYearStart is Sept 1 of the school year today falls in.
func SchoolYearStart(today time.Time) time.Time {
	year := today.Year()
	if today.Month() < time.September {
		year--
	}
	return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
}

func notificationDate(item NotificationItem) (time.Time, bool) {
	if !item.CreatedAt.Valid || len(item.CreatedAt.String) < 10 {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", item.CreatedAt.String[:10])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func isGradeNotification(item NotificationItem) bool {
	return strings.EqualFold(item.Type.String, "ocena") ||
		strings.HasPrefix(item.Title.String, "Nova ocena")
}

// GradesFromNotifications groups parseable grade notifications by subject, sorted by name.
func GradesFromNotifications(items []NotificationItem) []SubjectGrades {
	bySubject := make(map[string][]GradeItem)
	for _, item := range items {
		m := gradeMessageRegex.FindStringSubmatch(item.Message.String)
		if m == nil {
			continue
		}
		value, subject, typeName := m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
		if value == "" || subject == "" {
			continue
		}

		grade := GradeItem{
			TypeName:   null.StringFrom(typeName),
			ID:         item.ID,
			Type:       null.StringFrom("list"),
			Value:      null.StringFrom(value),
			InsertedAt: item.CreatedAt,
		}
		if item.MetaData != nil && item.MetaData.GradeID.Valid {
			grade.ID = item.MetaData.GradeID.Int64
		}
		if item.CreatedAt.Valid && len(item.CreatedAt.String) >= 10 {
			grade.Date = null.StringFrom(item.CreatedAt.String[:10])
		}
		bySubject[subject] = append(bySubject[subject], grade)
	}

	result := make([]SubjectGrades, 0, len(bySubject))
	for subject, grades := range bySubject {
		sort.SliceStable(grades, func(i, j int) bool {
			return grades[i].InsertedAt.String > grades[j].InsertedAt.String
		})
		result = append(result, SubjectGrades{
			Name:      subject,
			ShortName: null.StringFrom(subject),
			ID:        subjectID(subject),
			GradeType: null.StringFrom("grade"),
			Semesters: []SemesterGrades{
				{ID: 1, Grades: grades},
				{ID: 2, Grades: []GradeItem{}},
			},
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func subjectID(name string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum32())
}
