package timetable

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/ratiba/core"
)

const (
	DefaultParallelism  = 6
	DefaultFetchTimeout = time.Minute
)

type (
	// PayloadQuery identifies one timetable payload. Zero ids mean "not applicable".
	PayloadQuery struct {
		SchoolID         int
		ClassID          int
		ProfessorID      int
		StudentID        int
		ClassroomID      int
		WeekID           int
		Extracurriculars bool
		AccessToken      string // bearer credential, for student timetables
	}

	// Source fetches raw upstream documents.
	Source interface {
		SchoolPage(ctx context.Context, schoolKey string) (string, error)
		TimetablePayload(ctx context.Context, q PayloadQuery) (string, error)
	}

	// Metrics receives cache and upstream fetch observations.
	Metrics interface {
		CacheHit(cache string)
		CacheMiss(cache string)
		ObserveFetch(kind string, d time.Duration, err error)
	}

	Options struct {
		Parallelism  int
		FetchTimeout time.Duration // bounds one shared fetch, whoever waits on it
		Logger       core.Logger
		Metrics      Metrics
	}
)

// cache names, as reported to Metrics
const (
	cacheSchool    = "school"
	cacheWeek      = "week"
	cacheChildWeek = "child_week"
	cacheAllWeeks  = "all_weeks"
	cacheTeacher   = "teacher"
)

type (
	weekKey struct {
		schoolID, classID, weekID int
	}

	childWeekKey struct {
		schoolID, studentID, weekID int
	}

	allWeeksKey struct {
		schoolID, weekID int
	}

	teacherKey struct {
		schoolID, weekID int
		teacher          string
	}
)

// Service gives cached access to timetables. Caches live as long as the Service and are only
// emptied through the Clear* methods.
type Service struct {
	src         Source
	logger      core.Logger
	metrics      Metrics
	parallelism  int
	fetchTimeout time.Duration

	mu         sync.RWMutex
	schools    map[string]SchoolMeta
	weeks      map[weekKey]TimetableWeek
	childWeeks map[childWeekKey]TimetableWeek
	allWeeks   map[allWeeksKey][]TimetableWeek
	teachers   map[teacherKey]TimetableWeek

	inflight singleflight.Group
}

func NewService(src Source, opts Options) *Service {
	if opts.Parallelism <= 0 {
		opts.Parallelism = DefaultParallelism
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = core.NewDiscardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	return &Service{
		src:          src,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		parallelism:  opts.Parallelism,
		fetchTimeout: opts.FetchTimeout,
		schools:      make(map[string]SchoolMeta),
		weeks:        make(map[weekKey]TimetableWeek),
		childWeeks:   make(map[childWeekKey]TimetableWeek),
		allWeeks:     make(map[allWeeksKey][]TimetableWeek),
		teachers:     make(map[teacherKey]TimetableWeek),
	}
}

func checkWeekID(weekID int) error {
	return core.CheckRange("week id", weekID, MinWeekID, MaxWeekID)
}

// do runs fn once per key among concurrent callers. fn runs on a context detached from the
// caller that started it and bounded by the fetch timeout: a caller whose ctx is done stops
// waiting, the others still get the result.
func (svc *Service) do(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ch := svc.inflight.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), svc.fetchTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadSchoolMeta fetches and parses the landing page of a school.
func (svc *Service) LoadSchoolMeta(ctx context.Context, schoolKey string) (SchoolMeta, error) {
	svc.mu.RLock()
	meta, ok := svc.schools[schoolKey]
	svc.mu.RUnlock()
	if ok {
		svc.metrics.CacheHit(cacheSchool)
		return meta, nil
	}
	svc.metrics.CacheMiss(cacheSchool)

	v, err := svc.do(ctx, "school:"+schoolKey, func(ctx context.Context) (interface{}, error) {
		start := time.Now()
		html, err := svc.src.SchoolPage(ctx, schoolKey)
		svc.metrics.ObserveFetch(cacheSchool, time.Since(start), err)
		if err != nil {
			return nil, errors.Wrap(err, "fetching school page")
		}
		if html == "" {
			return nil, &core.EmptyResponseError{What: "school page"}
		}
		meta, err := ParseSchoolPage(html, schoolKey)
		if err != nil {
			return nil, err
		}
		svc.mu.Lock()
		svc.schools[schoolKey] = meta
		svc.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return SchoolMeta{}, err
	}
	return v.(SchoolMeta), nil
}

// LoadTimetableWeek returns the week `weekID` (0-52) of a class, fetching it at most once.
func (svc *Service) LoadTimetableWeek(ctx context.Context, schoolID, classID, weekID int) (TimetableWeek, error) {
	if err := checkWeekID(weekID); err != nil {
		return TimetableWeek{}, err
	}

	key := weekKey{schoolID: schoolID, classID: classID, weekID: weekID}
	svc.mu.RLock()
	week, ok := svc.weeks[key]
	svc.mu.RUnlock()
	if ok {
		svc.metrics.CacheHit(cacheWeek)
		return week, nil
	}
	svc.metrics.CacheMiss(cacheWeek)

	v, err := svc.do(ctx, fmt.Sprintf("week:%d:%d:%d", schoolID, classID, weekID), func(ctx context.Context) (interface{}, error) {
		week, err := svc.fetchWeek(ctx, cacheWeek, PayloadQuery{SchoolID: schoolID, ClassID: classID, WeekID: weekID}, classID)
		if err != nil {
			return nil, err
		}
		svc.mu.Lock()
		svc.weeks[key] = week
		svc.mu.Unlock()
		return week, nil
	})
	if err != nil {
		return TimetableWeek{}, err
	}
	return v.(TimetableWeek), nil
}

// LoadChildTimetableWeek returns the week of a student, using the bearer `accessToken`.
// Unauthorized responses are returned as is (see core.IsUnauthorized); refreshing is up to the caller.
func (svc *Service) LoadChildTimetableWeek(ctx context.Context, accessToken string, schoolID, studentID, weekID, classID int) (TimetableWeek, error) {
	if err := checkWeekID(weekID); err != nil {
		return TimetableWeek{}, err
	}
	if accessToken == "" {
		return TimetableWeek{}, core.ErrNotLoggedIn
	}

	key := childWeekKey{schoolID: schoolID, studentID: studentID, weekID: weekID}
	svc.mu.RLock()
	week, ok := svc.childWeeks[key]
	svc.mu.RUnlock()
	if ok {
		svc.metrics.CacheHit(cacheChildWeek)
		return week, nil
	}
	svc.metrics.CacheMiss(cacheChildWeek)

	// the token is part of the flight key: a retry with a refreshed token must not join a failing flight
	flight := fmt.Sprintf("child:%d:%d:%d:%s", schoolID, studentID, weekID, accessToken)
	v, err := svc.do(ctx, flight, func(ctx context.Context) (interface{}, error) {
		q := PayloadQuery{SchoolID: schoolID, StudentID: studentID, WeekID: weekID, AccessToken: accessToken}
		week, err := svc.fetchWeek(ctx, cacheChildWeek, q, classID)
		if err != nil {
			return nil, err
		}
		svc.mu.Lock()
		svc.childWeeks[key] = week
		svc.mu.Unlock()
		return week, nil
	})
	if err != nil {
		return TimetableWeek{}, err
	}
	return v.(TimetableWeek), nil
}

func (svc *Service) fetchWeek(ctx context.Context, kind string, q PayloadQuery, classID int) (TimetableWeek, error) {
	start := time.Now()
	payload, err := svc.src.TimetablePayload(ctx, q)
	svc.metrics.ObserveFetch(kind, time.Since(start), err)
	if err != nil {
		return TimetableWeek{}, errors.Wrap(err, "fetching timetable")
	}
	if payload == "" {
		return TimetableWeek{}, &core.EmptyResponseError{What: "timetable"}
	}
	return ParseTimetablePayload(classID, payload)
}

// LoadAllTimetablesForWeek loads the week of every class with at most `parallelism` fetches in flight
// (DefaultParallelism if <= 0). Lessons are labelled with their class.
// Classes that fail are logged and left out: the result holds the successes, in class order.
func (svc *Service) LoadAllTimetablesForWeek(ctx context.Context, schoolID int, classes []ClassInfo, weekID, parallelism int) ([]TimetableWeek, error) {
	if err := checkWeekID(weekID); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		parallelism = svc.parallelism
	}

	sem := semaphore.NewWeighted(int64(parallelism))
	results := make([]*TimetableWeek, len(classes))
	var wg sync.WaitGroup
	for i, cls := range classes {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // cancelled: nothing more gets started
		}
		wg.Add(1)
		go func(i int, cls ClassInfo) {
			defer wg.Done()
			defer sem.Release(1)

			week, err := svc.LoadTimetableWeek(ctx, schoolID, cls.ID, weekID)
			if err != nil {
				svc.logger.Warn(fmt.Sprintf("loading timetable of class %q (%d), week %d: %v", cls.Label, cls.ID, weekID, err), err)
				return
			}
			labelled := week.WithSourceClassLabel(cls.Label)
			results[i] = &labelled
		}(i, cls)
	}
	wg.Wait()

	weeks := make([]TimetableWeek, 0, len(classes))
	for _, w := range results {
		if w != nil {
			weeks = append(weeks, *w)
		}
	}
	return weeks, nil
}

// ClassWeeks is a cached LoadAllTimetablesForWeek for every class of `school`.
func (svc *Service) ClassWeeks(ctx context.Context, school SchoolMeta, weekID int) ([]TimetableWeek, error) {
	if err := checkWeekID(weekID); err != nil {
		return nil, err
	}

	key := allWeeksKey{schoolID: school.SchoolID, weekID: weekID}
	svc.mu.RLock()
	weeks, ok := svc.allWeeks[key]
	svc.mu.RUnlock()
	if ok {
		svc.metrics.CacheHit(cacheAllWeeks)
		return weeks, nil
	}
	svc.metrics.CacheMiss(cacheAllWeeks)

	v, err := svc.do(ctx, fmt.Sprintf("all:%d:%d", school.SchoolID, weekID), func(ctx context.Context) (interface{}, error) {
		weeks, err := svc.LoadAllTimetablesForWeek(ctx, school.SchoolID, school.Classes, weekID, svc.parallelism)
		if err != nil {
			return nil, err
		}
		if err = ctx.Err(); err != nil {
			return nil, err // partial because timed out: do not cache
		}
		svc.mu.Lock()
		svc.allWeeks[key] = weeks
		svc.mu.Unlock()
		return weeks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]TimetableWeek), nil
}

// Teachers lists the teachers of every class of `school` for week `weekID`.
func (svc *Service) Teachers(ctx context.Context, school SchoolMeta, weekID int) ([]string, error) {
	weeks, err := svc.ClassWeeks(ctx, school, weekID)
	if err != nil {
		return nil, err
	}
	return CollectTeachers(weeks), nil
}

// TeacherTimetable returns the synthetic week of `teacher`. The bool is false when no class week could be loaded.
func (svc *Service) TeacherTimetable(ctx context.Context, school SchoolMeta, weekID int, teacher string) (TimetableWeek, bool, error) {
	if err := checkWeekID(weekID); err != nil {
		return TimetableWeek{}, false, err
	}

	key := teacherKey{schoolID: school.SchoolID, weekID: weekID, teacher: teacher}
	svc.mu.RLock()
	week, ok := svc.teachers[key]
	svc.mu.RUnlock()
	if ok {
		svc.metrics.CacheHit(cacheTeacher)
		return week, true, nil
	}
	svc.metrics.CacheMiss(cacheTeacher)

	weeks, err := svc.ClassWeeks(ctx, school, weekID)
	if err != nil {
		return TimetableWeek{}, false, err
	}
	week, ok = BuildTeacherTimetable(weeks, teacher)
	if !ok {
		return TimetableWeek{}, false, nil
	}
	svc.mu.Lock()
	svc.teachers[key] = week
	svc.mu.Unlock()
	return week, true, nil
}

// ClearChildCache forgets every student week (on logout or child change).
func (svc *Service) ClearChildCache() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.childWeeks = make(map[childWeekKey]TimetableWeek)
}

// ClearSchool forgets every class and teacher week of a school.
func (svc *Service) ClearSchool(schoolID int) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for k := range svc.weeks {
		if k.schoolID == schoolID {
			delete(svc.weeks, k)
		}
	}
	for k := range svc.allWeeks {
		if k.schoolID == schoolID {
			delete(svc.allWeeks, k)
		}
	}
	for k := range svc.teachers {
		if k.schoolID == schoolID {
			delete(svc.teachers, k)
		}
	}
	for k, meta := range svc.schools {
		if meta.SchoolID == schoolID {
			delete(svc.schools, k)
		}
	}
}

// Clear empties every cache.
func (svc *Service) Clear() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.schools = make(map[string]SchoolMeta)
	svc.weeks = make(map[weekKey]TimetableWeek)
	svc.childWeeks = make(map[childWeekKey]TimetableWeek)
	svc.allWeeks = make(map[allWeeksKey][]TimetableWeek)
	svc.teachers = make(map[teacherKey]TimetableWeek)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit(string)                           {}
func (noopMetrics) CacheMiss(string)                          {}
func (noopMetrics) ObserveFetch(string, time.Duration, error) {}
