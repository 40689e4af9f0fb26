// Package fakes holds in-memory upstreams for application tests.
package fakes

import (
	"context"
	"net/http"
	"sync"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/tests"
)

// Source serves one school page and one payload per class (or per student).
type Source struct {
	School   string
	Classes  map[int]string // payload by class id
	Students map[int]string // payload by student id

	mu      sync.Mutex
	Queries []timetable.PayloadQuery
}

var _ timetable.Source = (*Source)(nil)

func (s *Source) SchoolPage(context.Context, string) (string, error) {
	if s.School == "" {
		return "", &core.StatusError{Code: http.StatusNotFound}
	}
	return s.School, nil
}

func (s *Source) TimetablePayload(_ context.Context, q timetable.PayloadQuery) (string, error) {
	s.mu.Lock()
	s.Queries = append(s.Queries, q)
	s.mu.Unlock()

	payload, ok := s.Classes[q.ClassID]
	if q.StudentID != 0 {
		if q.AccessToken == "" {
			return "", &core.StatusError{Code: http.StatusUnauthorized}
		}
		payload, ok = s.Students[q.StudentID]
	}
	if !ok {
		return "", &core.StatusError{Code: http.StatusNotFound}
	}
	return payload, nil
}

// AuthClient accepts one username/password pair and hands out AccessToken.
type AuthClient struct {
	Username, Password string
	AccessToken        string
	UserName           string
	ChildItems         []auth.ChildItem
	GradesByChild      map[string][]auth.SubjectGrades    // by child uuid
	NotificationPages  map[string][]auth.NotificationItem // first page by child uuid

	mu          sync.Mutex
	LogoutCalls int
}

var _ auth.Client = (*AuthClient)(nil)

func (c *AuthClient) tokens() auth.TokenResponse {
	return auth.TokenResponse{
		AccessToken:  auth.AccessToken{Token: c.AccessToken, ExpirationDate: "2030-01-01 00:00:00"},
		RefreshToken: "refresh-" + c.AccessToken,
	}
}

func (c *AuthClient) authorize(token string) error {
	if token != c.AccessToken {
		return &core.StatusError{Code: http.StatusUnauthorized}
	}
	return nil
}

func (c *AuthClient) Login(_ context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	if req.Username != c.Username || req.Password != c.Password {
		return auth.TokenResponse{}, &core.StatusError{
			Code: http.StatusUnauthorized,
			Body: `{"error":{"developer_message":"Wrong username or password"}}`,
		}
	}
	resp := c.tokens()
	resp.User = &auth.User{ID: 1}
	if c.UserName != "" {
		resp.User.Name.SetValid(c.UserName)
	}
	return resp, nil
}

func (c *AuthClient) Refresh(_ context.Context, refreshToken string) (auth.TokenResponse, error) {
	if refreshToken != "refresh-"+c.AccessToken {
		return auth.TokenResponse{}, &core.StatusError{Code: http.StatusUnauthorized}
	}
	return c.tokens(), nil
}

func (c *AuthClient) Logout(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LogoutCalls++
	return nil
}

func (c *AuthClient) Children(_ context.Context, token string) ([]auth.ChildItem, error) {
	return c.ChildItems, c.authorize(token)
}

func (c *AuthClient) Grades(_ context.Context, token, childUUID string) ([]auth.SubjectGrades, error) {
	return c.GradesByChild[childUUID], c.authorize(token)
}

func (c *AuthClient) Notifications(_ context.Context, token, childUUID string, lastID int64) ([]auth.NotificationItem, error) {
	if err := c.authorize(token); err != nil {
		return nil, err
	}
	if lastID != 0 {
		return nil, nil
	}
	return c.NotificationPages[childUUID], nil
}

// WeekPayload renders the week of 14 - 18 Oct 2024 with `days` (Monday first) in its first period.
func WeekPayload(days ...testutil.Block) string {
	cells := make([]testutil.Cell, 5)
	for i, b := range days {
		if i < len(cells) && (b.Code != "" || b.Title != "") {
			cells[i] = testutil.Cell{Blocks: []testutil.Block{b}}
		}
	}
	table := testutil.Table{
		Headers: []string{"14. 10.", "15. 10.", "16. 10.", "17. 10.", "18. 10."},
		Rows:    []testutil.Row{{Name: "1. ura", Time: "8:00 - 8:45", Cells: cells}},
	}
	return testutil.Payload("14. 10. 2024", "18. 10. 2024", table.HTML())
}
