package easistent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

// PublicClient fetches the public timetable pages.
type PublicClient struct {
	c *client
}

var _ timetable.Source = (*PublicClient)(nil)

func NewPublicClient(conf core.UpstreamConfig) (*PublicClient, error) {
	c, err := newClient(conf.PublicBaseURL, conf, nil)
	if err != nil {
		return nil, err
	}
	return &PublicClient{c: c}, nil
}

// SchoolPage returns the landing page html of the school identified by schoolKey.
func (pc *PublicClient) SchoolPage(ctx context.Context, schoolKey string) (string, error) {
	data, err := pc.c.do(ctx, request{
		method: http.MethodGet,
		path:   "urniki/" + url.PathEscape(schoolKey) + "/",
	})
	return string(data), err
}

// TimetablePayload returns the raw ajax timetable response for q.
func (pc *PublicClient) TimetablePayload(ctx context.Context, q timetable.PayloadQuery) (string, error) {
	extra := 0
	if q.Extracurriculars {
		extra = 1
	}
	data, err := pc.c.do(ctx, request{
		method: http.MethodGet,
		path: fmt.Sprintf("urniki/ajax_urnik/%d/%d/%d/%d/%d/%d/%d",
			q.SchoolID, q.ClassID, q.ProfessorID, q.StudentID, q.ClassroomID, q.WeekID, extra),
		bearer: q.AccessToken,
	})
	return string(data), err
}
