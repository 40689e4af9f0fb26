package easistent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
)

// AuthClient talks to the authenticated mobile API.
type AuthClient struct {
	c                 *client
	deviceID          string
	gradesPath        string
	notificationsPath string
}

var _ auth.Client = (*AuthClient)(nil)

func NewAuthClient(conf core.UpstreamConfig) (*AuthClient, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("X-Requested-With", "XMLHttpRequest")
	headers.Set("X-App-Name", conf.AppName)
	headers.Set("X-Device-Id", conf.DeviceID)
	headers.Set("X-Client-Version", conf.ClientVersion)
	headers.Set("X-Client-Platform", conf.ClientPlatform)

	c, err := newClient(conf.AuthBaseURL, conf, headers)
	if err != nil {
		return nil, err
	}
	return &AuthClient{
		c:                 c,
		deviceID:          conf.DeviceID,
		gradesPath:        conf.GradesPath,
		notificationsPath: conf.NotificationsPath,
	}, nil
}

func (ac *AuthClient) Login(ctx context.Context, req auth.LoginRequest) (auth.TokenResponse, error) {
	var resp auth.TokenResponse
	err := ac.c.doJSON(ctx, request{method: http.MethodPost, path: "m/login", body: req}, "login", &resp)
	return resp, err
}

func (ac *AuthClient) Refresh(ctx context.Context, refreshToken string) (auth.TokenResponse, error) {
	var resp auth.TokenResponse
	err := ac.c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "m/refresh_token",
		body:   auth.RefreshRequest{RefreshToken: refreshToken},
	}, "refresh", &resp)
	return resp, err
}

// Logout invalidates accessToken upstream. It is idempotent.
func (ac *AuthClient) Logout(ctx context.Context, accessToken string) error {
	_, err := ac.c.do(ctx, request{
		method: http.MethodDelete,
		path:   "m/logout",
		query:  url.Values{"device_id": {ac.deviceID}},
		bearer: accessToken,
	})
	return err
}

type (
	childrenResponse struct {
		Items []auth.ChildItem `json:"items"`
	}

	gradesResponse struct {
		Items []auth.SubjectGrades `json:"items"`
	}

	notificationsResponse struct {
		Items []auth.NotificationItem `json:"items"`
	}
)

func (ac *AuthClient) Children(ctx context.Context, accessToken string) ([]auth.ChildItem, error) {
	var resp childrenResponse
	err := ac.c.doJSON(ctx, request{method: http.MethodGet, path: "m/v2/children", bearer: accessToken}, "children", &resp)
	return resp.Items, err
}

func (ac *AuthClient) Grades(ctx context.Context, accessToken, childUUID string) ([]auth.SubjectGrades, error) {
	var resp gradesResponse
	err := ac.c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf(ac.gradesPath, url.PathEscape(childUUID)),
		bearer: accessToken,
	}, "grades", &resp)
	return resp.Items, err
}

func (ac *AuthClient) Notifications(ctx context.Context, accessToken, childUUID string, lastID int64) ([]auth.NotificationItem, error) {
	var query url.Values
	if lastID > 0 {
		query = url.Values{"last_id": {strconv.FormatInt(lastID, 10)}}
	}
	var resp notificationsResponse
	err := ac.c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   fmt.Sprintf(ac.notificationsPath, url.PathEscape(childUUID)),
		query:  query,
		bearer: accessToken,
	}, "notifications", &resp)
	return resp.Items, err
}
