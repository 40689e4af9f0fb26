// Package easistent is the HTTP transport to the eAsistent public timetable pages and to its
// authenticated mobile API.
package easistent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// maxErrorBody caps how much of an error response is kept in a core.StatusError.
const maxErrorBody = 4 << 10

type client struct {
	http    *http.Client
	base    *url.URL
	headers http.Header
}

func newClient(baseURL string, conf core.UpstreamConfig, headers http.Header) (*client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if headers == nil {
		headers = http.Header{}
	}
	if conf.UserAgent != "" {
		headers.Set("User-Agent", conf.UserAgent)
	}
	return &client{
		http:    &http.Client{Timeout: conf.Timeout},
		base:    base,
		headers: headers,
	}, nil
}

type request struct {
	method string
	path   string // relative to the base url
	query  url.Values
	body   interface{}
	bearer string
}

// do sends req and returns the response body of a successful (2xx) response.
func (c *client) do(ctx context.Context, req request) ([]byte, error) {
	u, err := c.base.Parse(req.path)
	if err != nil {
		return nil, errors.Wrapf(err, "parse path %q", req.path)
	}
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for k, v := range c.headers {
		httpReq.Header[k] = v
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	op := req.method + " " + u.Path
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return nil, &core.StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// doJSON sends req and decodes the response body into dst.
func (c *client) doJSON(ctx context.Context, req request, what string, dst interface{}) error {
	data, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &core.EmptyResponseError{What: what}
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return core.NewParseError(what, err)
	}
	return nil
}
