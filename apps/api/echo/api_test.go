package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/apps/shared"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/auth"
	"github.com/trezcool/ratiba/tests"
	"github.com/trezcool/ratiba/tests/fakes"
	inmemkv "github.com/trezcool/ratiba/storage/kv/inmem"
)

const childUUID = "p$77.2024.1234.10.501"

var errNotLoggedIn = httpErr{Error: core.ErrNotLoggedIn.Error()}

func setup(t *testing.T) (*Server, *fakes.Source) {
	t.Helper()
	conf := &core.Config{
		AppName:   "Ratiba",
		TestMode:  true,
		Timetable: core.TimetableConfig{Parallelism: 2},
		Reminder:  core.ReminderConfig{Zone: "UTC"},
	}
	src := &fakes.Source{
		School: testutil.SchoolPage("1234", [2]string{"10", "1.a"}, [2]string{"11", "1.b"}),
		Classes: map[int]string{
			10: fakes.WeekPayload(testutil.Block{Code: "MAT", TeacherRoom: "Novak, 12", TeacherFullName: "Ana Novak"}),
			11: fakes.WeekPayload(testutil.Block{}, testutil.Block{Code: "SLO", TeacherRoom: "Kos, 3", TeacherFullName: "Bojan Kos"}),
		},
		Students: map[int]string{
			501: fakes.WeekPayload(testutil.Block{Code: "FIZ", TeacherRoom: "Zupan, 7", TeacherFullName: "Cene Zupan"}),
		},
	}
	client := &fakes.AuthClient{
		Username:    "parent",
		Password:    "secret",
		AccessToken: testutil.UnsignedJWT(t, map[string]interface{}{"userId": "77", "schoolId": "1234"}),
		UserName:    "Mojca Kos",
		ChildItems: []auth.ChildItem{
			{UUID: childUUID, DisplayName: null.StringFrom("Tine Kos"), ClassName: null.StringFrom("1.a")},
		},
		GradesByChild: map[string][]auth.SubjectGrades{
			childUUID: {{Name: "Matematika", ID: 3, AverageGrade: null.StringFrom("4.50")}},
		},
	}

	deps := shared.Wire(conf, core.NewDiscardLogger(), inmemkv.Open(), src, client)
	return NewServer(Options{DisableReqLogs: true}, deps), src
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
	wantData []byte
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return req, rec
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *Server, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_timetableApi(t *testing.T) {
	app, _ := setup(t)

	school := marchallObj(t, map[string]interface{}{
		"school_key": "abc",
		"school_id":  1234,
		"classes": []map[string]interface{}{
			{"id": 10, "label": "1.a"},
			{"id": 11, "label": "1.b"},
		},
	})

	runHTTPTests(t, app, []httpTest{
		{name: "home", method: http.MethodGet, path: "/", wantCode: http.StatusOK},
		{name: "school", method: http.MethodGet, path: "/v1/schools/abc", wantCode: http.StatusOK, wantData: school},
		{name: "school: trailing slash", method: http.MethodGet, path: "/v1/schools/abc/", wantCode: http.StatusOK, wantData: school},
		{name: "school: bad key", method: http.MethodGet, path: "/v1/schools/a%21b", wantCode: http.StatusBadRequest},
		{name: "class week: not a number", method: http.MethodGet, path: "/v1/schools/abc/classes/x/weeks/0", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class": "class must be a number"})},
		{name: "class week: out of range", method: http.MethodGet, path: "/v1/schools/abc/classes/10/weeks/53", wantCode: http.StatusBadRequest,
			wantData: []byte(`{"week": "week must be 52 or less"}`)},
		{name: "class week: unknown class", method: http.MethodGet, path: "/v1/schools/abc/classes/99/weeks/0", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found upstream"})},
		{name: "teachers", method: http.MethodGet, path: "/v1/schools/abc/weeks/0/teachers", wantCode: http.StatusOK,
			wantData: []byte(`["Ana Novak", "Bojan Kos"]`)},
		{name: "teachers: query", method: http.MethodGet, path: "/v1/schools/abc/weeks/0/teachers?q=novak", wantCode: http.StatusOK,
			wantData: []byte(`["Ana Novak"]`)},
		{name: "teachers: no match", method: http.MethodGet, path: "/v1/schools/abc/weeks/0/teachers?q=zzzzzz", wantCode: http.StatusOK,
			wantData: []byte(`[]`)},
	})
}

func Test_timetableApi_weeks(t *testing.T) {
	app, _ := setup(t)

	t.Run("class week", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/schools/abc/classes/10/weeks/0")
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var week struct {
			ClassID   int    `json:"class_id"`
			WeekStart string `json:"week_start"`
			Days      []struct {
				LessonsByPeriod []json.RawMessage `json:"lessons_by_period"`
			} `json:"days"`
		}
		if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week)) {
			assert.Equal(t, 10, week.ClassID)
			assert.Len(t, week.Days, 5)
			assert.Contains(t, rec.Body.String(), `"MAT"`)
		}
	})

	t.Run("teacher week", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/schools/abc/weeks/0/teachers/Bojan%20Kos")
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"SLO"`)
		assert.NotContains(t, rec.Body.String(), `"suggestions"`)
	})

	t.Run("teacher week: suggestions", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/schools/abc/weeks/0/teachers/Bojan%20Koss")
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Suggestions []string `json:"suggestions"`
		}
		if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)) {
			assert.Equal(t, []string{"Bojan Kos"}, resp.Suggestions)
		}
	})
}

func Test_sessionApi(t *testing.T) {
	app, src := setup(t)

	loggedIn := marchallObj(t, map[string]interface{}{
		"user_name": "Mojca Kos",
		"user_id":   "77",
		"school_id": 1234,
	})

	runHTTPTests(t, app, []httpTest{
		{name: "session: logged out", method: http.MethodGet, path: "/v1/session", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotLoggedIn)},
		{name: "children: logged out", method: http.MethodGet, path: "/v1/children", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotLoggedIn)},
		{name: "login: no password", method: http.MethodPost, path: "/v1/session", body: []byte(`{"username": "parent"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"password": "this field is required"})},
		{name: "login: wrong password", method: http.MethodPost, path: "/v1/session", body: []byte(`{"username": "parent", "password": "lol"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "Wrong username or password"})},
		{name: "login", method: http.MethodPost, path: "/v1/session", body: []byte(`{"username": "parent", "password": "secret"}`),
			wantCode: http.StatusOK, wantData: loggedIn},
		{name: "session", method: http.MethodGet, path: "/v1/session", wantCode: http.StatusOK, wantData: loggedIn},
		{name: "children", method: http.MethodGet, path: "/v1/children", wantCode: http.StatusOK,
			wantData: marchallObj(t, []map[string]interface{}{{
				"uuid":                childUUID,
				"student_id":          501,
				"class_id":            10,
				"display_name":        "Tine Kos",
				"class_name":          "1.a",
				"school_name":         nil,
				"subscription_status": nil,
			}})},
		{name: "grades: free, none", method: http.MethodGet, path: "/v1/children/" + childUUID + "/grades?free=1", wantCode: http.StatusOK,
			wantData: []byte(`[]`)},
		{name: "child week: unknown child", method: http.MethodGet, path: "/v1/children/p$77.2024.1234.10.999/weeks/0", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "child not found"})},
		{name: "child week: bad week", method: http.MethodGet, path: "/v1/children/" + childUUID + "/weeks/x", wantCode: http.StatusBadRequest},
	})

	t.Run("grades", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/children/"+childUUID+"/grades")
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var grades []auth.SubjectGrades
		if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grades)) && assert.Len(t, grades, 1) {
			assert.Equal(t, "Matematika", grades[0].Name)
			assert.Equal(t, null.StringFrom("4.50"), grades[0].AverageGrade)
		}
	})

	t.Run("child week", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/children/"+childUUID+"/weeks/0")
		app.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"FIZ"`)
		q := src.Queries[len(src.Queries)-1]
		assert.Equal(t, 501, q.StudentID)
		assert.Equal(t, 1234, q.SchoolID)
		assert.NotEmpty(t, q.AccessToken)
	})

	runHTTPTests(t, app, []httpTest{
		{name: "logout", method: http.MethodDelete, path: "/v1/session", wantCode: http.StatusNoContent},
		{name: "session: after logout", method: http.MethodGet, path: "/v1/session", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotLoggedIn)},
	})
}

func TestServer_metricsAndRequestID(t *testing.T) {
	app, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/schools/abc")
	req.Header.Set("X-Request-ID", "req-1")
	app.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))

	req, rec = newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `ratiba_cache_misses_total{cache="school"} 1`), "metrics: %s", body)
	assert.Contains(t, body, "ratiba_upstream_fetch_duration_seconds")
}

func TestServer_Shutdown(t *testing.T) {
	app, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, app.Shutdown(ctx))
}
