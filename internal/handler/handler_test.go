package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/sitterbook/internal/errs"
	"github.com/deppfellow/sitterbook/internal/lib/job"
	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/deppfellow/sitterbook/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user_parent"

type memStore[T any] struct {
	records map[string]*T
	likes   map[string][]string
	setID   func(*T, uuid.UUID)
	userOf  func(*T) string

	total    int
	docs     []query.Document
	upserted []*T
}

func newMemStore[T any](setID func(*T, uuid.UUID), userOf func(*T) string) *memStore[T] {
	return &memStore[T]{
		records: map[string]*T{},
		likes:   map[string][]string{},
		setID:   setID,
		userOf:  userOf,
	}
}

func (m *memStore[T]) Fields() query.FieldSet {
	return query.NewFieldSet("hourlyRate", "description", "createdAt")
}

func (m *memStore[T]) Count(ctx context.Context, criteria *query.Criteria) (int, error) {
	return m.total, nil
}

func (m *memStore[T]) Find(ctx context.Context, params query.FindParams) ([]query.Document, error) {
	return m.docs, nil
}

func (m *memStore[T]) FindByUser(ctx context.Context, userID string) (*T, error) {
	for _, r := range m.records {
		if m.userOf(r) == userID {
			return r, nil
		}
	}
	return nil, errs.NewNotFoundError("not found", false, nil)
}

func (m *memStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, errs.NewNotFoundError("not found", false, nil)
}

func (m *memStore[T]) DeleteByUser(ctx context.Context, userID string) error {
	for id, r := range m.records {
		if m.userOf(r) == userID {
			delete(m.records, id)
			return nil
		}
	}
	return errs.NewNotFoundError("not found", false, nil)
}

func (m *memStore[T]) Like(ctx context.Context, id, userID string) (bool, error) {
	if slices.Contains(m.likes[id], userID) {
		return false, nil
	}
	m.likes[id] = append(m.likes[id], userID)
	return true, nil
}

func (m *memStore[T]) Unlike(ctx context.Context, id, userID string) (bool, error) {
	i := slices.Index(m.likes[id], userID)
	if i < 0 {
		return false, nil
	}
	m.likes[id] = slices.Delete(m.likes[id], i, i+1)
	return true, nil
}

func (m *memStore[T]) Upsert(ctx context.Context, record *T) (*T, error) {
	id := uuid.New()
	m.setID(record, id)
	m.records[id.String()] = record
	m.upserted = append(m.upserted, record)
	return record, nil
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(ctx context.Context, place string) (*model.Location, error) {
	if place == "nowhere" {
		return nil, &query.GeocodingError{Place: place, Err: query.ErrPlaceNotFound}
	}
	return &model.Location{Type: model.PointType, Coordinates: []float64{-71.06, 42.36}, City: "Boston"}, nil
}

func (g stubGeocoder) Resolve(ctx context.Context, place string) (query.Point, error) {
	return query.Point{Longitude: -71.06, Latitude: 42.36}, nil
}

type nopNotifier struct{}

func (nopNotifier) EnqueueLikeNotification(ctx context.Context, p job.LikeNotificationPayload) error {
	return nil
}

type testAPI struct {
	echo    *echo.Echo
	jobs    *memStore[model.Job]
	sitters *memStore[model.Sitter]
}

// newTestAPI mounts the job and sitter routes without auth; every request
// runs as testUser.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	jobs := newMemStore(func(j *model.Job, id uuid.UUID) { j.ID = id }, func(j *model.Job) string { return j.User })
	sitters := newMemStore(func(s *model.Sitter, id uuid.UUID) { s.ID = id }, func(s *model.Sitter) string { return s.User })

	s := &server.Server{}
	jobHandler := NewJobHandler(s, service.NewJobService(jobs, stubGeocoder{}, nopNotifier{}, service.ListingOptions{}))
	sitterHandler := NewSitterHandler(s, service.NewSitterService(sitters, stubGeocoder{}, nopNotifier{}, service.ListingOptions{}))

	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserIDKey, testUser)
			return next(c)
		}
	})

	mount := func(g *echo.Group, r ListingRoutes) {
		g.GET("", r.List)
		g.POST("", r.Save)
		g.GET("/me", r.Mine)
		g.GET("/user/:user_id", r.ByUser)
		g.DELETE("/user", r.Delete)
		g.PUT("/:id/like", r.Like)
		g.PUT("/:id/unlike", r.Unlike)
	}
	mount(e.Group("/jobs"), jobHandler.Routes())
	mount(e.Group("/sitters"), sitterHandler.Routes())

	return &testAPI{echo: e, jobs: jobs, sitters: sitters}
}

func (api *testAPI) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	api.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

const validJob = `{
	"address": "1 Main St, Boston MA",
	"description": "Two kids after school",
	"numberOfChildren": 2,
	"ageOfChildren": "3, 7",
	"hourlyRate": 18.5,
	"pets": true,
	"contactPhone": "+16175550100",
	"contactEmail": "parent@example.com"
}`

func TestListJobs_Envelope(t *testing.T) {
	api := newTestAPI(t)
	api.jobs.total = 12
	api.jobs.docs = []query.Document{{"id": "a"}, {"id": "b"}}

	rec := api.do(http.MethodGet, "/jobs?page=2&hourlyRate[gte]=15", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[ListResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, &PageLink{Page: 3, Limit: 5}, resp.Pagination.Next)
	assert.Equal(t, &PageLink{Page: 1, Limit: 5}, resp.Pagination.Prev)
	assert.Len(t, resp.Data, 2)
}

func TestListJobs_FirstPageHasNoPrev(t *testing.T) {
	api := newTestAPI(t)
	api.jobs.total = 3

	rec := api.do(http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "count": 0, "pagination": {}, "data": []}`, rec.Body.String())
}

func TestListJobs_UnknownField(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/jobs?salary[gt]=10", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errs.HTTPError](t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "salary", resp.Errors[0].Field)
}

func TestSaveJob(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/jobs", validJob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, api.jobs.upserted, 1)
	saved := api.jobs.upserted[0]
	assert.Equal(t, testUser, saved.User)
	assert.Equal(t, []int{3, 7}, saved.AgeOfChildren)
	assert.True(t, saved.ComfortableWith.Pets)
	require.NotNil(t, saved.Location)
	assert.Equal(t, "Boston", saved.Location.City)

	resp := decode[model.Job](t, rec)
	assert.Equal(t, saved.ID, resp.ID)
}

func TestSaveJob_ValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/jobs", `{"description": "x", "contactEmail": "nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errs.HTTPError](t, rec)
	fields := make([]string, 0, len(resp.Errors))
	for _, fe := range resp.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{
		"address", "numberOfChildren", "ageOfChildren", "hourlyRate", "contactPhone", "contactEmail",
	}, fields)
	assert.Empty(t, api.jobs.upserted)
}

func TestSaveJob_UnknownAddress(t *testing.T) {
	api := newTestAPI(t)

	body := strings.Replace(validJob, "1 Main St, Boston MA", "nowhere", 1)
	rec := api.do(http.MethodPost, "/jobs", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errs.HTTPError](t, rec)
	assert.Equal(t, "LOCATION_NOT_FOUND", resp.Code)
}

func TestLikeJob(t *testing.T) {
	api := newTestAPI(t)
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/jobs", validJob).Code)
	id := api.jobs.upserted[0].ID.String()

	rec := api.do(http.MethodPut, "/jobs/"+id+"/like", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPut, "/jobs/"+id+"/like", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ALREADY_LIKED", decode[errs.HTTPError](t, rec).Code)

	rec = api.do(http.MethodPut, "/jobs/"+id+"/unlike", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLikeJob_InvalidID(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPut, "/jobs/not-a-uuid/like", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[errs.HTTPError](t, rec)
	assert.Equal(t, []errs.FieldError{{Field: "id", Error: "must be a valid UUID"}}, resp.Errors)
}

func TestMineAndDelete(t *testing.T) {
	api := newTestAPI(t)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/jobs/me", "").Code)

	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/jobs", validJob).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/jobs/me", "").Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/jobs/user/"+testUser, "").Code)

	rec := api.do(http.MethodDelete, "/jobs/user", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg": "Babysitting job deleted"}`, rec.Body.String())
	assert.Empty(t, api.jobs.records)
}

func TestSaveSitter(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/sitters", `{
		"city": "Boston",
		"dateOfBirth": "1998-04-12",
		"description": "Early childhood student",
		"experience": "3 years",
		"experienceAges": {"toddler": true},
		"hourlyRate": 22,
		"skills": {"music": true},
		"contactPhone": "+16175550101",
		"contactEmail": "sitter@example.com"
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, api.sitters.upserted, 1)
	saved := api.sitters.upserted[0]
	assert.Equal(t, time.Date(1998, 4, 12, 0, 0, 0, 0, time.UTC), saved.DateOfBirth)
	assert.True(t, saved.ExperienceAges.Toddler)
	assert.True(t, saved.Skills.Music)
	assert.Equal(t, []float64{-71.06, 42.36}, saved.Location.Coordinates)
}

func TestSaveSitter_FutureBirthDate(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/sitters", `{
		"city": "Boston",
		"dateOfBirth": "2999-01-01",
		"description": "x",
		"experience": "x",
		"hourlyRate": 22,
		"contactPhone": "+16175550101",
		"contactEmail": "sitter@example.com"
	}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []errs.FieldError{{Field: "dateOfBirth", Error: "must be in the past"}}, decode[errs.HTTPError](t, rec).Errors)
}

func TestAgeList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AgeList
		wantErr bool
	}{
		{name: "array", input: `[1, 4]`, want: AgeList{1, 4}},
		{name: "comma string", input: `"2, 5,9"`, want: AgeList{2, 5, 9}},
		{name: "blank parts", input: `"2,,"`, want: AgeList{2}},
		{name: "not a number", input: `"two"`, wantErr: true},
		{name: "object", input: `{}`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got AgeList
			err := json.Unmarshal([]byte(tc.input), &got)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewRequest_FreshPayloadPerCall(t *testing.T) {
	proto := &SaveJobRequest{Address: "kept out"}
	first := newRequest(proto)
	second := newRequest(proto)

	assert.Empty(t, first.Address)
	assert.NotSame(t, first, second)
	assert.NotSame(t, proto, first)
}

func TestNewListResponse_NoNeighbours(t *testing.T) {
	resp := newListResponse(&query.PageResult{Items: []query.Document{}, Page: 1, Limit: 5})
	assert.Nil(t, resp.Pagination.Next)
	assert.Nil(t, resp.Pagination.Prev)
}
