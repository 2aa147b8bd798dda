package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/sitterbook/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type household struct {
	Pets bool `json:"pets"`
}

type listingRequest struct {
	Address       string    `json:"address" validate:"required"`
	ContactEmail  string    `json:"contactEmail" validate:"required,email"`
	AgeOfChildren []int     `json:"ageOfChildren" validate:"min=1,dive,gte=0"`
	HourlyRate    float64   `json:"hourlyRate" validate:"gt=0"`
	Household     household `json:"comfortableWith"`
}

func (r *listingRequest) Validate() error {
	return Validate(r)
}

type customRequest struct {
	Name string `json:"name"`
}

func (r *customRequest) Validate() error {
	if r.Name == "admin" {
		return CustomValidationErrors{{Field: "name", Message: "is reserved"}}
	}
	return nil
}

func newContext(body string) echo.Context {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func asHTTPError(t *testing.T, err error) *errs.HTTPError {
	t.Helper()

	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	return httpErr
}

func TestBindAndValidate_Valid(t *testing.T) {
	var req listingRequest
	err := BindAndValidate(newContext(`{
		"address": "1 Main St, Boston MA",
		"contactEmail": "parent@example.com",
		"ageOfChildren": [2, 5],
		"hourlyRate": 18.5,
		"comfortableWith": {"pets": true}
	}`), &req)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, req.AgeOfChildren)
	assert.True(t, req.Household.Pets)
}

func TestBindAndValidate_FieldErrorsUseJSONNames(t *testing.T) {
	var req listingRequest
	err := BindAndValidate(newContext(`{
		"contactEmail": "not-an-email",
		"ageOfChildren": [3, -1],
		"hourlyRate": 0
	}`), &req)

	httpErr := asHTTPError(t, err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "Validation failed", httpErr.Message)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "address", Error: "is required"},
		{Field: "contactEmail", Error: "must be a valid email address"},
		{Field: "ageOfChildren[1]", Error: "must be at least 0"},
		{Field: "hourlyRate", Error: "must be greater than 0"},
	}, httpErr.Errors)
}

func TestBindAndValidate_EmptySlice(t *testing.T) {
	var req listingRequest
	err := BindAndValidate(newContext(`{
		"address": "x",
		"contactEmail": "parent@example.com",
		"ageOfChildren": [],
		"hourlyRate": 10
	}`), &req)

	httpErr := asHTTPError(t, err)
	assert.Equal(t, []errs.FieldError{{Field: "ageOfChildren", Error: "must contain at least 1 items"}}, httpErr.Errors)
}

func TestBindAndValidate_MalformedJSON(t *testing.T) {
	var req listingRequest
	err := BindAndValidate(newContext(`{"address": `), &req)

	httpErr := asHTTPError(t, err)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.NotEmpty(t, httpErr.Message)
	assert.Empty(t, httpErr.Errors)
}

func TestBindAndValidate_CustomErrors(t *testing.T) {
	var req customRequest
	err := BindAndValidate(newContext(`{"name": "admin"}`), &req)

	httpErr := asHTTPError(t, err)
	assert.Equal(t, []errs.FieldError{{Field: "name", Error: "is reserved"}}, httpErr.Errors)
}

func TestIsValidUUID(t *testing.T) {
	assert.True(t, IsValidUUID("0b7d2c1e-7f5c-4d8a-9d51-3c8a4a1f6e20"))
	assert.False(t, IsValidUUID("0b7d2c1e7f5c4d8a9d513c8a4a1f6e20"))
	assert.False(t, IsValidUUID(""))
}
