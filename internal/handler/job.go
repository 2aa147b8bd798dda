package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/deppfellow/sitterbook/internal/service"
	"github.com/deppfellow/sitterbook/internal/validation"
	"github.com/labstack/echo/v4"
)

// AgeList accepts children's ages either as a JSON array or as a
// comma-separated string such as "3, 7".
type AgeList []int

func (a *AgeList) UnmarshalJSON(b []byte) error {
	var ages []int
	if err := json.Unmarshal(b, &ages); err == nil {
		*a = ages
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	ages = []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("ageOfChildren: %q is not a whole number", part)
		}
		ages = append(ages, n)
	}
	*a = ages
	return nil
}

// SaveJobRequest creates or replaces the caller's job. The household flags
// are sent at the top level.
type SaveJobRequest struct {
	Address          string  `json:"address" validate:"required"`
	Description      string  `json:"description" validate:"required"`
	NumberOfChildren int     `json:"numberOfChildren" validate:"required,gt=0"`
	AgeOfChildren    AgeList `json:"ageOfChildren" validate:"required,min=1,dive,gte=0,lte=18"`
	HourlyRate       float64 `json:"hourlyRate" validate:"required,gt=0"`
	Pets             bool    `json:"pets"`
	Cooking          bool    `json:"cooking"`
	Chores           bool    `json:"chores"`
	ContactPhone     string  `json:"contactPhone" validate:"required,e164"`
	ContactEmail     string  `json:"contactEmail" validate:"required,email"`
}

func (r *SaveJobRequest) Validate() error {
	return validation.Validate(r)
}

func (r *SaveJobRequest) toModel(userID string) *model.Job {
	return &model.Job{
		User:             userID,
		Description:      r.Description,
		NumberOfChildren: r.NumberOfChildren,
		AgeOfChildren:    r.AgeOfChildren,
		HourlyRate:       r.HourlyRate,
		ComfortableWith: model.ComfortableWith{
			Pets:    r.Pets,
			Cooking: r.Cooking,
			Chores:  r.Chores,
		},
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
	}
}

// JobHandler serves the babysitting job endpoints.
type JobHandler struct {
	listingHandler[model.Job]
	jobs *service.JobService
}

func NewJobHandler(s *server.Server, jobs *service.JobService) *JobHandler {
	return &JobHandler{
		listingHandler: listingHandler[model.Job]{
			Handler:    NewHandler(s),
			svc:        jobs,
			deletedMsg: "Babysitting job deleted",
		},
		jobs: jobs,
	}
}

// Save creates the caller's job or updates the one they already posted.
func (h *JobHandler) Save(c echo.Context, req *SaveJobRequest) (*model.Job, error) {
	return h.jobs.Save(c.Request().Context(), req.toModel(middleware.GetUserID(c)), req.Address)
}

func (h *JobHandler) Routes() ListingRoutes {
	routes := h.listingHandler.Routes()
	routes.Save = Handle(h.Handler, h.Save, http.StatusOK, &SaveJobRequest{})
	return routes
}
