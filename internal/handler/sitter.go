package handler

import (
	"net/http"
	"time"

	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/server"
	"github.com/deppfellow/sitterbook/internal/service"
	"github.com/deppfellow/sitterbook/internal/validation"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// SaveSitterRequest creates or replaces the caller's sitter profile.
type SaveSitterRequest struct {
	City            string                `json:"city" validate:"required"`
	DateOfBirth     string                `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Description     string                `json:"description" validate:"required"`
	Experience      string                `json:"experience" validate:"required"`
	ExperienceAges  model.ExperienceAges  `json:"experienceAges"`
	HourlyRate      float64               `json:"hourlyRate" validate:"required,gt=0"`
	Skills          model.Skills          `json:"skills"`
	ComfortableWith model.ComfortableWith `json:"comfortableWith"`
	ContactPhone    string                `json:"contactPhone" validate:"required,e164"`
	ContactEmail    string                `json:"contactEmail" validate:"required,email"`
}

func (r *SaveSitterRequest) Validate() error {
	if err := validation.Validate(r); err != nil {
		return err
	}

	dob, _ := time.Parse(dateLayout, r.DateOfBirth)
	if dob.After(time.Now()) {
		return validation.CustomValidationErrors{{Field: "dateOfBirth", Message: "must be in the past"}}
	}
	return nil
}

func (r *SaveSitterRequest) toModel(userID string) *model.Sitter {
	dob, _ := time.Parse(dateLayout, r.DateOfBirth)

	return &model.Sitter{
		User:            userID,
		City:            r.City,
		DateOfBirth:     dob,
		Description:     r.Description,
		Experience:      r.Experience,
		ExperienceAges:  r.ExperienceAges,
		HourlyRate:      r.HourlyRate,
		Skills:          r.Skills,
		ComfortableWith: r.ComfortableWith,
		ContactPhone:    r.ContactPhone,
		ContactEmail:    r.ContactEmail,
	}
}

// SitterHandler serves the sitter profile endpoints.
type SitterHandler struct {
	listingHandler[model.Sitter]
	sitters *service.SitterService
}

func NewSitterHandler(s *server.Server, sitters *service.SitterService) *SitterHandler {
	return &SitterHandler{
		listingHandler: listingHandler[model.Sitter]{
			Handler:    NewHandler(s),
			svc:        sitters,
			deletedMsg: "Sitter profile deleted",
		},
		sitters: sitters,
	}
}

// Save creates the caller's profile or updates the existing one.
func (h *SitterHandler) Save(c echo.Context, req *SaveSitterRequest) (*model.Sitter, error) {
	return h.sitters.Save(c.Request().Context(), req.toModel(middleware.GetUserID(c)))
}

func (h *SitterHandler) Routes() ListingRoutes {
	routes := h.listingHandler.Routes()
	routes.Save = Handle(h.Handler, h.Save, http.StatusOK, &SaveSitterRequest{})
	return routes
}
