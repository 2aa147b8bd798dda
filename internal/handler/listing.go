package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/sitterbook/internal/middleware"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/deppfellow/sitterbook/internal/validation"
	"github.com/labstack/echo/v4"
)

// ListRequest carries no fields: list parameters are read raw from the
// query string by the query translator.
type ListRequest struct{}

func (r *ListRequest) Validate() error {
	return nil
}

// OwnRequest addresses the caller's own listing.
type OwnRequest struct{}

func (r *OwnRequest) Validate() error {
	return nil
}

type UserRequest struct {
	UserID string `param:"user_id" validate:"required"`
}

func (r *UserRequest) Validate() error {
	return validation.Validate(r)
}

type IDRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *IDRequest) Validate() error {
	return validation.Validate(r)
}

// PageLink points at a neighbouring page.
type PageLink struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Next *PageLink `json:"next,omitempty"`
	Prev *PageLink `json:"prev,omitempty"`
}

// ListResponse is the envelope of every list endpoint.
type ListResponse struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Pagination Pagination       `json:"pagination"`
	Data       []query.Document `json:"data"`
}

func newListResponse(result *query.PageResult) *ListResponse {
	resp := &ListResponse{
		Success: true,
		Count:   len(result.Items),
		Data:    result.Items,
	}
	if result.NextPage != nil {
		resp.Pagination.Next = &PageLink{Page: *result.NextPage, Limit: result.Limit}
	}
	if result.PrevPage != nil {
		resp.Pagination.Prev = &PageLink{Page: *result.PrevPage, Limit: result.Limit}
	}
	return resp
}

type MessageResponse struct {
	Message string `json:"msg"`
}

// listingService is what listingHandler needs from the job and sitter
// services.
type listingService[T any] interface {
	List(ctx context.Context, raw query.RawParameters) (*query.PageResult, error)
	Mine(ctx context.Context, userID string) (*T, error)
	ByUser(ctx context.Context, userID string) (*T, error)
	Delete(ctx context.Context, userID string) error
	Like(ctx context.Context, id, userID string) ([]model.Like, error)
	Unlike(ctx context.Context, id, userID string) ([]model.Like, error)
}

// listingHandler serves the endpoints jobs and sitter profiles share.
type listingHandler[T any] struct {
	Handler
	svc        listingService[T]
	deletedMsg string
}

func (h *listingHandler[T]) List(c echo.Context, _ *ListRequest) (*ListResponse, error) {
	result, err := h.svc.List(c.Request().Context(), query.FromValues(c.QueryParams()))
	if err != nil {
		return nil, err
	}
	return newListResponse(result), nil
}

func (h *listingHandler[T]) Mine(c echo.Context, _ *OwnRequest) (*T, error) {
	return h.svc.Mine(c.Request().Context(), middleware.GetUserID(c))
}

func (h *listingHandler[T]) ByUser(c echo.Context, req *UserRequest) (*T, error) {
	return h.svc.ByUser(c.Request().Context(), req.UserID)
}

func (h *listingHandler[T]) Delete(c echo.Context, _ *OwnRequest) (*MessageResponse, error) {
	if err := h.svc.Delete(c.Request().Context(), middleware.GetUserID(c)); err != nil {
		return nil, err
	}
	return &MessageResponse{Message: h.deletedMsg}, nil
}

func (h *listingHandler[T]) Like(c echo.Context, req *IDRequest) ([]model.Like, error) {
	return h.svc.Like(c.Request().Context(), req.ID, middleware.GetUserID(c))
}

func (h *listingHandler[T]) Unlike(c echo.Context, req *IDRequest) ([]model.Like, error) {
	return h.svc.Unlike(c.Request().Context(), req.ID, middleware.GetUserID(c))
}

// Routes returns the shared endpoints for the router to mount with its own
// access rules. Save is filled in by the resource handler.
func (h *listingHandler[T]) Routes() ListingRoutes {
	return ListingRoutes{
		List:   Handle(h.Handler, h.List, http.StatusOK, &ListRequest{}),
		Mine:   Handle(h.Handler, h.Mine, http.StatusOK, &OwnRequest{}),
		ByUser: Handle(h.Handler, h.ByUser, http.StatusOK, &UserRequest{}),
		Delete: Handle(h.Handler, h.Delete, http.StatusOK, &OwnRequest{}),
		Like:   Handle(h.Handler, h.Like, http.StatusOK, &IDRequest{}),
		Unlike: Handle(h.Handler, h.Unlike, http.StatusOK, &IDRequest{}),
	}
}

// ListingRoutes are the ready-to-mount endpoints of one listing resource.
type ListingRoutes struct {
	List   echo.HandlerFunc
	Mine   echo.HandlerFunc
	ByUser echo.HandlerFunc
	Save   echo.HandlerFunc
	Delete echo.HandlerFunc
	Like   echo.HandlerFunc
	Unlike echo.HandlerFunc
}
