// Package service contains the business logic.
//
// It sits between the handler and repository layers: handlers pass in
// validated input, services geocode addresses, run list queries, guard the
// like rules and queue notification emails.
package service

import (
	"github.com/deppfellow/sitterbook/internal/geocoder"
	"github.com/deppfellow/sitterbook/internal/lib/job"
	"github.com/deppfellow/sitterbook/internal/repository"
	"github.com/deppfellow/sitterbook/internal/server"
)

type Services struct {
	Auth    *AuthService
	Jobs    *JobService
	Sitters *SitterService
	Tasks   *job.JobService
}

func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	authService := NewAuthService(s)

	var geo geocoder.Geocoder = geocoder.New(s.Config.Geocoder)
	if s.Config.Geocoder.CacheTTL > 0 && s.Redis != nil {
		geo = geocoder.NewCached(geo, s.Redis, s.Config.Geocoder.CacheTTL, s.Logger)
	}

	opts := ListingOptions{
		DefaultLimit:    s.Config.Pagination.DefaultLimit,
		MaxLimit:        s.Config.Pagination.MaxLimit,
		DefaultRadiusKm: s.Config.Pagination.DefaultRadiusKm,
		CountFiltered:   s.Config.Pagination.CountFiltered,
	}

	return &Services{
		Auth:    authService,
		Jobs:    NewJobService(repos.Jobs, geo, s.Job, opts),
		Sitters: NewSitterService(repos.Sitters, geo, s.Job, opts),
		Tasks:   s.Job,
	}, nil
}
