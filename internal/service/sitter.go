package service

import (
	"context"

	"github.com/deppfellow/sitterbook/internal/geocoder"
	"github.com/deppfellow/sitterbook/internal/model"
)

// SitterService manages sitter profiles.
type SitterService struct {
	listing[model.Sitter]
	geocoder geocoder.Geocoder
}

func NewSitterService(store Store[model.Sitter], geo geocoder.Geocoder, notifier LikeNotifier, opts ListingOptions) *SitterService {
	return &SitterService{
		listing: newListing(store, geo, notifier, opts, "sitter profile", func(s *model.Sitter) ownerInfo {
			return ownerInfo{
				id:    s.ID.String(),
				user:  s.User,
				email: s.ContactEmail,
				likes: s.Likes,
			}
		}),
		geocoder: geo,
	}
}

// Save creates the sitter's profile or updates the existing one. The
// profile's city is geocoded into its location.
func (s *SitterService) Save(ctx context.Context, sitter *model.Sitter) (*model.Sitter, error) {
	loc, err := s.geocoder.Geocode(ctx, sitter.City)
	if err != nil {
		return nil, err
	}
	sitter.Location = loc

	return s.store.Upsert(ctx, sitter)
}
