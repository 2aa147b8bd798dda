package service

import (
	"context"

	"github.com/deppfellow/sitterbook/internal/geocoder"
	"github.com/deppfellow/sitterbook/internal/model"
)

// JobService manages the babysitting jobs parents post.
type JobService struct {
	listing[model.Job]
	geocoder geocoder.Geocoder
}

func NewJobService(store Store[model.Job], geo geocoder.Geocoder, notifier LikeNotifier, opts ListingOptions) *JobService {
	return &JobService{
		listing: newListing(store, geo, notifier, opts, "babysitting job", func(j *model.Job) ownerInfo {
			return ownerInfo{
				id:    j.ID.String(),
				user:  j.User,
				email: j.ContactEmail,
				likes: j.Likes,
			}
		}),
		geocoder: geo,
	}
}

// Save creates the parent's job or updates the one they already have.
// address is geocoded into the job's location.
func (s *JobService) Save(ctx context.Context, job *model.Job, address string) (*model.Job, error) {
	loc, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}
	job.Location = loc

	return s.store.Upsert(ctx, job)
}
