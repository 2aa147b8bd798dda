package service

import (
	"context"
	"strings"

	"github.com/deppfellow/sitterbook/internal/errs"
	"github.com/deppfellow/sitterbook/internal/lib/job"
	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/deppfellow/sitterbook/internal/query"
	"github.com/rs/zerolog"
)

// Store is the storage a listing service needs. The repository package
// implements it for jobs and sitters.
type Store[T any] interface {
	query.Repository
	Fields() query.FieldSet
	FindByUser(ctx context.Context, userID string) (*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	DeleteByUser(ctx context.Context, userID string) error
	Like(ctx context.Context, id, userID string) (bool, error)
	Unlike(ctx context.Context, id, userID string) (bool, error)
	Upsert(ctx context.Context, record *T) (*T, error)
}

// LikeNotifier queues the email sent to a listing's owner on a new like.
type LikeNotifier interface {
	EnqueueLikeNotification(ctx context.Context, p job.LikeNotificationPayload) error
}

// ListingOptions tunes the list endpoint of a listing service.
type ListingOptions struct {
	DefaultLimit    int
	MaxLimit        int
	DefaultRadiusKm float64
	CountFiltered   bool
}

// listing implements the operations jobs and sitter profiles share.
// T is the record model.
type listing[T any] struct {
	store      Store[T]
	translator *query.Translator
	notifier   LikeNotifier

	// noun names the listing in messages and emails, e.g. "babysitting job".
	noun  string
	owner func(*T) ownerInfo
}

type ownerInfo struct {
	id    string
	user  string
	email string
	likes []model.Like
}

func newListing[T any](store Store[T], geocoder query.Geocoder, notifier LikeNotifier, opts ListingOptions, noun string, owner func(*T) ownerInfo) listing[T] {
	return listing[T]{
		store: store,
		translator: query.NewTranslator(query.Options{
			Geocoder:        geocoder,
			Fields:          store.Fields(),
			DefaultLimit:    opts.DefaultLimit,
			MaxLimit:        opts.MaxLimit,
			DefaultRadiusKm: opts.DefaultRadiusKm,
			CountFiltered:   opts.CountFiltered,
		}),
		notifier: notifier,
		noun:     noun,
		owner:    owner,
	}
}

// List runs the filter, select, sort, pagination and radius parameters
// of a list request.
func (l *listing[T]) List(ctx context.Context, raw query.RawParameters) (*query.PageResult, error) {
	plan, err := l.translator.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	return l.translator.Execute(ctx, plan, l.store)
}

// Mine returns the caller's own listing.
func (l *listing[T]) Mine(ctx context.Context, userID string) (*T, error) {
	return l.store.FindByUser(ctx, userID)
}

// ByUser returns the listing owned by userID.
func (l *listing[T]) ByUser(ctx context.Context, userID string) (*T, error) {
	return l.store.FindByUser(ctx, userID)
}

// Delete removes the caller's listing and its likes.
func (l *listing[T]) Delete(ctx context.Context, userID string) error {
	return l.store.DeleteByUser(ctx, userID)
}

// Like adds userID's like to the listing id and queues an email to its
// owner. Liking twice is rejected. It returns the listing's likes.
func (l *listing[T]) Like(ctx context.Context, id, userID string) ([]model.Like, error) {
	if _, err := l.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	added, err := l.store.Like(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		code := "ALREADY_LIKED"
		return nil, errs.NewBadRequestError(capitalize(l.noun)+" already liked", true, &code, nil, nil)
	}

	record, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := l.owner(record)

	if info.user != userID && info.email != "" {
		l.notify(ctx, info, userID)
	}

	return info.likes, nil
}

// notify queues the like email. A queue failure does not undo the like.
func (l *listing[T]) notify(ctx context.Context, info ownerInfo, likedBy string) {
	err := l.notifier.EnqueueLikeNotification(ctx, job.LikeNotificationPayload{
		To:        info.email,
		Listing:   l.noun,
		ListingID: info.id,
		LikedBy:   likedBy,
		LikeCount: len(info.likes),
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("listing_id", info.id).
			Msg("failed to enqueue like notification")
	}
}

// Unlike removes userID's like from the listing id. It is rejected when the
// user has not liked it. It returns the remaining likes.
func (l *listing[T]) Unlike(ctx context.Context, id, userID string) ([]model.Like, error) {
	if _, err := l.store.FindByID(ctx, id); err != nil {
		return nil, err
	}

	removed, err := l.store.Unlike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !removed {
		code := "NOT_LIKED"
		return nil, errs.NewBadRequestError(capitalize(l.noun)+" has not yet been liked", true, &code, nil, nil)
	}

	record, err := l.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return l.owner(record).likes, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
