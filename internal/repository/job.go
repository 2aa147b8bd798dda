package repository

import (
	"context"
	"time"

	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository stores jobs posted by parents.
type JobRepository struct {
	*resource[model.Job]
}

var jobColumns = map[string]column{
	"id":                        {expr: "id", kind: kindUUID},
	"user":                      {expr: "user_id", kind: kindText},
	"description":               {expr: "description", kind: kindText},
	"numberOfChildren":          {expr: "number_of_children", kind: kindInteger},
	"ageOfChildren":             {expr: "age_of_children", kind: kindIntArray},
	"hourlyRate":                {expr: "hourly_rate", kind: kindNumeric},
	"comfortableWith":           {kind: kindDocument},
	"comfortableWith.pets":      {expr: "comfortable_pets", kind: kindBool},
	"comfortableWith.cooking":   {expr: "comfortable_cooking", kind: kindBool},
	"comfortableWith.chores":    {expr: "comfortable_chores", kind: kindBool},
	"contactPhone":              {expr: "contact_phone", kind: kindText},
	"contactEmail":              {expr: "contact_email", kind: kindText},
	"location":                  {kind: kindDocument},
	"location.city":             {expr: "location_city", kind: kindText},
	"location.state":            {expr: "location_state", kind: kindText},
	"location.country":          {expr: "location_country", kind: kindText},
	"location.street":           {expr: "location_street", kind: kindText},
	"location.zipcode":          {expr: "location_zipcode", kind: kindText},
	"location.formattedAddress": {expr: "location_formatted_address", kind: kindText},
	"likes":                     {kind: kindDocument},
	"date":                      {expr: "created_at", kind: kindTime},
	"createdAt":                 {expr: "created_at", kind: kindTime},
}

const jobSelect = `id, user_id, description, number_of_children, age_of_children, hourly_rate,
	comfortable_pets, comfortable_cooking, comfortable_chores, contact_phone, contact_email,
	location_lon, location_lat, location_formatted_address, location_street, location_city,
	location_state, location_zipcode, location_country, created_at, `

func newJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{
		resource: &resource[model.Job]{
			pool:       pool,
			table:      "jobs",
			likeTable:  "job_likes",
			likeKey:    "job_id",
			columns:    jobColumns,
			selectList: jobSelect + likesSubquery("job_likes", "job_id", "jobs"),
			scan:       scanJob,
		},
	}
}

func scanJob(row pgx.Row) (model.Job, error) {
	var (
		job     model.Job
		ages    []int32
		loc     locationRow
		likedBy []string
	)

	err := row.Scan(
		&job.ID, &job.User, &job.Description, &job.NumberOfChildren, &ages, &job.HourlyRate,
		&job.ComfortableWith.Pets, &job.ComfortableWith.Cooking, &job.ComfortableWith.Chores,
		&job.ContactPhone, &job.ContactEmail,
		&loc.lon, &loc.lat, &loc.formattedAddress, &loc.street, &loc.city,
		&loc.state, &loc.zipcode, &loc.country, &job.Date, &likedBy,
	)
	if err != nil {
		return model.Job{}, err
	}

	job.AgeOfChildren = make([]int, len(ages))
	for i, a := range ages {
		job.AgeOfChildren[i] = int(a)
	}
	job.Location = loc.toModel()
	job.Likes = model.LikesFromUsers(likedBy)

	return job, nil
}

// Upsert creates the caller's job or replaces the fields of the existing one.
// Likes and the creation date survive an update.
func (r *JobRepository) Upsert(ctx context.Context, job *model.Job) (*model.Job, error) {
	sql := `
		INSERT INTO jobs (
			user_id, description, number_of_children, age_of_children, hourly_rate,
			comfortable_pets, comfortable_cooking, comfortable_chores, contact_phone, contact_email,
			location_lon, location_lat, location_formatted_address, location_street, location_city,
			location_state, location_zipcode, location_country
		) VALUES (
			@user_id, @description, @number_of_children, @age_of_children, @hourly_rate,
			@comfortable_pets, @comfortable_cooking, @comfortable_chores, @contact_phone, @contact_email,
			@location_lon, @location_lat, @location_formatted_address, @location_street, @location_city,
			@location_state, @location_zipcode, @location_country
		)
		ON CONFLICT (user_id) DO UPDATE SET
			description = EXCLUDED.description,
			number_of_children = EXCLUDED.number_of_children,
			age_of_children = EXCLUDED.age_of_children,
			hourly_rate = EXCLUDED.hourly_rate,
			comfortable_pets = EXCLUDED.comfortable_pets,
			comfortable_cooking = EXCLUDED.comfortable_cooking,
			comfortable_chores = EXCLUDED.comfortable_chores,
			contact_phone = EXCLUDED.contact_phone,
			contact_email = EXCLUDED.contact_email,
			location_lon = EXCLUDED.location_lon,
			location_lat = EXCLUDED.location_lat,
			location_formatted_address = EXCLUDED.location_formatted_address,
			location_street = EXCLUDED.location_street,
			location_city = EXCLUDED.location_city,
			location_state = EXCLUDED.location_state,
			location_zipcode = EXCLUDED.location_zipcode,
			location_country = EXCLUDED.location_country,
			updated_at = now()
		RETURNING id`

	ages := make([]int32, len(job.AgeOfChildren))
	for i, a := range job.AgeOfChildren {
		ages[i] = int32(a)
	}

	args := pgx.NamedArgs{
		"user_id":             job.User,
		"description":         job.Description,
		"number_of_children":  job.NumberOfChildren,
		"age_of_children":     ages,
		"hourly_rate":         job.HourlyRate,
		"comfortable_pets":    job.ComfortableWith.Pets,
		"comfortable_cooking": job.ComfortableWith.Cooking,
		"comfortable_chores":  job.ComfortableWith.Chores,
		"contact_phone":       job.ContactPhone,
		"contact_email":       job.ContactEmail,
	}
	locationFromModel(job.Location).bind(args)

	var id string
	if err := r.pool.QueryRow(ctx, sql, args).Scan(&id); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

// locationRow is the flattened location stored on jobs and sitters.
type locationRow struct {
	lon, lat         *float64
	formattedAddress *string
	street           *string
	city             *string
	state            *string
	zipcode          *string
	country          *string
}

func (l locationRow) toModel() *model.Location {
	if l.lon == nil || l.lat == nil {
		return nil
	}
	return &model.Location{
		Type:             model.PointType,
		Coordinates:      []float64{*l.lon, *l.lat},
		FormattedAddress: deref(l.formattedAddress),
		Street:           deref(l.street),
		City:             deref(l.city),
		State:            deref(l.state),
		Zipcode:          deref(l.zipcode),
		Country:          deref(l.country),
	}
}

func locationFromModel(loc *model.Location) locationRow {
	if loc == nil || len(loc.Coordinates) < 2 {
		return locationRow{}
	}
	lon, lat := loc.Longitude(), loc.Latitude()
	return locationRow{
		lon:              &lon,
		lat:              &lat,
		formattedAddress: nullable(loc.FormattedAddress),
		street:           nullable(loc.Street),
		city:             nullable(loc.City),
		state:            nullable(loc.State),
		zipcode:          nullable(loc.Zipcode),
		country:          nullable(loc.Country),
	}
}

func (l locationRow) bind(args pgx.NamedArgs) {
	args["location_lon"] = l.lon
	args["location_lat"] = l.lat
	args["location_formatted_address"] = l.formattedAddress
	args["location_street"] = l.street
	args["location_city"] = l.city
	args["location_state"] = l.state
	args["location_zipcode"] = l.zipcode
	args["location_country"] = l.country
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// dateOnly truncates t to midnight UTC for date columns.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
