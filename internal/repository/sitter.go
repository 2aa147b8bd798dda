package repository

import (
	"context"

	"github.com/deppfellow/sitterbook/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SitterRepository stores sitter profiles.
type SitterRepository struct {
	*resource[model.Sitter]
}

var sitterColumns = map[string]column{
	"id":                           {expr: "id", kind: kindUUID},
	"user":                         {expr: "user_id", kind: kindText},
	"city":                         {expr: "city", kind: kindText},
	"dateOfBirth":                  {expr: "date_of_birth", kind: kindTime},
	"description":                  {expr: "description", kind: kindText},
	"experience":                   {expr: "experience", kind: kindText},
	"experienceAges":               {kind: kindDocument},
	"experienceAges.baby":          {expr: "experience_baby", kind: kindBool},
	"experienceAges.toddler":       {expr: "experience_toddler", kind: kindBool},
	"experienceAges.preschooler":   {expr: "experience_preschooler", kind: kindBool},
	"experienceAges.gradeschooler": {expr: "experience_gradeschooler", kind: kindBool},
	"experienceAges.teenager":      {expr: "experience_teenager", kind: kindBool},
	"hourlyRate":                   {expr: "hourly_rate", kind: kindNumeric},
	"skills":                       {kind: kindDocument},
	"skills.crafting":              {expr: "skill_crafting", kind: kindBool},
	"skills.drawing":               {expr: "skill_drawing", kind: kindBool},
	"skills.reading":               {expr: "skill_reading", kind: kindBool},
	"skills.music":                 {expr: "skill_music", kind: kindBool},
	"skills.language":              {expr: "skill_language", kind: kindBool},
	"skills.games":                 {expr: "skill_games", kind: kindBool},
	"comfortableWith":              {kind: kindDocument},
	"comfortableWith.pets":         {expr: "comfortable_pets", kind: kindBool},
	"comfortableWith.cooking":      {expr: "comfortable_cooking", kind: kindBool},
	"comfortableWith.chores":       {expr: "comfortable_chores", kind: kindBool},
	"contactPhone":                 {expr: "contact_phone", kind: kindText},
	"contactEmail":                 {expr: "contact_email", kind: kindText},
	"location":                     {kind: kindDocument},
	"location.city":                {expr: "location_city", kind: kindText},
	"location.state":               {expr: "location_state", kind: kindText},
	"location.country":             {expr: "location_country", kind: kindText},
	"location.street":              {expr: "location_street", kind: kindText},
	"location.zipcode":             {expr: "location_zipcode", kind: kindText},
	"location.formattedAddress":    {expr: "location_formatted_address", kind: kindText},
	"likes":                        {kind: kindDocument},
	"date":                         {expr: "created_at", kind: kindTime},
	"createdAt":                    {expr: "created_at", kind: kindTime},
}

const sitterSelect = `id, user_id, city, date_of_birth, description, experience,
	experience_baby, experience_toddler, experience_preschooler, experience_gradeschooler, experience_teenager,
	hourly_rate, skill_crafting, skill_drawing, skill_reading, skill_music, skill_language, skill_games,
	comfortable_pets, comfortable_cooking, comfortable_chores, contact_phone, contact_email,
	location_lon, location_lat, location_formatted_address, location_street, location_city,
	location_state, location_zipcode, location_country, created_at, `

func newSitterRepository(pool *pgxpool.Pool) *SitterRepository {
	return &SitterRepository{
		resource: &resource[model.Sitter]{
			pool:       pool,
			table:      "sitters",
			likeTable:  "sitter_likes",
			likeKey:    "sitter_id",
			columns:    sitterColumns,
			selectList: sitterSelect + likesSubquery("sitter_likes", "sitter_id", "sitters"),
			scan:       scanSitter,
		},
	}
}

func scanSitter(row pgx.Row) (model.Sitter, error) {
	var (
		s       model.Sitter
		loc     locationRow
		likedBy []string
	)

	err := row.Scan(
		&s.ID, &s.User, &s.City, &s.DateOfBirth, &s.Description, &s.Experience,
		&s.ExperienceAges.Baby, &s.ExperienceAges.Toddler, &s.ExperienceAges.Preschooler,
		&s.ExperienceAges.Gradeschooler, &s.ExperienceAges.Teenager,
		&s.HourlyRate, &s.Skills.Crafting, &s.Skills.Drawing, &s.Skills.Reading,
		&s.Skills.Music, &s.Skills.Language, &s.Skills.Games,
		&s.ComfortableWith.Pets, &s.ComfortableWith.Cooking, &s.ComfortableWith.Chores,
		&s.ContactPhone, &s.ContactEmail,
		&loc.lon, &loc.lat, &loc.formattedAddress, &loc.street, &loc.city,
		&loc.state, &loc.zipcode, &loc.country, &s.Date, &likedBy,
	)
	if err != nil {
		return model.Sitter{}, err
	}

	s.Location = loc.toModel()
	s.Likes = model.LikesFromUsers(likedBy)

	return s, nil
}

// Upsert creates the caller's profile or replaces the fields of the existing
// one. Likes and the creation date survive an update.
func (r *SitterRepository) Upsert(ctx context.Context, sitter *model.Sitter) (*model.Sitter, error) {
	sql := `
		INSERT INTO sitters (
			user_id, city, date_of_birth, description, experience,
			experience_baby, experience_toddler, experience_preschooler, experience_gradeschooler, experience_teenager,
			hourly_rate, skill_crafting, skill_drawing, skill_reading, skill_music, skill_language, skill_games,
			comfortable_pets, comfortable_cooking, comfortable_chores, contact_phone, contact_email,
			location_lon, location_lat, location_formatted_address, location_street, location_city,
			location_state, location_zipcode, location_country
		) VALUES (
			@user_id, @city, @date_of_birth, @description, @experience,
			@experience_baby, @experience_toddler, @experience_preschooler, @experience_gradeschooler, @experience_teenager,
			@hourly_rate, @skill_crafting, @skill_drawing, @skill_reading, @skill_music, @skill_language, @skill_games,
			@comfortable_pets, @comfortable_cooking, @comfortable_chores, @contact_phone, @contact_email,
			@location_lon, @location_lat, @location_formatted_address, @location_street, @location_city,
			@location_state, @location_zipcode, @location_country
		)
		ON CONFLICT (user_id) DO UPDATE SET
			city = EXCLUDED.city,
			date_of_birth = EXCLUDED.date_of_birth,
			description = EXCLUDED.description,
			experience = EXCLUDED.experience,
			experience_baby = EXCLUDED.experience_baby,
			experience_toddler = EXCLUDED.experience_toddler,
			experience_preschooler = EXCLUDED.experience_preschooler,
			experience_gradeschooler = EXCLUDED.experience_gradeschooler,
			experience_teenager = EXCLUDED.experience_teenager,
			hourly_rate = EXCLUDED.hourly_rate,
			skill_crafting = EXCLUDED.skill_crafting,
			skill_drawing = EXCLUDED.skill_drawing,
			skill_reading = EXCLUDED.skill_reading,
			skill_music = EXCLUDED.skill_music,
			skill_language = EXCLUDED.skill_language,
			skill_games = EXCLUDED.skill_games,
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

	args := pgx.NamedArgs{
		"user_id":                  sitter.User,
		"city":                     sitter.City,
		"date_of_birth":            dateOnly(sitter.DateOfBirth),
		"description":              sitter.Description,
		"experience":               sitter.Experience,
		"experience_baby":          sitter.ExperienceAges.Baby,
		"experience_toddler":       sitter.ExperienceAges.Toddler,
		"experience_preschooler":   sitter.ExperienceAges.Preschooler,
		"experience_gradeschooler": sitter.ExperienceAges.Gradeschooler,
		"experience_teenager":      sitter.ExperienceAges.Teenager,
		"hourly_rate":              sitter.HourlyRate,
		"skill_crafting":           sitter.Skills.Crafting,
		"skill_drawing":            sitter.Skills.Drawing,
		"skill_reading":            sitter.Skills.Reading,
		"skill_music":              sitter.Skills.Music,
		"skill_language":           sitter.Skills.Language,
		"skill_games":              sitter.Skills.Games,
		"comfortable_pets":         sitter.ComfortableWith.Pets,
		"comfortable_cooking":      sitter.ComfortableWith.Cooking,
		"comfortable_chores":       sitter.ComfortableWith.Chores,
		"contact_phone":            sitter.ContactPhone,
		"contact_email":            sitter.ContactEmail,
	}
	locationFromModel(sitter.Location).bind(args)

	var id string
	if err := r.pool.QueryRow(ctx, sql, args).Scan(&id); err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}
