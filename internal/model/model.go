// Package model holds the marketplace records: babysitting jobs posted by
// parents and profiles posted by sitters.
//
// JSON tags define the document shape returned by the list endpoints and the
// field names accepted by filters, sort and select.
package model

import (
	"time"

	"github.com/google/uuid"
)

// PointType is the GeoJSON type of every stored location.
const PointType = "Point"

// Location is a geocoded GeoJSON point with its address components.
// Coordinates are [longitude, latitude].
type Location struct {
	Type             string    `json:"type"`
	Coordinates      []float64 `json:"coordinates"`
	FormattedAddress string    `json:"formattedAddress,omitempty"`
	Street           string    `json:"street,omitempty"`
	City             string    `json:"city,omitempty"`
	State            string    `json:"state,omitempty"`
	Zipcode          string    `json:"zipcode,omitempty"`
	Country          string    `json:"country,omitempty"`
}

// Longitude returns the first coordinate, or 0 for an empty location.
func (l Location) Longitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[0]
}

// Latitude returns the second coordinate, or 0 for an empty location.
func (l Location) Latitude() float64 {
	if len(l.Coordinates) < 2 {
		return 0
	}
	return l.Coordinates[1]
}

// ComfortableWith lists household extras a job asks for or a sitter accepts.
type ComfortableWith struct {
	Pets    bool `json:"pets"`
	Cooking bool `json:"cooking"`
	Chores  bool `json:"chores"`
}

// Like records that a user liked a job or sitter profile.
type Like struct {
	User string `json:"user"`
}

// Job is a babysitting job posted by a parent. A parent owns at most one job.
type Job struct {
	ID               uuid.UUID       `json:"id"`
	User             string          `json:"user"`
	Location         *Location       `json:"location,omitempty"`
	Description      string          `json:"description"`
	NumberOfChildren int             `json:"numberOfChildren"`
	AgeOfChildren    []int           `json:"ageOfChildren"`
	HourlyRate       float64         `json:"hourlyRate"`
	ComfortableWith  ComfortableWith `json:"comfortableWith"`
	ContactPhone     string          `json:"contactPhone"`
	ContactEmail     string          `json:"contactEmail"`
	Likes            []Like          `json:"likes"`
	Date             time.Time       `json:"date"`
}

// ExperienceAges lists the age groups a sitter has cared for.
type ExperienceAges struct {
	Baby          bool `json:"baby"`
	Toddler       bool `json:"toddler"`
	Preschooler   bool `json:"preschooler"`
	Gradeschooler bool `json:"gradeschooler"`
	Teenager      bool `json:"teenager"`
}

// Skills lists activities a sitter offers.
type Skills struct {
	Crafting bool `json:"crafting"`
	Drawing  bool `json:"drawing"`
	Reading  bool `json:"reading"`
	Music    bool `json:"music"`
	Language bool `json:"language"`
	Games    bool `json:"games"`
}

// Sitter is a sitter's public profile. A sitter owns at most one profile.
type Sitter struct {
	ID              uuid.UUID       `json:"id"`
	User            string          `json:"user"`
	City            string          `json:"city"`
	Location        *Location       `json:"location,omitempty"`
	DateOfBirth     time.Time       `json:"dateOfBirth"`
	Description     string          `json:"description"`
	Experience      string          `json:"experience"`
	ExperienceAges  ExperienceAges  `json:"experienceAges"`
	HourlyRate      float64         `json:"hourlyRate"`
	Skills          Skills          `json:"skills"`
	ComfortableWith ComfortableWith `json:"comfortableWith"`
	ContactPhone    string          `json:"contactPhone"`
	ContactEmail    string          `json:"contactEmail"`
	Likes           []Like          `json:"likes"`
	Date            time.Time       `json:"date"`
}

// LikesFromUsers builds the likes list from user ids, most recent first.
func LikesFromUsers(users []string) []Like {
	likes := make([]Like, 0, len(users))
	for _, u := range users {
		likes = append(likes, Like{User: u})
	}
	return likes
}
