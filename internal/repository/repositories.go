// Package repository handles all interactions with the database.
//
// It contains the SQL for the job and sitter resources. List queries arrive
// as query.FindParams and are rendered into parameterised SQL here, so the
// service layer never sees a statement.
package repository

import (
	"github.com/deppfellow/sitterbook/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Jobs    *JobRepository
	Sitters *SitterRepository
}

// NewRepositories builds every repository on the server's shared pool.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Jobs:    newJobRepository(s.DB.Pool),
		Sitters: newSitterRepository(s.DB.Pool),
	}
}
