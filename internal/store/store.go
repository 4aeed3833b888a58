package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultDepot(ctx context.Context) (*models.Depot, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, depotID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, depotID uuid.UUID) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	PutJob(ctx context.Context, job *models.Job) error
	ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, int, error)
}

// JobFilter narrows ListJobs. Zero values mean no filter.
type JobFilter struct {
	DepotID     uuid.UUID
	Status      models.JobStatus
	TransportNo string
	Page        int
	Limit       int
}
