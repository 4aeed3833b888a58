// Package registry is the job store the workflow controller reads and writes
// through. Postgres holds the authoritative snapshot; Redis keeps a read-through
// copy that is refreshed after every successful write.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/internal/cache"
	"github.com/kiranshivaraju/fuelhaul/internal/metrics"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/internal/workflow"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
)

// JobStore is the subset of store.Store the registry needs.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	PutJob(ctx context.Context, job *models.Job) error
}

// SnapshotCache is the subset of cache.Cache the registry needs.
type SnapshotCache interface {
	SetJobSnapshot(ctx context.Context, job *models.Job, ttl time.Duration) error
	GetJobSnapshot(ctx context.Context, jobID uuid.UUID) (*models.Job, bool, error)
	DeleteJobSnapshot(ctx context.Context, jobID uuid.UUID) error
}

var (
	_ JobStore          = (store.Store)(nil)
	_ SnapshotCache     = (cache.Cache)(nil)
	_ workflow.Registry = (*Registry)(nil)
)

// Registry implements workflow.Registry over a Postgres store and a Redis cache.
// Cache failures are logged and never fail a request.
type Registry struct {
	store   JobStore
	cache   SnapshotCache
	ttl     time.Duration
	metrics metrics.Sink
}

// Option configures a Registry.
type Option func(*Registry)

// WithCache enables the snapshot cache with the given TTL.
func WithCache(c SnapshotCache, ttl time.Duration) Option {
	return func(r *Registry) {
		r.cache = c
		r.ttl = ttl
	}
}

// WithMetrics sets the sink for cache hit and miss counts.
func WithMetrics(s metrics.Sink) Option {
	return func(r *Registry) { r.metrics = s }
}

// New creates a Registry. Without WithCache every Get goes to the store.
func New(s JobStore, opts ...Option) *Registry {
	r := &Registry{store: s, metrics: metrics.NewNoopSink()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the latest snapshot of a job. Cached copies are tried first.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if r.cache != nil {
		job, found, err := r.cache.GetJobSnapshot(ctx, id)
		switch {
		case err != nil:
			slog.Warn("snapshot cache read failed", "job_id", id, "error", err)
		case found:
			r.metrics.SnapshotCacheLookup(true)
			return job, nil
		}
		r.metrics.SnapshotCacheLookup(false)
	}

	job, err := r.store.GetJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, workflow.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	r.fill(ctx, job)
	return job, nil
}

// Put persists the snapshot in Postgres, then refreshes the cached copy.
// A failed refresh evicts the key so the next Get falls back to Postgres.
func (r *Registry) Put(ctx context.Context, job *models.Job) error {
	if err := r.store.PutJob(ctx, job); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return workflow.ErrJobNotFound
		}
		return err
	}
	if r.cache == nil {
		return nil
	}
	if err := r.cache.SetJobSnapshot(ctx, job, r.ttl); err != nil {
		slog.Warn("snapshot cache write failed", "job_id", job.ID, "error", err)
		if err := r.cache.DeleteJobSnapshot(ctx, job.ID); err != nil {
			slog.Warn("snapshot cache evict failed", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

func (r *Registry) fill(ctx context.Context, job *models.Job) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetJobSnapshot(ctx, job, r.ttl); err != nil {
		slog.Warn("snapshot cache fill failed", "job_id", job.ID, "error", err)
	}
}
