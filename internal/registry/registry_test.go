package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/fuelhaul/internal/store"
	"github.com/kiranshivaraju/fuelhaul/internal/workflow"
	"github.com/kiranshivaraju/fuelhaul/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*models.Job
	gets   int
	getErr error
	putErr error
}

func newFakeStore(jobs ...*models.Job) *fakeStore {
	s := &fakeStore{jobs: make(map[uuid.UUID]*models.Job)}
	for _, j := range jobs {
		s.jobs[j.ID] = j.Clone()
	}
	return s
}

func (s *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return j.Clone(), nil
}

func (s *fakeStore) PutJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if _, ok := s.jobs[job.ID]; !ok {
		return store.ErrNotFound
	}
	job.Revision++
	s.jobs[job.ID] = job.Clone()
	return nil
}

type fakeCache struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*models.Job
	ttls    map[uuid.UUID]time.Duration
	getErr  error
	setErr  error
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{jobs: make(map[uuid.UUID]*models.Job), ttls: make(map[uuid.UUID]time.Duration)}
}

func (c *fakeCache) SetJobSnapshot(_ context.Context, job *models.Job, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.jobs[job.ID] = job.Clone()
	c.ttls[job.ID] = ttl
	return nil
}

func (c *fakeCache) GetJobSnapshot(_ context.Context, id uuid.UUID) (*models.Job, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	j, ok := c.jobs[id]
	if !ok {
		return nil, false, nil
	}
	return j.Clone(), true, nil
}

func (c *fakeCache) DeleteJobSnapshot(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	delete(c.jobs, id)
	return nil
}

type lookupSink struct {
	hits, misses int
}

func (s *lookupSink) ActionCommitted(string)         {}
func (s *lookupSink) ActionRejected(string, string)  {}
func (s *lookupSink) JobCompleted(time.Duration)    {}
func (s *lookupSink) SnapshotCacheLookup(hit bool) {
	if hit {
		s.hits++
		return
	}
	s.misses++
}

func testJob() *models.Job {
	return &models.Job{
		ID:          uuid.New(),
		TransportNo: "TR-9",
		Status:      models.JobStatusNotStarted,
		Stops:       []models.Stop{{ID: "S1", Status: models.StopStatusPending}},
	}
}

// --- tests ---

func TestRegistry_GetReadsThroughCache(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	sink := &lookupSink{}
	r := New(st, WithCache(c, 5*time.Minute), WithMetrics(sink))
	ctx := context.Background()

	got, err := r.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.TransportNo, got.TransportNo)
	assert.Equal(t, 1, st.gets)
	assert.Equal(t, 5*time.Minute, c.ttls[job.ID])

	_, err = r.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.gets, "second read should be served from cache")
	assert.Equal(t, 1, sink.hits)
	assert.Equal(t, 1, sink.misses)
}

func TestRegistry_GetNotFound(t *testing.T) {
	r := New(newFakeStore(), WithCache(newFakeCache(), time.Minute))
	_, err := r.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, workflow.ErrJobNotFound)
}

func TestRegistry_GetCacheErrorFallsBackToStore(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	c.getErr = errors.New("redis down")
	r := New(st, WithCache(c, time.Minute))

	got, err := r.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, 1, st.gets)
}

func TestRegistry_GetStoreError(t *testing.T) {
	st := newFakeStore()
	st.getErr = errors.New("connection refused")
	r := New(st)

	_, err := r.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.NotErrorIs(t, err, workflow.ErrJobNotFound)
}

func TestRegistry_PutWritesThrough(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	r := New(st, WithCache(c, time.Minute))
	ctx := context.Background()

	next := job.Clone()
	next.Status = models.JobStatusEnRoute
	require.NoError(t, r.Put(ctx, next))
	assert.Equal(t, int64(1), next.Revision)

	cached, found, err := c.GetJobSnapshot(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.JobStatusEnRoute, cached.Status)
	assert.Equal(t, int64(1), cached.Revision)
}

func TestRegistry_PutStoreFailureLeavesCacheUntouched(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	r := New(st, WithCache(c, time.Minute))
	ctx := context.Background()

	_, err := r.Get(ctx, job.ID)
	require.NoError(t, err)

	st.putErr = errors.New("disk full")
	next := job.Clone()
	next.Status = models.JobStatusEnRoute
	require.Error(t, r.Put(ctx, next))

	cached, found, err := c.GetJobSnapshot(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.JobStatusNotStarted, cached.Status)
}

func TestRegistry_PutCacheFailureEvicts(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	r := New(st, WithCache(c, time.Minute))
	ctx := context.Background()

	_, err := r.Get(ctx, job.ID)
	require.NoError(t, err)

	c.setErr = errors.New("redis down")
	next := job.Clone()
	next.Status = models.JobStatusEnRoute
	require.NoError(t, r.Put(ctx, next))
	assert.Equal(t, 1, c.deletes)

	c.setErr = nil
	got, err := r.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusEnRoute, got.Status)
}

func TestRegistry_PutUnknownJob(t *testing.T) {
	r := New(newFakeStore())
	err := r.Put(context.Background(), testJob())
	assert.ErrorIs(t, err, workflow.ErrJobNotFound)
}

func TestRegistry_WithController(t *testing.T) {
	job := testJob()
	st := newFakeStore(job)
	c := newFakeCache()
	r := New(st, WithCache(c, time.Minute))
	ctrl := workflow.NewController(r)

	got, err := ctrl.StartTrip(context.Background(), job.ID, workflow.StartTripInput{Odometer: "1200"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusEnRoute, got.Status)

	stored, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusEnRoute, stored.Status)
	require.NotNil(t, stored.StartTrip)
	assert.Equal(t, 1200.0, stored.StartTrip.Odometer)
}
