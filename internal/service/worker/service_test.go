package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopple/internal/domain"
)

// memoryQueue is a FIFO QueueRepository
type memoryQueue struct {
	domain.QueueRepository
	pending   []*domain.QueueJob
	completed []string
	failed    map[string]string
	retried   int
	seq       int
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{failed: map[string]string{}}
}

func (q *memoryQueue) Enqueue(_ context.Context, jobType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	q.seq++
	q.pending = append(q.pending, &domain.QueueJob{ID: "job-" + strconv.Itoa(q.seq), Type: jobType, Payload: fields})
	return nil
}

func (q *memoryQueue) Dequeue(context.Context, string) (*domain.QueueJob, error) {
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, nil
}

func (q *memoryQueue) Complete(_ context.Context, jobID string) error {
	q.completed = append(q.completed, jobID)
	return nil
}

func (q *memoryQueue) Fail(_ context.Context, jobID string, msg string) error {
	q.failed[jobID] = msg
	return nil
}

func (q *memoryQueue) GetPendingCount(context.Context, string) (int, error) {
	return len(q.pending), nil
}

func (q *memoryQueue) ProcessRetryJobs(context.Context, string) error {
	q.retried++
	return nil
}

func TestWorkerService_RunOnce(t *testing.T) {
	product := &domain.Product{ID: uuid.New(), Title: "Tablet"}
	products := newRefreshProducts(product)
	refresher, transport := newTestRefresher(t, products, nil)
	transport.RegisterResponder(http.MethodGet, "https://shopee.ph/ipad-i.1.2", htmlResponder(t, shopeePage))
	transport.RegisterResponder(http.MethodGet, "https://shopee.ph/gone-i.9.9", httpmock.NewStringResponder(http.StatusGone, ""))

	queue := newMemoryQueue()
	ctx := context.Background()
	require.NoError(t, queue.Enqueue(ctx, domain.JobTypeRefreshProduct, domain.RefreshPayload{ProductID: product.ID.String(), URL: "https://shopee.ph/ipad-i.1.2"}))
	require.NoError(t, queue.Enqueue(ctx, domain.JobTypeRefreshProduct, domain.RefreshPayload{ProductID: uuid.NewString(), URL: "https://shopee.ph/gone-i.9.9"}))
	require.NoError(t, queue.Enqueue(ctx, domain.JobTypeRefreshProduct, map[string]string{"url": "https://shopee.ph/x"}))

	w := New(Config{Batch: 10}, createTestLogger(), queue, products, refresher)
	require.NoError(t, w.RunOnce(ctx))

	assert.Equal(t, 1, queue.retried)
	assert.Equal(t, []string{"job-1"}, queue.completed)
	assert.Contains(t, queue.failed, "job-2")
	assert.Contains(t, queue.failed["job-3"], "product_id")
	assert.Empty(t, queue.pending)

	stats := w.GetStats()
	assert.Equal(t, int64(1), stats.Cycles)
	assert.Equal(t, int64(3), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsSucceeded)
	assert.Equal(t, int64(2), stats.JobsFailed)
}

func TestWorkerService_RespectsBatch(t *testing.T) {
	products := newRefreshProducts()
	refresher, transport := newTestRefresher(t, products, nil)
	transport.RegisterResponder(http.MethodGet, "https://shopee.ph/ipad-i.1.2", htmlResponder(t, shopeePage))

	queue := newMemoryQueue()
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Enqueue(context.Background(), domain.JobTypeRefreshProduct,
			domain.RefreshPayload{ProductID: uuid.NewString(), URL: "https://shopee.ph/ipad-i.1.2"}))
	}

	w := New(Config{Batch: 2}, createTestLogger(), queue, products, refresher)
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Len(t, queue.pending, 3)
	assert.Len(t, queue.completed, 2, "deleted products complete without retry")
}

func TestWorkerService_EnqueueAllWhenEmpty(t *testing.T) {
	withURL := &domain.Product{ID: uuid.New(), Title: "Product from shopee.ph", SourceURL: strPtr("https://shopee.ph/ipad-i.1.2")}
	withoutURL := &domain.Product{ID: uuid.New(), Title: "Manual entry"}
	products := newRefreshProducts(withURL, withoutURL)
	products.eligible = []*domain.Product{withURL, withoutURL}

	refresher, transport := newTestRefresher(t, products, nil)
	transport.RegisterResponder(http.MethodGet, "https://shopee.ph/ipad-i.1.2", htmlResponder(t, shopeePage))

	queue := newMemoryQueue()

	idle := New(Config{Batch: 10}, createTestLogger(), queue, products, refresher)
	require.NoError(t, idle.RunOnce(context.Background()))
	assert.Empty(t, products.applied, "nothing is scheduled without EnqueueAll")

	w := New(Config{Batch: 10, EnqueueAll: true}, createTestLogger(), queue, products, refresher)
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Equal(t, []string{"job-1"}, queue.completed)
	require.Contains(t, products.applied, withURL.ID)
	assert.Equal(t, "Apple iPad Air 5th Gen 64GB", *products.applied[withURL.ID].Title)
}

type brokenQueue struct {
	memoryQueue
}

func (brokenQueue) GetPendingCount(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}

func TestWorkerService_PendingCountError(t *testing.T) {
	queue := &brokenQueue{memoryQueue: *newMemoryQueue()}
	w := New(Config{}, createTestLogger(), queue, newRefreshProducts(), nil)
	assert.Error(t, w.RunOnce(context.Background()))
}

func strPtr(s string) *string { return &s }
