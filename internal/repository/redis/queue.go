package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"shopple/internal/domain"
)

// QueueRepository implements the domain.QueueRepository interface using Redis lists.
// A job id moves queue -> processing on dequeue and is removed from processing on
// completion or failure; failed jobs wait in a sorted set until their retry is due.
type QueueRepository struct {
	client       *redis.Client
	logger       *slog.Logger
	blockTimeout time.Duration
	now          func() time.Time
}

// NewQueueRepository creates a new Redis queue repository
func NewQueueRepository(client *redis.Client, logger *slog.Logger) *QueueRepository {
	return &QueueRepository{
		client:       client,
		logger:       logger,
		blockTimeout: 30 * time.Second,
		now:          time.Now,
	}
}

// Redis key patterns, all suffixed with the job type (or job id for jobKey)
const (
	keyNamespace     = "shopple:"
	queueKeyPrefix   = keyNamespace + "queue:"
	jobKeyPrefix     = keyNamespace + "job:"
	processingPrefix = keyNamespace + "processing:"
	retryKeyPrefix   = keyNamespace + "retry:"
	deadLetterPrefix = keyNamespace + "dead:"
	statsKeyPrefix   = keyNamespace + "stats:"
)

const (
	maxRetries        = 3
	initialBackoffSec = 30
	maxBackoffSec     = 900
	jobTTL            = 24 * time.Hour
	completedJobTTL   = 6 * time.Hour
)

// storedJob is the JSON document kept under jobKeyPrefix+id
type storedJob struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at,omitempty"`
	RetryCount int                    `json:"retry_count"`
	MaxRetries int                    `json:"max_retries"`
	NextRetry  *time.Time             `json:"next_retry,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func (j *storedJob) toDomain() *domain.QueueJob {
	job := &domain.QueueJob{
		ID:        j.ID,
		Type:      j.Type,
		Payload:   j.Payload,
		Status:    j.Status,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
	}
	if j.UpdatedAt != nil {
		updated := j.UpdatedAt.Format(time.RFC3339)
		job.UpdatedAt = &updated
	}
	return job
}

// Enqueue adds a new job to the queue
func (r *QueueRepository) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var payloadMap map[string]interface{}
	if err := json.Unmarshal(raw, &payloadMap); err != nil {
		return fmt.Errorf("payload must be a JSON object: %w", err)
	}

	job := &storedJob{
		ID:         uuid.New().String(),
		Type:       jobType,
		Payload:    payloadMap,
		Status:     domain.JobStatusPending,
		CreatedAt:  r.now(),
		MaxRetries: maxRetries,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	jobKey := jobKeyPrefix + job.ID
	statsKey := statsKeyPrefix + jobType

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, jobKey,
		"data", string(data),
		"status", job.Status,
		"type", job.Type,
		"created_at", job.CreatedAt.Unix(),
	)
	pipe.Expire(ctx, jobKey, jobTTL)
	pipe.LPush(ctx, queueKeyPrefix+jobType, job.ID)
	pipe.HIncrBy(ctx, statsKey, "total_enqueued", 1)
	pipe.HIncrBy(ctx, statsKey, "pending", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	r.logger.Debug("Job enqueued", "job_id", job.ID, "job_type", jobType)
	return nil
}

// Dequeue blocks until a job is available and moves it to the processing list.
// A nil job with a nil error means the wait timed out.
func (r *QueueRepository) Dequeue(ctx context.Context, jobType string) (*domain.QueueJob, error) {
	processingKey := processingPrefix + jobType

	jobID, err := r.client.BRPopLPush(ctx, queueKeyPrefix+jobType, processingKey, r.blockTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue job: %w", err)
	}

	job, err := r.load(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Warn("Job data expired, dropping from processing", "job_id", jobID)
			r.client.LRem(ctx, processingKey, 1, jobID)
		}
		return nil, err
	}

	now := r.now()
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = &now

	statsKey := statsKeyPrefix + jobType
	if err := r.save(ctx, job, func(pipe redis.Pipeliner) {
		pipe.HIncrBy(ctx, statsKey, "pending", -1)
		pipe.HIncrBy(ctx, statsKey, "processing", 1)
	}); err != nil {
		r.logger.Error("Failed to mark job processing", "error", err, "job_id", jobID)
	}

	r.logger.Debug("Job dequeued",
		"job_id", job.ID,
		"job_type", jobType,
		"retry_count", job.RetryCount,
	)
	return job.toDomain(), nil
}

// Complete marks a job as completed and removes it from processing
func (r *QueueRepository) Complete(ctx context.Context, jobID string) error {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for completion: %w", err)
	}

	now := r.now()
	job.Status = domain.JobStatusCompleted
	job.UpdatedAt = &now

	statsKey := statsKeyPrefix + job.Type
	err = r.save(ctx, job, func(pipe redis.Pipeliner) {
		pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)
		pipe.HIncrBy(ctx, statsKey, "processing", -1)
		pipe.HIncrBy(ctx, statsKey, "completed", 1)
		pipe.Expire(ctx, jobKeyPrefix+jobID, completedJobTTL)
	})
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	r.logger.Debug("Job completed", "job_id", jobID, "job_type", job.Type)
	return nil
}

// Fail records errorMsg and either schedules a retry with exponential backoff
// or moves the job to the dead letter list once its retries are spent.
func (r *QueueRepository) Fail(ctx context.Context, jobID string, errorMsg string) error {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job for failure: %w", err)
	}

	now := r.now()
	job.Error = errorMsg
	job.UpdatedAt = &now
	job.RetryCount++

	statsKey := statsKeyPrefix + job.Type
	retry := job.RetryCount <= job.MaxRetries

	if retry {
		next := now.Add(backoff(job.RetryCount))
		job.NextRetry = &next
		job.Status = domain.JobStatusPending
	} else {
		job.Status = domain.JobStatusFailed
	}

	err = r.save(ctx, job, func(pipe redis.Pipeliner) {
		pipe.LRem(ctx, processingPrefix+job.Type, 1, jobID)
		pipe.HIncrBy(ctx, statsKey, "processing", -1)
		if retry {
			pipe.ZAdd(ctx, retryKeyPrefix+job.Type, redis.Z{
				Score:  float64(job.NextRetry.Unix()),
				Member: jobID,
			})
			pipe.HIncrBy(ctx, statsKey, "retried", 1)
		} else {
			pipe.LPush(ctx, deadLetterPrefix+job.Type, jobID)
			pipe.HIncrBy(ctx, statsKey, "failed", 1)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to record job failure: %w", err)
	}

	if retry {
		r.logger.Info("Job scheduled for retry",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"next_retry", job.NextRetry,
			"error", errorMsg,
		)
	} else {
		r.logger.Error("Job failed permanently",
			"job_id", jobID,
			"job_type", job.Type,
			"retry_count", job.RetryCount,
			"error", errorMsg,
		)
	}
	return nil
}

func backoff(attempt int) time.Duration {
	sec := math.Min(initialBackoffSec*math.Pow(2, float64(attempt-1)), maxBackoffSec)
	return time.Duration(sec) * time.Second
}

// GetPendingCount returns the number of pending jobs for a job type
func (r *QueueRepository) GetPendingCount(ctx context.Context, jobType string) (int, error) {
	count, err := r.client.LLen(ctx, queueKeyPrefix+jobType).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return int(count), nil
}

// ProcessRetryJobs moves jobs whose retry time has passed back onto the queue
func (r *QueueRepository) ProcessRetryJobs(ctx context.Context, jobType string) error {
	retryKey := retryKeyPrefix + jobType

	due, err := r.client.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(r.now().Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get retry jobs: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	statsKey := statsKeyPrefix + jobType
	pipe := r.client.TxPipeline()
	for _, jobID := range due {
		pipe.ZRem(ctx, retryKey, jobID)
		pipe.LPush(ctx, queueKeyPrefix+jobType, jobID)
		pipe.HIncrBy(ctx, statsKey, "pending", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue retry jobs: %w", err)
	}

	r.logger.Info("Requeued retry jobs", "job_type", jobType, "count", len(due))
	return nil
}

// GetQueueStats returns the counters for a job type plus current list lengths
func (r *QueueRepository) GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error) {
	counters, err := r.client.HGetAll(ctx, statsKeyPrefix+jobType).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	result := make(map[string]int64, len(counters)+4)
	for key, value := range counters {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			result[key] = n
		}
	}

	pipe := r.client.Pipeline()
	pending := pipe.LLen(ctx, queueKeyPrefix+jobType)
	processing := pipe.LLen(ctx, processingPrefix+jobType)
	retrying := pipe.ZCard(ctx, retryKeyPrefix+jobType)
	dead := pipe.LLen(ctx, deadLetterPrefix+jobType)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get queue lengths: %w", err)
	}

	result["current_pending"] = pending.Val()
	result["current_processing"] = processing.Val()
	result["current_retrying"] = retrying.Val()
	result["current_dead"] = dead.Val()
	return result, nil
}

func (r *QueueRepository) load(ctx context.Context, jobID string) (*storedJob, error) {
	data, err := r.client.HGet(ctx, jobKeyPrefix+jobID, "data").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get job data: %w", err)
	}

	var job storedJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// save writes job back together with any extra commands in one transaction
func (r *QueueRepository) save(ctx context.Context, job *storedJob, extra func(redis.Pipeliner)) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	fields := []interface{}{"data", string(data), "status", job.Status, "retry_count", job.RetryCount}
	if job.UpdatedAt != nil {
		fields = append(fields, "updated_at", job.UpdatedAt.Unix())
	}
	if job.Error != "" {
		fields = append(fields, "error", job.Error)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, jobKeyPrefix+job.ID, fields...)
	if extra != nil {
		extra(pipe)
	}
	_, err = pipe.Exec(ctx)
	return err
}
