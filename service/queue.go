package service

import (
	"encoding/json"
	"fmt"
	"time"

	"ScriptToVideo-server/config"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const TypePipelineRun = "pipeline:run"

// PipelinePayload is the queued request for one full pipeline run.
type PipelinePayload struct {
	ProjectID   string  `json:"project_id"`
	Voice       string  `json:"voice"`
	Temperature float64 `json:"temperature"`
	LocalFirst  bool    `json:"local_first"`
}

// Queue enqueues pipeline runs onto Redis for the background processor.
type Queue struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		}),
		log: logger,
	}
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueuePipeline schedules a full run for the project. A run covers every
// scene of the project at GPU speed, hence the generous timeout.
func (q *Queue) EnqueuePipeline(payload PipelinePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}

	task := asynq.NewTask(TypePipelineRun, data,
		asynq.MaxRetry(3),
		asynq.Timeout(60*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := q.client.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	q.log.Info().
		Str("project_id", payload.ProjectID).
		Str("task_id", info.ID).
		Msg("pipeline run enqueued")
	return nil
}
