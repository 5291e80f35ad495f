package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ScriptToVideo-server/config"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Processor consumes queued pipeline runs.
type Processor struct {
	pipeline *Pipeline
	log      zerolog.Logger
}

func NewProcessor(pipeline *Pipeline, logger zerolog.Logger) *Processor {
	return &Processor{pipeline: pipeline, log: logger}
}

// Start launches the queue consumer in the background.
func (p *Processor) Start(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePipelineRun, p.HandlePipelineRun)

	p.log.Info().Int("concurrency", concurrency).Msg("starting task processor")
	go func() {
		if err := srv.Run(mux); err != nil {
			p.log.Fatal().Err(err).Msg("task processor stopped")
		}
	}()
}

func (p *Processor) HandlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload PipelinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	p.log.Info().Str("project_id", payload.ProjectID).Msg("processing pipeline run")

	results, err := p.pipeline.RunFull(ctx, payload.ProjectID, PipelineOptions{
		Voice:       payload.Voice,
		Temperature: payload.Temperature,
		LocalFirst:  payload.LocalFirst,
	})
	if err != nil {
		// A deleted project will never become runnable; retrying only burns
		// the queue.
		if strings.Contains(err.Error(), "project not found") {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	p.log.Info().
		Str("project_id", payload.ProjectID).
		Interface("results", results).
		Msg("pipeline run finished")
	return nil
}
