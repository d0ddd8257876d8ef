package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairboard/pairboard/internal/activity"
	"github.com/pairboard/pairboard/internal/ai"
	"github.com/pairboard/pairboard/internal/gateway"
	"github.com/pairboard/pairboard/internal/groups"
	"github.com/pairboard/pairboard/internal/httpapi"
	"github.com/pairboard/pairboard/internal/quiz"
)

// Services bundles everything the server wires together.
type Services struct {
	Gateway  *gateway.Service
	API      *httpapi.Handler
	Worker   *activity.Worker
	Recorder *activity.Recorder

	pool     *pgxpool.Pool
	outboxDB *sql.DB
}

func setupServices(ctx context.Context, config *Config) (*Services, error) {
	bank, err := quiz.LoadBank(config.Gateway.QuestionFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}

	dbConfig := databaseConfigFromEnv()
	pool, err := setupPool(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	groupService := groups.NewService(groups.NewRepository(pool))

	generator := ai.NewClient(
		getEnv("GENAI_BASE_URL", config.GenAI.BaseURL),
		os.Getenv("GENAI_API_KEY"),
	)

	services := &Services{
		API:  httpapi.NewHandler(groupService, generator),
		pool: pool,
	}

	var recorder gateway.Recorder = gateway.NopRecorder{}
	if config.Activity.Enabled {
		outboxDB, err := setupOutboxDB(dbConfig)
		if err != nil {
			pool.Close()
			return nil, err
		}
		services.outboxDB = outboxDB

		logger := slog.Default()
		services.Recorder = activity.NewRecorder(activity.NewRepository(outboxDB), logger)
		recorder = services.Recorder

		var publisher activity.EventPublisher
		natsURL := getEnv("NATS_URL", config.Activity.NATSUrl)
		if natsURL != "" {
			natsConfig := activity.DefaultNATSConfig()
			natsConfig.URL = natsURL
			publisher, err = activity.NewNATSPublisher(natsConfig, logger)
			if err != nil {
				pool.Close()
				outboxDB.Close()
				return nil, err
			}
		} else {
			publisher = activity.NewLogPublisher(logger)
		}

		workerConfig := activity.DefaultWorkerConfig()
		if config.Activity.PollInterval != "" {
			if interval, err := time.ParseDuration(config.Activity.PollInterval); err == nil {
				workerConfig.PollInterval = interval
			}
		}
		services.Worker = activity.NewWorker(outboxDB, publisher, workerConfig, logger)
	}

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.MinParticipants = config.Gateway.MinParticipants
	services.Gateway = gateway.NewService(gatewayConfig, bank, nil, recorder)

	return services, nil
}

// Close releases database handles and flushes the recorder.
func (s *Services) Close() {
	if s.Recorder != nil {
		s.Recorder.Close()
	}
	if s.outboxDB != nil {
		s.outboxDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
