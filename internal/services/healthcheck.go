package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	goredis "github.com/davenrook/leasewise-backend/internal/clients/redis"
	"github.com/davenrook/leasewise-backend/internal/db"
	"github.com/davenrook/leasewise-backend/internal/domain"
	"github.com/davenrook/leasewise-backend/internal/platform/blob"
	"github.com/davenrook/leasewise-backend/internal/platform/docintel"
	"github.com/davenrook/leasewise-backend/internal/platform/envutil"
	"github.com/davenrook/leasewise-backend/internal/platform/logger"
)

// HealthCheckService probes every external dependency in parallel and
// aggregates the results. A healthy aggregate is cached briefly so the probe
// endpoint cannot hammer the dependencies.
type HealthCheckService interface {
	PerformHealthChecks(ctx context.Context) *domain.HealthStatus
}

type healthCheckService struct {
	pg       *db.PostgresService
	cache    goredis.ViewCache
	store    blob.Store
	docintel docintel.Client
	llm      LLMRequestManager
	prompts  PromptService
	log      *logger.Logger
	ttl      time.Duration

	mu          sync.Mutex
	lastChecked time.Time
	lastStatus  *domain.HealthStatus
}

func NewHealthCheckService(pg *db.PostgresService, cache goredis.ViewCache, store blob.Store, dc docintel.Client, llm LLMRequestManager, prompts PromptService, baseLog *logger.Logger) HealthCheckService {
	return &healthCheckService{
		pg:       pg,
		cache:    cache,
		store:    store,
		docintel: dc,
		llm:      llm,
		prompts:  prompts,
		log:      baseLog.With("service", "HealthCheckService"),
		ttl:      envutil.Duration("HEALTH_CHECK_TTL", 5*time.Minute),
	}
}

func (s *healthCheckService) PerformHealthChecks(ctx context.Context) *domain.HealthStatus {
	s.mu.Lock()
	if s.lastStatus != nil && time.Since(s.lastChecked) < s.ttl {
		cached := s.lastStatus
		s.mu.Unlock()
		s.log.Info("Returning cached health check results", "status", cached.Status)
		return cached
	}
	s.mu.Unlock()

	status := s.runChecks(ctx)

	s.mu.Lock()
	s.lastStatus = status
	s.lastChecked = time.Now()
	s.mu.Unlock()

	if status.Status == domain.HealthStatusHealthy {
		s.log.Info("Health check passed")
	} else {
		s.log.Error("Health check failed", "checks", unhealthyNames(status))
	}
	return status
}

func unhealthyNames(status *domain.HealthStatus) []string {
	var names []string
	for name, check := range status.Checks {
		if check.Status == domain.HealthStatusUnhealthy {
			names = append(names, name)
		}
	}
	return names
}

// probeLLM reuses the status of the last completion call when it was
// healthy; otherwise it sends a small general question through the manager.
func (s *healthCheckService) probeLLM(ctx context.Context) error {
	if st := s.llm.Status(); st != nil && st.Status == domain.HealthStatusHealthy {
		return nil
	}
	answer, err := s.llm.AnswerGeneralQuestion(ctx, s.prompts.GeneralPrompt(), "Ping")
	if err != nil {
		return err
	}
	s.log.Info("Connected to the completion API", "answer", answer)
	return nil
}

func (s *healthCheckService) runChecks(ctx context.Context) *domain.HealthStatus {
	type namedCheck struct {
		name  string
		probe func(context.Context) error
	}
	checks := []namedCheck{
		{"postgres", func(ctx context.Context) error {
			sqlDB, err := s.pg.DB().WithContext(ctx).DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		{"redis", s.cache.Ping},
		{"blob_storage", s.store.Ping},
		{"content_understanding", func(ctx context.Context) error {
			analyzers, err := s.docintel.ListAnalyzers(ctx)
			if err != nil {
				return err
			}
			s.log.Info("Content understanding reachable", "analyzers", len(analyzers))
			return nil
		}},
		{"openai", s.probeLLM},
	}

	results := make([]error, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			results[i] = check.probe(gctx)
			return nil
		})
	}
	_ = g.Wait()

	status := &domain.HealthStatus{
		Status: domain.HealthStatusHealthy,
		Checks: map[string]domain.HealthCheck{},
	}
	for i, check := range checks {
		if results[i] != nil {
			status.Status = domain.HealthStatusUnhealthy
			status.Checks[check.name] = domain.HealthCheck{
				Status:  domain.HealthStatusUnhealthy,
				Details: results[i].Error(),
			}
			continue
		}
		status.Checks[check.name] = domain.HealthCheck{
			Status:  domain.HealthStatusHealthy,
			Details: fmt.Sprintf("%s is running as expected.", check.name),
		}
	}
	return status
}
