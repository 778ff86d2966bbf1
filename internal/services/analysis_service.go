package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/repository"
)

// AnalysisService turns repository snapshots into portfolio analyses.
// Requests are accepted immediately and processed by a bounded worker
// pool; progress is observable through the broadcaster and List.
type AnalysisService interface {
	// Request queues an analysis for each named repository and returns the
	// pending records. Every repository must already be synced.
	Request(ctx context.Context, userID string, req domain.AnalysisRequest) ([]*domain.ProjectAnalysis, error)

	// List returns the user's analyses, newest first.
	List(ctx context.Context, userID string) ([]*domain.ProjectAnalysis, error)

	// Start launches the worker pool. It must be called once before Request.
	Start()

	// Stop drains the queue and waits for in-flight work to finish.
	Stop()
}

type analysisJob struct {
	analysisID string
	userID     string
	repoName   string
}

type analysisService struct {
	analysisRepo repository.AnalysisRepository
	repoRepo     repository.RepoRepository
	linkRepo     repository.ExternalLinkRepository
	summarizer   Summarizer
	broadcaster  AnalysisBroadcaster
	logger       *slog.Logger

	workers    int
	jobTimeout time.Duration
	jobs       chan analysisJob
	wg         sync.WaitGroup
	startOnce  sync.Once
	stopOnce   sync.Once
}

// NewAnalysisService creates an analysis service backed by the given
// collaborators. workers caps concurrent summarizations; values below
// one fall back to the default.
func NewAnalysisService(
	analysisRepo repository.AnalysisRepository,
	repoRepo repository.RepoRepository,
	linkRepo repository.ExternalLinkRepository,
	summarizer Summarizer,
	broadcaster AnalysisBroadcaster,
	workers int,
	logger *slog.Logger,
) AnalysisService {
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &analysisService{
		analysisRepo: analysisRepo,
		repoRepo:     repoRepo,
		linkRepo:     linkRepo,
		summarizer:   summarizer,
		broadcaster:  broadcaster,
		logger:       logger,
		workers:      workers,
		jobTimeout:   2 * time.Minute,
		jobs:         make(chan analysisJob, workers*64),
	}
}

// Start launches the worker pool.
func (s *analysisService) Start() {
	s.startOnce.Do(func() {
		for i := 0; i < s.workers; i++ {
			s.wg.Add(1)
			go s.worker()
		}
	})
}

// Stop drains the queue and waits for in-flight work to finish.
func (s *analysisService) Stop() {
	s.stopOnce.Do(func() {
		close(s.jobs)
		s.wg.Wait()
	})
}

// Request queues an analysis for each named repository.
func (s *analysisService) Request(ctx context.Context, userID string, req domain.AnalysisRequest) ([]*domain.ProjectAnalysis, error) {
	if userID == "" {
		return nil, domain.NewValidationError("INVALID_INPUT", "User ID cannot be empty", nil)
	}
	if len(req.Repos) == 0 {
		return nil, domain.NewValidationError("INVALID_INPUT", "At least one repository is required", nil)
	}

	if _, err := s.linkRepo.GetByUserAndProvider(ctx, userID, domain.ProviderGithub); err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NewValidationError("GITHUB_NOT_CONNECTED", "GitHub account is not connected", nil)
		}
		return nil, domain.NewInternalError("LINK_LOOKUP_FAILED", "Failed to check GitHub connection", err)
	}

	names := dedupeNames(req.Repos)

	// Resolve every snapshot up front so a bad name fails the whole
	// request instead of leaving a partial batch behind.
	for _, name := range names {
		if _, err := s.repoRepo.GetByUserAndName(ctx, userID, name); err != nil {
			if repository.IsNotFound(err) {
				return nil, domain.NewValidationError("UNKNOWN_REPOSITORY",
					fmt.Sprintf("Repository %q has not been synced", name),
					map[string]interface{}{"repo": name})
			}
			return nil, domain.NewInternalError("REPO_LOOKUP_FAILED", "Failed to load repository snapshot", err)
		}
	}

	analyses := make([]*domain.ProjectAnalysis, 0, len(names))
	for _, name := range names {
		analysis := &domain.ProjectAnalysis{
			UserID:   userID,
			RepoName: name,
			Status:   domain.AnalysisPending,
		}
		if err := s.analysisRepo.Create(ctx, analysis); err != nil {
			return nil, domain.NewInternalError("ANALYSIS_CREATE_FAILED", "Failed to record analysis request", err)
		}
		analyses = append(analyses, analysis)

		s.publish(analysis)
		s.enqueue(analysis)
	}

	return analyses, nil
}

// List returns the user's analyses, newest first.
func (s *analysisService) List(ctx context.Context, userID string) ([]*domain.ProjectAnalysis, error) {
	if userID == "" {
		return nil, domain.NewValidationError("INVALID_INPUT", "User ID cannot be empty", nil)
	}

	analyses, err := s.analysisRepo.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, domain.NewInternalError("ANALYSIS_LIST_FAILED", "Failed to list analyses", err)
	}
	return analyses, nil
}

// enqueue hands the analysis to the pool, failing it immediately when the
// queue is saturated so the record never sits pending forever.
func (s *analysisService) enqueue(analysis *domain.ProjectAnalysis) {
	job := analysisJob{analysisID: analysis.ID, userID: analysis.UserID, repoName: analysis.RepoName}
	select {
	case s.jobs <- job:
	default:
		s.logger.Warn("analysis queue full, failing request",
			"analysis_id", analysis.ID,
			"user_id", analysis.UserID)
		s.finish(context.Background(), analysis, nil, fmt.Errorf("analysis queue is full"))
	}
}

func (s *analysisService) worker() {
	defer s.wg.Done()
	for job := range s.jobs {
		s.process(job)
	}
}

func (s *analysisService) process(job analysisJob) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	analysis, err := s.analysisRepo.GetByID(ctx, job.analysisID)
	if err != nil {
		s.logger.Error("failed to load analysis for processing",
			"analysis_id", job.analysisID,
			"error", err)
		return
	}
	if analysis.Status != domain.AnalysisPending {
		return
	}

	repo, err := s.repoRepo.GetByUserAndName(ctx, job.userID, job.repoName)
	if err != nil {
		s.finish(ctx, analysis, nil, fmt.Errorf("failed to load repository snapshot: %w", err))
		return
	}

	result, err := s.summarizer.Summarize(ctx, repo)
	s.finish(ctx, analysis, result, err)
}

// finish records the terminal status and publishes the matching event.
func (s *analysisService) finish(ctx context.Context, analysis *domain.ProjectAnalysis, result *domain.AnalysisResult, err error) {
	if err != nil {
		analysis.Status = domain.AnalysisFailed
		analysis.ErrorMessage = err.Error()
	} else {
		analysis.Status = domain.AnalysisCompleted
		analysis.Title = result.Title
		analysis.Summary = result.Summary
		analysis.TechStack = result.TechStack
		analysis.Skills = result.Skills
		analysis.Domain = result.Domain
		analysis.Impact = result.Impact
	}

	if updateErr := s.analysisRepo.Update(ctx, analysis); updateErr != nil {
		s.logger.Error("failed to record analysis outcome",
			"analysis_id", analysis.ID,
			"status", analysis.Status,
			"error", updateErr)
		return
	}

	s.publish(analysis)
}

func (s *analysisService) publish(analysis *domain.ProjectAnalysis) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(&domain.AnalysisEvent{
		UserID:     analysis.UserID,
		AnalysisID: analysis.ID,
		RepoName:   analysis.RepoName,
		Status:     analysis.Status,
		Timestamp:  time.Now().UTC(),
	})
}

// dedupeNames preserves first-seen order while dropping repeats.
func dedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
