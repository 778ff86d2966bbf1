package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/testutil"
)

type stubSummarizer struct {
	err error
}

func (s *stubSummarizer) Summarize(_ context.Context, repo *domain.Repository) (*domain.AnalysisResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.AnalysisResult{
		Title:     "Stub " + repo.Name,
		Summary:   "stub summary",
		TechStack: []string{"Go"},
		Skills:    []string{"Go"},
	}, nil
}

type analysisFixture struct {
	service      AnalysisService
	analysisRepo *testutil.MockAnalysisRepository
	repoRepo     *testutil.MockRepoRepository
	linkRepo     *testutil.MockExternalLinkRepository
	broadcaster  AnalysisBroadcaster
}

func newAnalysisFixture(summarizer Summarizer) *analysisFixture {
	analysisRepo := testutil.NewMockAnalysisRepository()
	repoRepo := testutil.NewMockRepoRepository()
	linkRepo := testutil.NewMockExternalLinkRepository()
	broadcaster := NewAnalysisBroadcaster(AnalysisBroadcasterConfig{}, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &analysisFixture{
		service:      NewAnalysisService(analysisRepo, repoRepo, linkRepo, summarizer, broadcaster, 2, logger),
		analysisRepo: analysisRepo,
		repoRepo:     repoRepo,
		linkRepo:     linkRepo,
		broadcaster:  broadcaster,
	}
}

func (f *analysisFixture) connectUserWithRepos(userID string, repoNames ...string) {
	f.linkRepo.AddLink(testutil.MockLink(userID, 42, "octocat"))
	for i, name := range repoNames {
		f.repoRepo.AddRepo(testutil.MockRepo(userID, int64(i+1), name))
	}
}

func collectTerminalEvents(t *testing.T, events <-chan *domain.AnalysisEvent, want int) []*domain.AnalysisEvent {
	t.Helper()
	terminal := make([]*domain.AnalysisEvent, 0, want)
	deadline := time.After(2 * time.Second)
	for len(terminal) < want {
		select {
		case event := <-events:
			if event.Status != domain.AnalysisPending {
				terminal = append(terminal, event)
			}
		case <-deadline:
			t.Fatalf("Timed out waiting for %d terminal events, got %d", want, len(terminal))
		}
	}
	return terminal
}

func TestAnalysisService_RequestAndComplete(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})
	fixture.connectUserWithRepos("user1", "repo-one", "repo-two")

	fixture.service.Start()
	defer fixture.service.Stop()

	events, cancel, err := fixture.broadcaster.Subscribe("user1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	analyses, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{
		Repos: []string{"repo-one", "repo-two"},
	})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if len(analyses) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(analyses))
	}
	for _, analysis := range analyses {
		if analysis.ID == "" {
			t.Error("Expected a generated analysis ID")
		}
		if analysis.Status != domain.AnalysisPending {
			t.Errorf("Expected pending status at request time, got %s", analysis.Status)
		}
	}

	for _, event := range collectTerminalEvents(t, events, 2) {
		if event.Status != domain.AnalysisCompleted {
			t.Errorf("Expected completed event, got %s", event.Status)
		}
	}

	stored, err := fixture.service.List(context.Background(), "user1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored analyses, got %d", len(stored))
	}
	for _, analysis := range stored {
		if analysis.Status != domain.AnalysisCompleted {
			t.Errorf("Expected completed status, got %s", analysis.Status)
		}
		if analysis.Title == "" || analysis.Summary == "" {
			t.Error("Expected the summarizer result to be persisted")
		}
		if analysis.ErrorMessage != "" {
			t.Errorf("Unexpected error message: %s", analysis.ErrorMessage)
		}
	}
}

func TestAnalysisService_RequestWithoutGitHubLink(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})

	_, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{
		Repos: []string{"repo-one"},
	})
	if err == nil {
		t.Fatal("Expected request without a GitHub link to fail")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Code != "GITHUB_NOT_CONNECTED" {
		t.Errorf("Expected GITHUB_NOT_CONNECTED, got %s", domainErr.Code)
	}
}

func TestAnalysisService_RequestUnknownRepository(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})
	fixture.connectUserWithRepos("user1", "repo-one")

	_, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{
		Repos: []string{"repo-one", "never-synced"},
	})
	if err == nil {
		t.Fatal("Expected unknown repository to fail the request")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Code != "UNKNOWN_REPOSITORY" {
		t.Errorf("Expected UNKNOWN_REPOSITORY, got %s", domainErr.Code)
	}

	// A bad name must not leave a partial batch behind
	stored, err := fixture.service.List(context.Background(), "user1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("Expected no analyses after a rejected request, got %d", len(stored))
	}
}

func TestAnalysisService_DuplicateNamesCollapse(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})
	fixture.connectUserWithRepos("user1", "repo-one")

	fixture.service.Start()
	defer fixture.service.Stop()

	analyses, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{
		Repos: []string{"repo-one", "repo-one", "repo-one"},
	})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if len(analyses) != 1 {
		t.Errorf("Expected duplicates to collapse to 1 analysis, got %d", len(analyses))
	}
}

func TestAnalysisService_SummarizerFailureMarksFailed(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{err: fmt.Errorf("model unavailable")})
	fixture.connectUserWithRepos("user1", "repo-one")

	fixture.service.Start()
	defer fixture.service.Stop()

	events, cancel, err := fixture.broadcaster.Subscribe("user1")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	if _, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{
		Repos: []string{"repo-one"},
	}); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	terminal := collectTerminalEvents(t, events, 1)
	if terminal[0].Status != domain.AnalysisFailed {
		t.Errorf("Expected failed event, got %s", terminal[0].Status)
	}

	stored, err := fixture.service.List(context.Background(), "user1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("Expected 1 analysis, got %d", len(stored))
	}
	if stored[0].Status != domain.AnalysisFailed {
		t.Errorf("Expected failed status, got %s", stored[0].Status)
	}
	if stored[0].ErrorMessage == "" {
		t.Error("Expected the failure reason to be recorded")
	}
}

func TestAnalysisService_ListScopedToUser(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})

	for _, userID := range []string{"user1", "user1", "user2"} {
		if err := fixture.analysisRepo.Create(context.Background(), &domain.ProjectAnalysis{
			UserID:   userID,
			RepoName: "repo",
			Status:   domain.AnalysisCompleted,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	stored, err := fixture.service.List(context.Background(), "user1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("Expected 2 analyses for user1, got %d", len(stored))
	}
	for _, analysis := range stored {
		if analysis.UserID != "user1" {
			t.Errorf("List leaked an analysis belonging to %s", analysis.UserID)
		}
	}
}

func TestAnalysisService_RequestValidation(t *testing.T) {
	fixture := newAnalysisFixture(&stubSummarizer{})

	if _, err := fixture.service.Request(context.Background(), "", domain.AnalysisRequest{
		Repos: []string{"repo-one"},
	}); err == nil {
		t.Error("Expected empty user ID to be rejected")
	}

	if _, err := fixture.service.Request(context.Background(), "user1", domain.AnalysisRequest{}); err == nil {
		t.Error("Expected empty repository list to be rejected")
	}
}
