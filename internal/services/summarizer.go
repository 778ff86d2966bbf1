package services

import (
	"context"
	"strings"

	"github.com/kxshrx/flynch/internal/domain"
)

// Summarizer produces an analysis result for one repository snapshot.
// Summary quality is the collaborator's concern; the core persists
// whatever it returns.
type Summarizer interface {
	Summarize(ctx context.Context, repo *domain.Repository) (*domain.AnalysisResult, error)
}

// heuristicSummarizer derives a result from snapshot metadata alone.
// It stands in wherever no AI-backed summarizer is configured.
type heuristicSummarizer struct{}

// NewHeuristicSummarizer creates the default summarizer.
func NewHeuristicSummarizer() Summarizer {
	return &heuristicSummarizer{}
}

// Summarize derives a result from snapshot metadata alone.
func (s *heuristicSummarizer) Summarize(_ context.Context, repo *domain.Repository) (*domain.AnalysisResult, error) {
	result := &domain.AnalysisResult{
		Title:   titleFromRepoName(repo.Name),
		Summary: repo.Description,
	}

	if result.Summary == "" && repo.HasReadme {
		result.Summary = firstLine(repo.Readme)
	}
	if result.Summary == "" {
		result.Summary = "No description available."
	}

	if len(repo.Languages) > 0 {
		result.TechStack = append(result.TechStack, repo.Languages...)
	} else if repo.Language != "" {
		result.TechStack = []string{repo.Language}
	}
	result.Skills = result.TechStack

	return result, nil
}

// titleFromRepoName turns "my-cool_project" into "My Cool Project".
func titleFromRepoName(name string) string {
	replaced := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	words := strings.Fields(replaced)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// firstLine returns the first non-empty, non-heading line of text.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}
