package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/dbx"

	"github.com/kxshrx/flynch/internal/config"
	"github.com/kxshrx/flynch/internal/repository"
	"github.com/kxshrx/flynch/internal/services"
)

// ServiceNames contains constants for service names used in DI container
const (
	ConfigService                 = "config"
	UserRepositoryService         = "user_repository"
	OAuthStateRepositoryService   = "oauth_state_repository"
	ExternalLinkRepositoryService = "external_link_repository"
	RepoRepositoryService         = "repo_repository"
	LinkedInRepositoryService     = "linkedin_repository"
	AnalysisRepositoryService     = "analysis_repository"
	TokenIssuerService            = "token_issuer"
	AuthService                   = "auth_service"
	GitHubSyncService             = "github_sync_service"
	GitHubLinkService             = "github_link_service"
	ProfileExtractorService       = "profile_extractor"
	LinkedInService               = "linkedin_service"
	SummarizerService             = "summarizer"
	AnalysisBroadcasterService    = "analysis_broadcaster"
	AnalysisService               = "analysis_service"
	HealthService                 = "health_service"
)

// RegisterServices registers all application services with the DI container
func RegisterServices(container Container, cfg config.Config, db *dbx.DB, version string) error {
	// Register config as singleton
	err := container.RegisterSingleton(ConfigService, func(ctx context.Context, c Container) (interface{}, error) {
		return cfg, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register config service: %w", err)
	}

	// Register repositories
	if err := registerRepositories(container, db); err != nil {
		return fmt.Errorf("failed to register repositories: %w", err)
	}

	// Register services
	if err := registerBusinessServices(container, db, version); err != nil {
		return fmt.Errorf("failed to register business services: %w", err)
	}

	return nil
}

// registerRepositories registers all repository implementations
func registerRepositories(container Container, db *dbx.DB) error {
	// User Repository
	err := container.RegisterSingleton(UserRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewSQLiteUserRepository(db), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register user repository: %w", err)
	}

	// OAuth State Repository
	err = container.RegisterSingleton(OAuthStateRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewMemoryOAuthStateRepository(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register oauth state repository: %w", err)
	}

	// External Link Repository
	err = container.RegisterSingleton(ExternalLinkRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewSQLiteExternalLinkRepository(db), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register external link repository: %w", err)
	}

	// Repo Repository
	err = container.RegisterSingleton(RepoRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewSQLiteRepoRepository(db), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register repo repository: %w", err)
	}

	// LinkedIn Profile Repository
	err = container.RegisterSingleton(LinkedInRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewSQLiteLinkedInProfileRepository(db), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register linkedin repository: %w", err)
	}

	// Analysis Repository
	err = container.RegisterSingleton(AnalysisRepositoryService, func(ctx context.Context, c Container) (interface{}, error) {
		return repository.NewSQLiteAnalysisRepository(db), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register analysis repository: %w", err)
	}

	return nil
}

// registerBusinessServices registers all business logic services
func registerBusinessServices(container Container, db *dbx.DB, version string) error {
	// Token Issuer
	err := container.RegisterSingleton(TokenIssuerService, func(ctx context.Context, c Container) (interface{}, error) {
		cfg, err := c.ResolveWithContext(ctx, ConfigService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config: %w", err)
		}

		return services.NewTokenIssuer(cfg.(config.SecurityConfig)), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register token issuer: %w", err)
	}

	// Auth Service
	err = container.RegisterSingleton(AuthService, func(ctx context.Context, c Container) (interface{}, error) {
		userRepo, err := c.ResolveWithContext(ctx, UserRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user repository: %w", err)
		}

		issuer, err := c.ResolveWithContext(ctx, TokenIssuerService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve token issuer: %w", err)
		}

		return services.NewAuthService(
			userRepo.(repository.UserRepository),
			issuer.(services.TokenIssuer),
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register auth service: %w", err)
	}

	// GitHub Sync Service
	err = container.RegisterSingleton(GitHubSyncService, func(ctx context.Context, c Container) (interface{}, error) {
		linkRepo, err := c.ResolveWithContext(ctx, ExternalLinkRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve external link repository: %w", err)
		}

		repoRepo, err := c.ResolveWithContext(ctx, RepoRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve repo repository: %w", err)
		}

		return services.NewGitHubSyncService(
			linkRepo.(repository.ExternalLinkRepository),
			repoRepo.(repository.RepoRepository),
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register github sync service: %w", err)
	}

	// GitHub Link Service
	err = container.RegisterSingleton(GitHubLinkService, func(ctx context.Context, c Container) (interface{}, error) {
		cfg, err := c.ResolveWithContext(ctx, ConfigService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config: %w", err)
		}

		stateStore, err := c.ResolveWithContext(ctx, OAuthStateRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve oauth state repository: %w", err)
		}

		linkRepo, err := c.ResolveWithContext(ctx, ExternalLinkRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve external link repository: %w", err)
		}

		userRepo, err := c.ResolveWithContext(ctx, UserRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user repository: %w", err)
		}

		repoRepo, err := c.ResolveWithContext(ctx, RepoRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve repo repository: %w", err)
		}

		syncer, err := c.ResolveWithContext(ctx, GitHubSyncService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve github sync service: %w", err)
		}

		return services.NewGitHubLinkService(
			cfg.(config.GitHubConfig),
			stateStore.(repository.OAuthStateRepository),
			linkRepo.(repository.ExternalLinkRepository),
			userRepo.(repository.UserRepository),
			repoRepo.(repository.RepoRepository),
			syncer.(services.GitHubSyncService),
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register github link service: %w", err)
	}

	// Profile Extractor
	err = container.RegisterSingleton(ProfileExtractorService, func(ctx context.Context, c Container) (interface{}, error) {
		return services.NewBasicProfileExtractor(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register profile extractor: %w", err)
	}

	// LinkedIn Service
	err = container.RegisterSingleton(LinkedInService, func(ctx context.Context, c Container) (interface{}, error) {
		profileRepo, err := c.ResolveWithContext(ctx, LinkedInRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve linkedin repository: %w", err)
		}

		extractor, err := c.ResolveWithContext(ctx, ProfileExtractorService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve profile extractor: %w", err)
		}

		return services.NewLinkedInService(
			profileRepo.(repository.LinkedInProfileRepository),
			extractor.(services.ProfileExtractor),
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register linkedin service: %w", err)
	}

	// Summarizer
	err = container.RegisterSingleton(SummarizerService, func(ctx context.Context, c Container) (interface{}, error) {
		return services.NewHeuristicSummarizer(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register summarizer: %w", err)
	}

	// Analysis Broadcaster
	err = container.RegisterSingleton(AnalysisBroadcasterService, func(ctx context.Context, c Container) (interface{}, error) {
		return services.NewAnalysisBroadcaster(services.AnalysisBroadcasterConfig{}, slog.Default()), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register analysis broadcaster: %w", err)
	}

	// Analysis Service
	err = container.RegisterSingleton(AnalysisService, func(ctx context.Context, c Container) (interface{}, error) {
		analysisRepo, err := c.ResolveWithContext(ctx, AnalysisRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve analysis repository: %w", err)
		}

		repoRepo, err := c.ResolveWithContext(ctx, RepoRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve repo repository: %w", err)
		}

		linkRepo, err := c.ResolveWithContext(ctx, ExternalLinkRepositoryService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve external link repository: %w", err)
		}

		summarizer, err := c.ResolveWithContext(ctx, SummarizerService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve summarizer: %w", err)
		}

		broadcaster, err := c.ResolveWithContext(ctx, AnalysisBroadcasterService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve analysis broadcaster: %w", err)
		}

		cfg, err := c.ResolveWithContext(ctx, ConfigService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config: %w", err)
		}

		return services.NewAnalysisService(
			analysisRepo.(repository.AnalysisRepository),
			repoRepo.(repository.RepoRepository),
			linkRepo.(repository.ExternalLinkRepository),
			summarizer.(services.Summarizer),
			broadcaster.(services.AnalysisBroadcaster),
			cfg.(config.AnalysisConfig).GetAnalysisWorkers(),
			slog.Default(),
		), nil
	})
	if err != nil {
		return fmt.Errorf("failed to register analysis service: %w", err)
	}

	// Health Service
	err = container.RegisterSingleton(HealthService, func(ctx context.Context, c Container) (interface{}, error) {
		cfg, err := c.ResolveWithContext(ctx, ConfigService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config: %w", err)
		}

		broadcaster, err := c.ResolveWithContext(ctx, AnalysisBroadcasterService)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve analysis broadcaster: %w", err)
		}

		svc := services.NewHealthService(version, cfg.(config.Config).GetEnvironment())
		svc.RegisterChecker(services.NewDatabaseHealthChecker(db))
		svc.RegisterChecker(services.NewBroadcasterHealthChecker(broadcaster.(services.AnalysisBroadcaster)))

		// The GitHub API is the one external dependency worth watching.
		// It reports degraded, never unhealthy, so it cannot fail readiness.
		if cfg.(config.GitHubConfig).GetGitHubClientID() != "" {
			svc.RegisterChecker(services.NewHTTPHealthChecker("github_api", "https://api.github.com", 5*time.Second, http.StatusOK))
		}

		return svc, nil
	})
	if err != nil {
		return fmt.Errorf("failed to register health service: %w", err)
	}

	return nil
}

// ResolveAuthService resolves the auth service from the container
func ResolveAuthService(container Container) (services.AuthService, error) {
	service, err := container.Resolve(AuthService)
	if err != nil {
		return nil, err
	}
	return service.(services.AuthService), nil
}

// ResolveGitHubLinkService resolves the GitHub link service from the container
func ResolveGitHubLinkService(container Container) (services.GitHubLinkService, error) {
	service, err := container.Resolve(GitHubLinkService)
	if err != nil {
		return nil, err
	}
	return service.(services.GitHubLinkService), nil
}

// ResolveGitHubSyncService resolves the GitHub sync service from the container
func ResolveGitHubSyncService(container Container) (services.GitHubSyncService, error) {
	service, err := container.Resolve(GitHubSyncService)
	if err != nil {
		return nil, err
	}
	return service.(services.GitHubSyncService), nil
}

// ResolveLinkedInService resolves the LinkedIn service from the container
func ResolveLinkedInService(container Container) (services.LinkedInService, error) {
	service, err := container.Resolve(LinkedInService)
	if err != nil {
		return nil, err
	}
	return service.(services.LinkedInService), nil
}

// ResolveAnalysisService resolves the analysis service from the container
func ResolveAnalysisService(container Container) (services.AnalysisService, error) {
	service, err := container.Resolve(AnalysisService)
	if err != nil {
		return nil, err
	}
	return service.(services.AnalysisService), nil
}

// ResolveAnalysisBroadcaster resolves the analysis broadcaster from the container
func ResolveAnalysisBroadcaster(container Container) (services.AnalysisBroadcaster, error) {
	service, err := container.Resolve(AnalysisBroadcasterService)
	if err != nil {
		return nil, err
	}
	return service.(services.AnalysisBroadcaster), nil
}

// ResolveHealthService resolves the health service from the container
func ResolveHealthService(container Container) (*services.HealthService, error) {
	service, err := container.Resolve(HealthService)
	if err != nil {
		return nil, err
	}
	return service.(*services.HealthService), nil
}
