package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/testutil"
)

type syncFixture struct {
	service  *gitHubSyncService
	linkRepo *testutil.MockExternalLinkRepository
	repoRepo *testutil.MockRepoRepository
	close    func()
}

func newSyncFixture(t *testing.T, handler http.Handler) *syncFixture {
	t.Helper()

	server := httptest.NewServer(handler)
	linkRepo := testutil.NewMockExternalLinkRepository()
	repoRepo := testutil.NewMockRepoRepository()

	return &syncFixture{
		service: &gitHubSyncService{
			linkRepo:   linkRepo,
			repoRepo:   repoRepo,
			apiBaseURL: server.URL + "/",
		},
		linkRepo: linkRepo,
		repoRepo: repoRepo,
		close:    server.Close,
	}
}

func syncRepoJSON(id int64, name string, stars int) string {
	return fmt.Sprintf(
		`{"id":%d,"name":%q,"full_name":"octocat/%s","html_url":"https://github.com/octocat/%s",`+
			`"description":"Fixture %s","language":"Go","stargazers_count":%d,"forks_count":1,`+
			`"pushed_at":"2024-03-10T12:00:00Z","owner":{"login":"octocat"}}`,
		id, name, name, name, name, stars,
	)
}

func TestGitHubSyncService_Sync(t *testing.T) {
	var gotAuth, gotVisibility, gotAffiliation string

	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotVisibility = r.URL.Query().Get("visibility")
		gotAffiliation = r.URL.Query().Get("affiliation")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s,%s]", syncRepoJSON(101, "repo-one", 5), syncRepoJSON(102, "repo-two", 2))
	})
	mux.HandleFunc("/repos/octocat/repo-one/languages", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Go":1200,"Makefile":40}`)
	})
	mux.HandleFunc("/repos/octocat/repo-one/readme", func(w http.ResponseWriter, _ *http.Request) {
		readme := base64.StdEncoding.EncodeToString([]byte("# repo-one\n\nA tiny fixture project.\n"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","name":"README.md","path":"README.md","content":%q}`, readme)
	})

	fixture := newSyncFixture(t, mux)
	defer fixture.close()
	fixture.linkRepo.AddLink(testutil.MockLink("user123", 42, "octocat"))

	// Stale snapshot no longer present upstream
	stale := testutil.MockRepo("user123", 999, "deleted-repo")
	fixture.repoRepo.AddRepo(stale)

	result, err := fixture.service.Sync(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", result.Processed)
	}
	if result.Pruned != 1 {
		t.Errorf("Expected 1 pruned, got %d", result.Pruned)
	}

	if gotAuth != "Bearer gho_testtoken" {
		t.Errorf("Expected the link token on the request, got %q", gotAuth)
	}
	if gotVisibility != "public" || gotAffiliation != "owner" {
		t.Errorf("Expected public/owner listing, got %s/%s", gotVisibility, gotAffiliation)
	}

	one, err := fixture.repoRepo.GetByUserAndName(context.Background(), "user123", "repo-one")
	if err != nil {
		t.Fatalf("Expected repo-one snapshot: %v", err)
	}
	if one.GithubID != 101 || one.FullName != "octocat/repo-one" || one.Stars != 5 {
		t.Errorf("Unexpected snapshot fields: %+v", one)
	}
	if len(one.Languages) != 2 || one.Languages[0] != "Go" || one.Languages[1] != "Makefile" {
		t.Errorf("Expected sorted languages, got %v", one.Languages)
	}
	if !one.HasReadme || one.Readme == "" {
		t.Error("Expected the README to be captured")
	}
	if one.PushedAt == nil {
		t.Error("Expected the pushed time to be captured")
	}

	// repo-two had no languages or README endpoints registered
	two, err := fixture.repoRepo.GetByUserAndName(context.Background(), "user123", "repo-two")
	if err != nil {
		t.Fatalf("Expected repo-two snapshot: %v", err)
	}
	if two.HasReadme || len(two.Languages) != 0 {
		t.Errorf("Expected bare enrichment for repo-two, got %+v", two)
	}

	if _, err := fixture.repoRepo.GetByUserAndName(context.Background(), "user123", "deleted-repo"); err == nil {
		t.Error("Expected the stale snapshot to be pruned")
	}
}

func TestGitHubSyncService_Sync_Paginates(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprintf(w, "[%s]", syncRepoJSON(202, "page-two-repo", 0))
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/user/repos?page=2>; rel="next"`, server.URL))
		fmt.Fprintf(w, "[%s]", syncRepoJSON(201, "page-one-repo", 0))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	linkRepo := testutil.NewMockExternalLinkRepository()
	repoRepo := testutil.NewMockRepoRepository()
	service := &gitHubSyncService{
		linkRepo:   linkRepo,
		repoRepo:   repoRepo,
		apiBaseURL: server.URL + "/",
	}
	linkRepo.AddLink(testutil.MockLink("user123", 42, "octocat"))

	result, err := service.Sync(context.Background(), "user123")
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if result.Processed != 2 {
		t.Errorf("Expected both pages processed, got %d", result.Processed)
	}
	if _, err := repoRepo.GetByUserAndName(context.Background(), "user123", "page-two-repo"); err != nil {
		t.Errorf("Expected the second page snapshot: %v", err)
	}
}

func TestGitHubSyncService_Sync_NotConnected(t *testing.T) {
	fixture := newSyncFixture(t, http.NewServeMux())
	defer fixture.close()

	_, err := fixture.service.Sync(context.Background(), "user123")
	if err == nil {
		t.Fatal("Expected sync without a link to fail")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.ValidationError || domainErr.Code != "GITHUB_NOT_CONNECTED" {
		t.Errorf("Expected GITHUB_NOT_CONNECTED validation, got %s/%s", domainErr.Type, domainErr.Code)
	}
}

func TestGitHubSyncService_Sync_UpstreamFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	fixture := newSyncFixture(t, mux)
	defer fixture.close()
	fixture.linkRepo.AddLink(testutil.MockLink("user123", 42, "octocat"))

	_, err := fixture.service.Sync(context.Background(), "user123")
	if err == nil {
		t.Fatal("Expected an upstream failure to surface")
	}

	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("Expected domain error, got %T", err)
	}
	if domainErr.Type != domain.ExternalServiceError || domainErr.Code != "GITHUB_LIST_FAILED" {
		t.Errorf("Expected GITHUB_LIST_FAILED, got %s/%s", domainErr.Type, domainErr.Code)
	}
}

func TestGitHubSyncService_List(t *testing.T) {
	fixture := newSyncFixture(t, http.NewServeMux())
	defer fixture.close()

	for i := int64(1); i <= 3; i++ {
		fixture.repoRepo.AddRepo(testutil.MockRepo("user123", i, fmt.Sprintf("repo-%d", i)))
	}
	fixture.repoRepo.AddRepo(testutil.MockRepo("other", 9, "not-yours"))

	repos, err := fixture.service.List(context.Background(), "user123", 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(repos) != 2 {
		t.Errorf("Expected the limit to apply, got %d repos", len(repos))
	}
	for _, repo := range repos {
		if repo.UserID != "user123" {
			t.Errorf("Expected only the user's snapshots, got %s", repo.UserID)
		}
	}
}
