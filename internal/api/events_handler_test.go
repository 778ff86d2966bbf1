package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kxshrx/flynch/internal/api"
	"github.com/kxshrx/flynch/internal/api/middleware"
	"github.com/kxshrx/flynch/internal/domain"
	"github.com/kxshrx/flynch/internal/services"
	"github.com/kxshrx/flynch/internal/testutil"
)

func setupEventsTestServer(t *testing.T) (*httptest.Server, services.AnalysisBroadcaster) {
	t.Helper()

	router := testutil.NewTestRouter()

	user := testutil.MockUser("user-1", "test@example.com", "tester", "Test User")
	authMiddleware := middleware.NewAuthMiddleware(&stubAuthService{user: user})

	broadcaster := services.NewAnalysisBroadcaster(services.AnalysisBroadcasterConfig{}, nil)
	handler := api.NewEventsHandler(broadcaster, nil)

	apiGroup := router.Group("/api")
	handler.RegisterRoutes(apiGroup, authMiddleware)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, broadcaster
}

func analysesStreamURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events/analyses"
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var event map[string]interface{}
	if err := json.Unmarshal(message, &event); err != nil {
		t.Fatalf("Event is not valid JSON: %v", err)
	}
	return event
}

func TestEventsHandler_StreamsOwnEvents(t *testing.T) {
	server, broadcaster := setupEventsTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer mock-token"}}
	conn, _, err := websocket.DefaultDialer.Dial(analysesStreamURL(server), header)
	if err != nil {
		t.Fatalf("Failed to open event stream: %v", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Another user's event published first must never show up here
	broadcaster.Publish(&domain.AnalysisEvent{
		UserID:     "user-2",
		AnalysisID: "analysis-other",
		RepoName:   "other",
		Status:     domain.AnalysisCompleted,
		Timestamp:  time.Now(),
	})
	broadcaster.Publish(&domain.AnalysisEvent{
		UserID:     "user-1",
		AnalysisID: "analysis-1",
		RepoName:   "alpha",
		Status:     domain.AnalysisPending,
		Timestamp:  time.Now(),
	})

	event := readEvent(t, conn)
	if event["analysis_id"] != "analysis-1" {
		t.Errorf("Expected analysis-1, got %v", event["analysis_id"])
	}
	if event["repo_name"] != "alpha" {
		t.Errorf("Expected repo alpha, got %v", event["repo_name"])
	}
	if event["status"] != "pending" {
		t.Errorf("Expected pending status, got %v", event["status"])
	}

	// The stream keeps delivering on the same connection
	broadcaster.Publish(&domain.AnalysisEvent{
		UserID:     "user-1",
		AnalysisID: "analysis-1",
		RepoName:   "alpha",
		Status:     domain.AnalysisCompleted,
		Timestamp:  time.Now(),
	})

	event = readEvent(t, conn)
	if event["status"] != "completed" {
		t.Errorf("Expected completed status, got %v", event["status"])
	}
}

func TestEventsHandler_RequiresAuth(t *testing.T) {
	server, _ := setupEventsTestServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(analysesStreamURL(server), nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("Expected the handshake to fail without a token")
	}
	if resp == nil {
		t.Fatal("Expected an HTTP handshake response")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

func TestEventsHandler_UnsubscribesOnClose(t *testing.T) {
	server, broadcaster := setupEventsTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer mock-token"}}
	conn, _, err := websocket.DefaultDialer.Dial(analysesStreamURL(server), header)
	if err != nil {
		t.Fatalf("Failed to open event stream: %v", err)
	}

	if count := broadcaster.SubscriberCount(); count != 1 {
		t.Fatalf("Expected 1 subscription after connect, got %d", count)
	}

	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for broadcaster.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected the subscription to be released, still have %d", broadcaster.SubscriberCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
