package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fentz26/stratowatch/internal/models"
)

func TestStateHistory(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]models.HistoryPoint{
			{Time: 1000, Running: 1, Pending: 2, Failed: 3},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	limit := 3600
	points, err := c.StateHistory(context.Background(), &limit, "")
	if err != nil {
		t.Fatalf("StateHistory failed: %v", err)
	}
	if gotPath != "/compute/state_history/" || gotQuery != "limit=3600" {
		t.Errorf("Unexpected request %s?%s", gotPath, gotQuery)
	}
	if len(points) != 1 || points[0].Failed != 3 {
		t.Errorf("Unexpected points %+v", points)
	}

	if _, err := c.ForGroup("web").FetchHistory(context.Background(), nil); err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if gotPath != "/compute/groups/web/state_history/" || gotQuery != "" {
		t.Errorf("Unexpected group request %s?%s", gotPath, gotQuery)
	}
}

func TestPushSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var req PushRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(PushResponse{Stored: len(req.Groups) == 1, ID: "abc"})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).PushSnapshot(context.Background(), []models.GroupCounts{
		{GroupID: "web", Counts: models.Counts{Running: 2}},
	})
	if err != nil {
		t.Fatalf("PushSnapshot failed: %v", err)
	}
	if !resp.Stored || resp.ID != "abc" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid limit", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).StateHistory(context.Background(), nil, "")
	if !errors.Is(err, ErrAPI) {
		t.Errorf("Expected ErrAPI, got %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(HealthResponse{OK: healthy, DB: "ok", Version: "test"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	h, err := c.CheckHealth(context.Background())
	if err != nil || !h.OK {
		t.Fatalf("Expected healthy, got %+v %v", h, err)
	}

	healthy = false
	h, err = c.CheckHealth(context.Background())
	if err == nil {
		t.Error("Expected error for unhealthy daemon")
	}
	if h == nil || h.OK {
		t.Errorf("Expected parsed unhealthy payload, got %+v", h)
	}
}
