package tui

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ishannjr/neonblue/internal/api"
	"github.com/ishannjr/neonblue/internal/model"
)

func newOnlineModel(t *testing.T, client *api.Client) *Model {
	t.Helper()
	m := NewModel(client, "", 1)
	updated, _ := m.Update(healthMsg{health: model.Health{Status: "healthy", Version: "1.0.0"}})
	return updated.(*Model)
}

func sampleExperiment() model.Experiment {
	return model.Experiment{
		ID:        7,
		Name:      "checkout-button",
		Status:    model.StatusRunning,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Variants: []model.Variant{
			{ID: 1, Name: "control", TrafficAllocation: 50},
			{ID: 2, Name: "treatment", TrafficAllocation: 50},
		},
	}
}

func TestSubmitLoginEmptyTokenStaysLocal(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	m := newOnlineModel(t, api.NewClient(api.WithBaseURL(server.URL)))
	m.tokenInput.SetValue("   ")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd != nil {
		t.Fatalf("empty token must not produce a command")
	}
	if m.authErr == "" {
		t.Fatalf("expected a validation error")
	}
	if requests != 0 {
		t.Fatalf("expected 0 requests, got %d", requests)
	}
}

func TestSubmitLoginOffline(t *testing.T) {
	m := NewModel(api.NewClient(), "", 1)
	updated, _ := m.Update(healthMsg{err: errors.New("connection refused")})
	m = updated.(*Model)
	if m.health != healthOffline {
		t.Fatalf("expected offline health state")
	}
	m.tokenInput.SetValue("secret")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd != nil {
		t.Fatalf("offline login must not produce a command")
	}
	if m.authErr == "" {
		t.Fatalf("expected an offline error message")
	}
}

func TestLoginSuccessLoadsExperiments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(model.ExperimentList{
			Experiments: []model.Experiment{sampleExperiment()},
			Total:       1,
		})
	}))
	defer server.Close()

	m := newOnlineModel(t, api.NewClient(api.WithBaseURL(server.URL)))
	m.tokenInput.SetValue("secret")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(*Model)
	if cmd == nil {
		t.Fatalf("valid login must produce a command")
	}
	updated, _ = m.Update(cmd())
	m = updated.(*Model)
	if !m.authenticated {
		t.Fatalf("expected authenticated state")
	}
	if len(m.experiments) != 1 || m.experiments[0].Name != "checkout-button" {
		t.Fatalf("unexpected experiments: %+v", m.experiments)
	}
}

func TestLoginFailureStaysUnauthenticated(t *testing.T) {
	m := newOnlineModel(t, api.NewClient())
	m.authPending = true
	updated, _ := m.Update(experimentsMsg{err: errors.New("invalid token")})
	m = updated.(*Model)
	if m.authenticated {
		t.Fatalf("failed login must stay unauthenticated")
	}
	if m.authErr != "invalid token" {
		t.Fatalf("unexpected auth error: %q", m.authErr)
	}
	if m.authPending {
		t.Fatalf("pending flag must clear")
	}
}

func TestSelectExperimentSetsLoadingImmediately(t *testing.T) {
	m := newOnlineModel(t, api.NewClient())
	m.authenticated = true
	exp := sampleExperiment()
	cmd := m.selectExperiment(exp)
	if cmd == nil {
		t.Fatalf("selection must produce a fetch command")
	}
	if m.selected == nil || m.selected.ID != exp.ID {
		t.Fatalf("selection must be visible before results arrive")
	}
	if m.load != loadLoading {
		t.Fatalf("expected loading state, got %v", m.load)
	}
	if m.resultsGen != 1 {
		t.Fatalf("expected generation 1, got %d", m.resultsGen)
	}
}

func TestStaleResultsDiscarded(t *testing.T) {
	m := newOnlineModel(t, api.NewClient())
	m.authenticated = true
	exp := sampleExperiment()
	m.selectExperiment(exp)
	m.selectExperiment(exp) // supersedes the first fetch

	stale := model.ExperimentResults{ExperimentID: 99}
	updated, _ := m.Update(resultsMsg{gen: 1, results: stale})
	m = updated.(*Model)
	if m.results != nil {
		t.Fatalf("stale response must be discarded")
	}
	if m.load != loadLoading {
		t.Fatalf("stale response must not change load state, got %v", m.load)
	}

	fresh := model.ExperimentResults{ExperimentID: exp.ID}
	updated, _ = m.Update(resultsMsg{gen: 2, results: fresh})
	m = updated.(*Model)
	if m.results == nil || m.results.ExperimentID != exp.ID {
		t.Fatalf("current generation must apply")
	}
	if m.load != loadLoaded {
		t.Fatalf("expected loaded state, got %v", m.load)
	}
}

func TestResultsFailureKeepsSelection(t *testing.T) {
	m := newOnlineModel(t, api.NewClient())
	m.authenticated = true
	exp := sampleExperiment()
	m.selectExperiment(exp)

	updated, _ := m.Update(resultsMsg{gen: 1, err: errors.New("HTTP 500")})
	m = updated.(*Model)
	if m.load != loadFailed {
		t.Fatalf("expected failed state, got %v", m.load)
	}
	if m.results != nil {
		t.Fatalf("failure must clear results")
	}
	if m.selected == nil || m.selected.ID != exp.ID {
		t.Fatalf("failure must keep the selection for retry")
	}
	if m.loadErr != "HTTP 500" {
		t.Fatalf("unexpected load error: %q", m.loadErr)
	}
}

func TestTabNavigationWraps(t *testing.T) {
	m := newOnlineModel(t, api.NewClient())
	m.authenticated = true
	m.moveTab(-1)
	if m.activeTab != len(m.tabs)-1 {
		t.Fatalf("left from first tab must wrap to last, got %d", m.activeTab)
	}
	m.moveTab(1)
	if m.activeTab != 0 {
		t.Fatalf("right from last tab must wrap to first, got %d", m.activeTab)
	}
}
