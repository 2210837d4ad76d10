package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wayfarer/tripdesk/internal/auth"
	"wayfarer/tripdesk/internal/common"
	"wayfarer/tripdesk/internal/constants"
	"wayfarer/tripdesk/internal/db/repositories"
	"wayfarer/tripdesk/internal/freshness"
	"wayfarer/tripdesk/internal/metrics"
	"wayfarer/tripdesk/internal/models/dtos"
	gormModels "wayfarer/tripdesk/internal/models/gorm"
	"wayfarer/tripdesk/internal/poller"
	"wayfarer/tripdesk/internal/providers"
	"wayfarer/tripdesk/internal/services"
	"wayfarer/tripdesk/internal/syncer"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Prometheus metrics register against the process-global registry, so the
// test registry is created once per binary.
var testMetrics = metrics.NewMetricsRegistry()

// Mock StatusProvider
type mockStatusProvider struct {
	fetchFunc func(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error)
}

func (m *mockStatusProvider) FetchStatuses(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error) {
	return m.fetchFunc(ctx, flights)
}

// Mock InboxScanner
type mockScanner struct {
	scanFunc func(ctx context.Context, accountID string) (*dtos.ScanResult, error)
}

func (m *mockScanner) Scan(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
	return m.scanFunc(ctx, accountID)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&gormModels.Trip{}, &gormModels.Reservation{}, &gormModels.AccountSyncHistory{}); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	return db
}

func newTestDeps(t *testing.T, db *gorm.DB, provider services.StatusProvider, scanner syncer.InboxScanner) *Dependencies {
	t.Helper()

	repos := &Repositories{
		Reservations: repositories.NewReservationRepo(db),
		Trips:        repositories.NewTripRepo(db),
		SyncHistory:  repositories.NewSyncHistoryRepo(db),
	}

	aggregator := services.NewStatusAggregator(
		common.NewCacheService(600, 600),
		provider,
		repos.Reservations,
		repos.Trips,
		time.Minute,
	)

	return &Dependencies{
		Repo: repos,
		Services: &Services{
			Aggregator: aggregator,
			Poller:     poller.NewPoller(repos.Reservations, aggregator),
			Syncer:     syncer.NewOrchestrator(scanner, repos.SyncHistory, syncer.DefaultPolicy()),
		},
		Metrics: testMetrics,
	}
}

func newTestRouter(deps *Dependencies) http.Handler {
	handlers := NewHandlers(deps)

	r := chi.NewRouter()
	r.Get("/api/v1/trips/{trip_id}/status", handlers.TripStatus())
	r.Post("/api/v1/trips/{trip_id}/refresh", handlers.RefreshTrip())
	r.Post("/api/v1/sync", handlers.StartSync())
	r.Get("/api/v1/sync/status", handlers.SyncStatus())
	return r
}

func seedTripWithFlight(t *testing.T, db *gorm.DB, tripID, ownerID, resID string, details gormModels.AttrBag) {
	t.Helper()

	trip := gormModels.Trip{ID: tripID, OwnerID: ownerID, Name: "Test trip"}
	if err := db.Create(&trip).Error; err != nil {
		t.Fatalf("Failed to seed trip: %v", err)
	}

	res := gormModels.Reservation{
		ID:             resID,
		TripID:         tripID,
		Kind:           constants.ReservationTypeFlight,
		Title:          "Test flight",
		ScheduledStart: time.Now().Add(3 * time.Hour),
		Details:        details,
	}
	if err := db.Create(&res).Error; err != nil {
		t.Fatalf("Failed to seed reservation: %v", err)
	}
}

func doRequest(router http.Handler, method, target, accountID, source string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if accountID != "" {
		ctx := auth.SetAccountClaims(req.Context(), &auth.AccountClaims{AccountID: accountID, Source: source})
		req = req.WithContext(ctx)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestTripStatus_ReturnsCachedRecords(t *testing.T) {
	db := setupTestDB(t)

	details := freshness.Encode(gormModels.AttrBag{"confirmation": "XYZ789"}, freshness.Record{
		Status:        constants.FlightStatusScheduled,
		DepartureGate: "A3",
		CheckedAt:     time.Now(),
		Source:        freshness.DefaultSource,
	})
	seedTripWithFlight(t, db, "trip-1", "acc-1", "res-1", details)

	provider := &mockStatusProvider{
		fetchFunc: func(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error) {
			t.Fatal("Status read must not call upstream")
			return nil, nil
		},
	}
	router := newTestRouter(newTestDeps(t, db, provider, &mockScanner{}))

	rr := doRequest(router, "GET", "/api/v1/trips/trip-1/status", "acc-1", "jwt")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var response dtos.APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("Expected status ok, got %s", response.Status)
	}

	data, _ := response.Data.(map[string]interface{})
	perEntity, _ := data["per_entity"].(map[string]interface{})
	if _, found := perEntity["res-1"]; !found {
		t.Errorf("Expected a cached record for res-1, got %v", response.Data)
	}
}

func TestTripStatus_WrongOwner(t *testing.T) {
	db := setupTestDB(t)
	seedTripWithFlight(t, db, "trip-1", "acc-1", "res-1", gormModels.AttrBag{})

	router := newTestRouter(newTestDeps(t, db, &mockStatusProvider{}, &mockScanner{}))

	rr := doRequest(router, "GET", "/api/v1/trips/trip-1/status", "acc-2", "jwt")

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for foreign trip, got %d", rr.Code)
	}
}

func TestRefreshTrip_RefreshesAndPersists(t *testing.T) {
	db := setupTestDB(t)
	seedTripWithFlight(t, db, "trip-1", "acc-1", "res-1", gormModels.AttrBag{"confirmation": "XYZ789"})

	provider := &mockStatusProvider{
		fetchFunc: func(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error) {
			return map[string]freshness.Record{
				"res-1": {
					Status:        constants.FlightStatusActive,
					DepartureGate: "C7",
					CheckedAt:     time.Now(),
					Source:        freshness.DefaultSource,
				},
			}, nil
		},
	}
	router := newTestRouter(newTestDeps(t, db, provider, &mockScanner{}))

	rr := doRequest(router, "POST", "/api/v1/trips/trip-1/refresh", "acc-1", "jwt")

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var stored gormModels.Reservation
	if err := db.First(&stored, "id = ?", "res-1").Error; err != nil {
		t.Fatalf("Failed to reload reservation: %v", err)
	}
	rec, ok := freshness.Decode(stored.Details)
	if !ok {
		t.Fatal("Expected a persisted freshness record")
	}
	if rec.DepartureGate != "C7" {
		t.Errorf("Expected persisted gate C7, got %q", rec.DepartureGate)
	}
}

func TestRefreshTrip_SecondCallRateLimited(t *testing.T) {
	db := setupTestDB(t)
	seedTripWithFlight(t, db, "trip-1", "acc-1", "res-1", gormModels.AttrBag{})

	provider := &mockStatusProvider{
		fetchFunc: func(ctx context.Context, flights []providers.FlightQuery) (map[string]freshness.Record, error) {
			return map[string]freshness.Record{}, nil
		},
	}
	router := newTestRouter(newTestDeps(t, db, provider, &mockScanner{}))

	first := doRequest(router, "POST", "/api/v1/trips/trip-1/refresh", "acc-1", "jwt")
	if first.Code != http.StatusOK {
		t.Fatalf("Expected first refresh to succeed, got %d", first.Code)
	}

	second := doRequest(router, "POST", "/api/v1/trips/trip-1/refresh", "acc-1", "jwt")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429 inside cooldown, got %d", second.Code)
	}

	var response dtos.APIResponse
	if err := json.NewDecoder(second.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	data, _ := response.Data.(map[string]interface{})
	if retry, _ := data["retry_after_seconds"].(float64); retry <= 0 {
		t.Errorf("Expected a positive retry_after_seconds, got %v", response.Data)
	}
}

func TestStartSync_MissingClaims(t *testing.T) {
	db := setupTestDB(t)
	router := newTestRouter(newTestDeps(t, db, &mockStatusProvider{}, &mockScanner{}))

	rr := doRequest(router, "POST", "/api/v1/sync", "", "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestStartSync_Accepted(t *testing.T) {
	db := setupTestDB(t)

	scanner := &mockScanner{
		scanFunc: func(ctx context.Context, accountID string) (*dtos.ScanResult, error) {
			return &dtos.ScanResult{TripsCreated: 1, EmailsProcessed: 4}, nil
		},
	}
	router := newTestRouter(newTestDeps(t, db, &mockStatusProvider{}, scanner))

	rr := doRequest(router, "POST", "/api/v1/sync", "acc-1", "jwt")

	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rr.Code, rr.Body.String())
	}

	status := doRequest(router, "GET", "/api/v1/sync/status", "acc-1", "jwt")
	if status.Code != http.StatusOK {
		t.Errorf("Expected status 200 from sync status, got %d", status.Code)
	}
}
