// README: Integration tests for the trip and driver HTTP endpoints.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"veni/internal/config"
	venihttp "veni/internal/http"
	"veni/internal/modules/dispatch"
	"veni/internal/modules/driver"
	"veni/internal/modules/placement"
	"veni/internal/modules/pricing"
	"veni/internal/modules/trip"
	"veni/internal/notify"
)

const testSecret = "test-secret"

func newTestRouter(t *testing.T, mode string, seed []config.DriverSeed) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	trips := trip.NewService(
		trip.NewMemStore(),
		pricing.NewEstimator(config.FareConfig{Base: 20, PerKm: 7}),
		log,
	)
	drivers := driver.NewDirectory(driver.NewMemStore(), config.DriversConfig{SearchRadiusKm: 15}, log)
	if err := drivers.Seed(context.Background(), seed); err != nil {
		t.Fatalf("seed drivers: %v", err)
	}
	coord := dispatch.NewCoordinator(
		trips,
		drivers,
		placement.NewClassifier(3),
		placement.NewScorer(config.PlacementConfig{
			OverloadThreshold: 0.8,
			PriorityDiscount:  0.9,
			Servers:           config.DefaultServers,
		}),
		notify.NewLogNotifier(log),
		config.DispatchConfig{Mode: mode},
		log,
	)

	return venihttp.NewRouter(venihttp.RouterDeps{
		Coordinator: coord,
		Trips:       trips,
		Drivers:     drivers,
		JWTSecret:   testSecret,
		Log:         log,
	})
}

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
}

var tripRequestBody = map[string]any{
	"origin":      map[string]float64{"lat": 20.673, "lng": -103.343},
	"destination": map[string]float64{"lat": 20.679, "lng": -103.358},
}

func TestRequestTrip_Unauthenticated(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	w := doRequest(r, http.MethodPost, "/api/trips/request", "", tripRequestBody)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRequestTrip_ObjectCoordinates(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", w.Code, w.Body.String())
	}

	var res struct {
		Trip struct {
			ID     string  `json:"id"`
			Status string  `json:"status"`
			Price  float64 `json:"price"`
		} `json:"trip"`
		Server      string `json:"server"`
		RequestType string `json:"request_type"`
	}
	decodeBody(t, w, &res)
	if res.Trip.Status != "pending" {
		t.Errorf("status = %s, want pending", res.Trip.Status)
	}
	if res.RequestType != "light" {
		t.Errorf("request type = %s, want light", res.RequestType)
	}
	if res.Trip.Price < 33 || res.Trip.Price > 34.5 {
		t.Errorf("price = %f, want ~33.65", res.Trip.Price)
	}
	if res.Server == "" {
		t.Errorf("expected an assigned server")
	}
}

func TestRequestTrip_ArrayCoordinates(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, map[string]any{
		"origin":      []float64{20.673, -103.343},
		"destination": []float64{20.679, -103.358},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", w.Code, w.Body.String())
	}
}

func TestRequestTrip_BadCoordinates(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, map[string]any{
		"origin":      []float64{20.673},
		"destination": []float64{20.679, -103.358},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRequestTrip_MissingCoordinates(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "empty body", body: map[string]any{}},
		{name: "no origin", body: map[string]any{
			"destination": map[string]float64{"lat": 20.679, "lng": -103.358},
		}},
		{name: "no destination", body: map[string]any{
			"origin": map[string]float64{"lat": 20.673, "lng": -103.343},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/api/trips/request", rider, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d (body: %s)", w.Code, w.Body.String())
			}
		})
	}

	// Nothing may have been created along the way.
	w := doRequest(r, http.MethodGet, "/api/trips", rider, nil)
	var res struct {
		Trips []struct{} `json:"trips"`
	}
	decodeBody(t, w, &res)
	if len(res.Trips) != 0 {
		t.Errorf("expected no trips after rejected requests, got %d", len(res.Trips))
	}
}

func TestAccept_RequiresDriverRole(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)
	var res struct {
		Trip struct {
			ID string `json:"id"`
		} `json:"trip"`
	}
	decodeBody(t, w, &res)

	w = doRequest(r, http.MethodPatch, "/api/trips/"+res.Trip.ID+"/accept", rider, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestTripLifecycle_OverHTTP(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")
	drv := signToken(t, "driver-1", "driver")
	other := signToken(t, "driver-2", "driver")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)
	var res struct {
		Trip struct {
			ID string `json:"id"`
		} `json:"trip"`
	}
	decodeBody(t, w, &res)
	id := res.Trip.ID

	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/accept", drv, nil); w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d (body: %s)", w.Code, w.Body.String())
	}
	// A second accept maps to 409.
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/accept", other, nil); w.Code != http.StatusConflict {
		t.Errorf("double accept: expected 409, got %d", w.Code)
	}
	// Only the assigned driver may start.
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/start", other, nil); w.Code != http.StatusForbidden {
		t.Errorf("foreign start: expected 403, got %d", w.Code)
	}
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/start", drv, nil); w.Code != http.StatusOK {
		t.Fatalf("start: expected 200, got %d", w.Code)
	}
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/complete", drv, nil); w.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", w.Code)
	}
	// Completing twice maps to 409.
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+id+"/complete", drv, nil); w.Code != http.StatusConflict {
		t.Errorf("double complete: expected 409, got %d", w.Code)
	}

	var got struct {
		Status string `json:"status"`
	}
	w = doRequest(r, http.MethodGet, "/api/trips/"+id, rider, nil)
	decodeBody(t, w, &got)
	if got.Status != "completed" {
		t.Errorf("final status = %s, want completed", got.Status)
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	w := doRequest(r, http.MethodGet, "/api/trips/no-such-trip", rider, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCancel_StrangerForbidden(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")
	stranger := signToken(t, "rider-2", "rider")

	w := doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)
	var res struct {
		Trip struct {
			ID string `json:"id"`
		} `json:"trip"`
	}
	decodeBody(t, w, &res)

	if w = doRequest(r, http.MethodPatch, "/api/trips/"+res.Trip.ID+"/cancel", stranger, nil); w.Code != http.StatusForbidden {
		t.Errorf("stranger cancel: expected 403, got %d", w.Code)
	}
	if w = doRequest(r, http.MethodPatch, "/api/trips/"+res.Trip.ID+"/cancel", rider, nil); w.Code != http.StatusOK {
		t.Errorf("rider cancel: expected 200, got %d", w.Code)
	}
}

func TestDriverEndpoints(t *testing.T) {
	r := newTestRouter(t, "manual", config.DefaultDriverSeed)
	rider := signToken(t, "rider-1", "rider")
	drv := signToken(t, "d1", "driver")

	w := doRequest(r, http.MethodGet, "/api/drivers/nearby?lat=20.673&lng=-103.343&limit=2", rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("nearby: expected 200, got %d", w.Code)
	}
	var nearby struct {
		Drivers []struct {
			ID         string  `json:"id"`
			DistanceKm float64 `json:"distance_km"`
		} `json:"drivers"`
	}
	decodeBody(t, w, &nearby)
	if len(nearby.Drivers) != 2 {
		t.Fatalf("expected 2 drivers, got %d", len(nearby.Drivers))
	}
	if nearby.Drivers[0].ID != "d1" {
		t.Errorf("closest driver = %s, want d1", nearby.Drivers[0].ID)
	}

	// A driver may only mutate their own record.
	body := map[string]any{"location": map[string]float64{"lat": 20.70, "lng": -103.40}}
	if w = doRequest(r, http.MethodPut, "/api/drivers/d2/location", drv, body); w.Code != http.StatusForbidden {
		t.Errorf("foreign location update: expected 403, got %d", w.Code)
	}
	if w = doRequest(r, http.MethodPut, "/api/drivers/d1/location", drv, body); w.Code != http.StatusNoContent {
		t.Errorf("location update: expected 204, got %d (body: %s)", w.Code, w.Body.String())
	}
	avail := map[string]any{"available": false}
	if w = doRequest(r, http.MethodPut, "/api/drivers/d1/availability", drv, avail); w.Code != http.StatusNoContent {
		t.Errorf("availability update: expected 204, got %d", w.Code)
	}
}

func TestMetricsSummary(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	rider := signToken(t, "rider-1", "rider")

	doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)
	doRequest(r, http.MethodPost, "/api/trips/request", rider, tripRequestBody)

	w := doRequest(r, http.MethodGet, "/api/metrics/summary", rider, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var res struct {
		Total    int64            `json:"total"`
		ByStatus map[string]int64 `json:"by_status"`
	}
	decodeBody(t, w, &res)
	if res.Total != 2 {
		t.Errorf("total = %d, want 2", res.Total)
	}
	if res.ByStatus["pending"] != 2 {
		t.Errorf("pending = %d, want 2", res.ByStatus["pending"])
	}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	r := newTestRouter(t, "manual", nil)
	w := doRequest(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
