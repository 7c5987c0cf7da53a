package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"veni/internal/config"
	"veni/internal/modules/driver"
	"veni/internal/modules/placement"
	"veni/internal/modules/pricing"
	"veni/internal/modules/trip"
	"veni/internal/notify"
	"veni/internal/types"
)

var (
	origin      = types.Point{Lat: 20.673, Lng: -103.343}
	destination = types.Point{Lat: 20.679, Lng: -103.358}
)

// recordingNotifier captures published events; fail makes every publish error.
type recordingNotifier struct {
	mu          sync.Mutex
	assignments []notify.Assignment
	statuses    []notify.StatusChange
	fail        bool
}

func (r *recordingNotifier) NotifyAssignment(_ context.Context, a notify.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.assignments = append(r.assignments, a)
	return nil
}

func (r *recordingNotifier) NotifyStatusChange(_ context.Context, s notify.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.statuses = append(r.statuses, s)
	return nil
}

type fixture struct {
	coord    *Coordinator
	trips    *trip.Service
	drivers  *driver.Directory
	notifier *recordingNotifier
}

func newFixture(t *testing.T, mode string, seed []config.DriverSeed) *fixture {
	t.Helper()
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

	notifier := &recordingNotifier{}
	coord := NewCoordinator(
		trips,
		drivers,
		placement.NewClassifier(3),
		placement.NewScorer(config.PlacementConfig{
			OverloadThreshold: 0.8,
			PriorityDiscount:  0.9,
			Servers:           config.DefaultServers,
		}),
		notifier,
		config.DispatchConfig{Mode: mode},
		log,
	)
	return &fixture{coord: coord, trips: trips, drivers: drivers, notifier: notifier}
}

func TestRequestTrip_ManualLeavesPending(t *testing.T) {
	f := newFixture(t, "manual", config.DefaultDriverSeed)

	res, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}

	if res.Trip.Status != trip.StatusPending {
		t.Errorf("status = %s, want pending", res.Trip.Status)
	}
	if res.RequestType != placement.RequestLight {
		t.Errorf("request type = %s, want light", res.RequestType)
	}
	// ~1.95 km at base 20 + 7/km.
	if res.Trip.Price < 33 || res.Trip.Price > 34.5 {
		t.Errorf("price = %f, want ~33.65", res.Trip.Price)
	}
	if res.Server == "" {
		t.Errorf("no server assigned")
	}
	if len(f.notifier.assignments) != 0 {
		t.Errorf("manual mode should not notify an assignment")
	}
}

func TestRequestTrip_AutoClaimsNearestDriver(t *testing.T) {
	f := newFixture(t, ModeAuto, config.DefaultDriverSeed)

	res, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}

	if res.Trip.Status != trip.StatusAccepted {
		t.Fatalf("status = %s, want accepted", res.Trip.Status)
	}
	// d1 sits on the origin; d3 is closer than d2 but off duty.
	if res.Trip.DriverID == nil || *res.Trip.DriverID != "d1" {
		t.Errorf("driver = %v, want d1", res.Trip.DriverID)
	}
	if len(f.notifier.assignments) != 1 {
		t.Fatalf("expected 1 assignment event, got %d", len(f.notifier.assignments))
	}
	if f.notifier.assignments[0].TripID != res.Trip.ID {
		t.Errorf("assignment event for wrong trip")
	}
}

func TestRequestTrip_AutoWithEmptyFleetStaysPending(t *testing.T) {
	f := newFixture(t, ModeAuto, nil)

	res, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	if res.Trip.Status != trip.StatusPending {
		t.Errorf("status = %s, want pending", res.Trip.Status)
	}
}

func TestRequestTrip_NotifyFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, ModeAuto, config.DefaultDriverSeed)
	f.notifier.fail = true

	res, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	if res.Trip.Status != trip.StatusAccepted {
		t.Errorf("status = %s, want accepted despite notify failure", res.Trip.Status)
	}
}

func TestRequestTrip_ValidationError(t *testing.T) {
	f := newFixture(t, "manual", nil)

	_, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "",
		Origin:      origin,
		Destination: destination,
	})
	if err != trip.ErrValidation {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAccept_PublishesAssignment(t *testing.T) {
	f := newFixture(t, "manual", config.DefaultDriverSeed)
	ctx := context.Background()

	res, err := f.coord.RequestTrip(ctx, Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}

	claimed, err := f.coord.Accept(ctx, res.Trip.ID, "d2")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if claimed.Status != trip.StatusAccepted {
		t.Errorf("status = %s, want accepted", claimed.Status)
	}
	if len(f.notifier.assignments) != 1 || f.notifier.assignments[0].DriverID != "d2" {
		t.Errorf("missing assignment event for d2")
	}
}

func TestLifecycle_PublishesStatusChanges(t *testing.T) {
	f := newFixture(t, "manual", config.DefaultDriverSeed)
	ctx := context.Background()

	res, err := f.coord.RequestTrip(ctx, Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	if _, err := f.coord.Accept(ctx, res.Trip.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.coord.Start(ctx, res.Trip.ID, "d1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.coord.Complete(ctx, res.Trip.ID, "d1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if len(f.notifier.statuses) != 2 {
		t.Fatalf("expected 2 status events, got %d", len(f.notifier.statuses))
	}
	if f.notifier.statuses[0].To != string(trip.StatusInProgress) ||
		f.notifier.statuses[1].To != string(trip.StatusCompleted) {
		t.Errorf("unexpected status events: %+v", f.notifier.statuses)
	}
}

func TestCancel_PublishesPriorStatus(t *testing.T) {
	f := newFixture(t, "manual", config.DefaultDriverSeed)
	ctx := context.Background()

	res, err := f.coord.RequestTrip(ctx, Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: destination,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	if _, err := f.coord.Accept(ctx, res.Trip.ID, "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.coord.Cancel(ctx, res.Trip.ID, "rider-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(f.notifier.statuses) != 1 {
		t.Fatalf("expected 1 status event, got %d", len(f.notifier.statuses))
	}
	got := f.notifier.statuses[0]
	if got.From != string(trip.StatusAccepted) || got.To != string(trip.StatusCancelled) {
		t.Errorf("status event = %s -> %s, want accepted -> cancelled", got.From, got.To)
	}
}

func TestRequestTrip_HeavyRouteType(t *testing.T) {
	f := newFixture(t, "manual", nil)

	// ~11 km, well past the 3 km threshold.
	far := types.Point{Lat: 20.773, Lng: -103.343}
	res, err := f.coord.RequestTrip(context.Background(), Request{
		RiderID:     "rider-1",
		Origin:      origin,
		Destination: far,
	})
	if err != nil {
		t.Fatalf("request trip: %v", err)
	}
	if res.RequestType != placement.RequestHeavy {
		t.Errorf("request type = %s, want heavy", res.RequestType)
	}
	// api-b is the only GPU node under the load cutoff.
	if res.Server != "api-b" {
		t.Errorf("server = %s, want api-b", res.Server)
	}
}
