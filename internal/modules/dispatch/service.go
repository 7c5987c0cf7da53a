// README: Dispatch coordinator. Classifies the route, picks a backend server,
// registers the trip and, in auto mode, claims the nearest available driver.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"veni/internal/config"
	"veni/internal/modules/driver"
	"veni/internal/modules/placement"
	"veni/internal/modules/trip"
	"veni/internal/notify"
	"veni/internal/types"
)

const ModeAuto = "auto"

// Request is a rider's trip request as the coordinator sees it.
type Request struct {
	RiderID     types.ID
	Origin      types.Point
	Destination types.Point
	Priority    placement.Priority
}

// Result is what the rider gets back: the registered trip plus the routing
// decisions made for it.
type Result struct {
	Trip        *trip.Trip            `json:"trip"`
	Server      string                `json:"server"`
	RequestType placement.RequestType `json:"request_type"`
}

type Coordinator struct {
	trips      *trip.Service
	drivers    *driver.Directory
	classifier *placement.Classifier
	scorer     *placement.Scorer
	notifier   notify.Notifier
	mode       string
	log        *slog.Logger
}

func NewCoordinator(
	trips *trip.Service,
	drivers *driver.Directory,
	classifier *placement.Classifier,
	scorer *placement.Scorer,
	notifier notify.Notifier,
	cfg config.DispatchConfig,
	log *slog.Logger,
) *Coordinator {
	return &Coordinator{
		trips:      trips,
		drivers:    drivers,
		classifier: classifier,
		scorer:     scorer,
		notifier:   notifier,
		mode:       cfg.Mode,
		log:        log,
	}
}

// RequestTrip handles a rider request end to end. The trip is always created
// pending; in auto mode the coordinator then tries to claim the nearest
// available driver, and an empty fleet just leaves the trip pending for a
// manual accept later.
func (c *Coordinator) RequestTrip(ctx context.Context, req Request) (*Result, error) {
	requestType := c.classifier.Classify(req.Origin, req.Destination)
	server, err := c.scorer.Assign(req.Origin, requestType, req.Priority)
	if err != nil {
		return nil, err
	}

	t, err := c.trips.Create(ctx, req.RiderID, req.Origin, req.Destination)
	if err != nil {
		return nil, err
	}
	c.log.Info("trip routed",
		"trip_id", t.ID, "server", server.Name, "request_type", requestType)

	if c.mode == ModeAuto {
		t = c.autoAssign(ctx, t, server.Name)
	}

	return &Result{Trip: t, Server: server.Name, RequestType: requestType}, nil
}

// autoAssign claims the nearest driver for a fresh trip. Every failure mode
// here degrades to "leave it pending": dispatch never unwinds a created trip.
func (c *Coordinator) autoAssign(ctx context.Context, t *trip.Trip, server string) *trip.Trip {
	candidate, err := c.drivers.Nearest(ctx, t.Origin)
	if err != nil {
		if !errors.Is(err, driver.ErrNoDrivers) {
			c.log.Error("driver lookup failed", "trip_id", t.ID, "error", err)
		}
		return t
	}

	claimed, err := c.trips.Claim(ctx, t.ID, candidate.ID)
	if err != nil {
		// Another claim beat us or the driver got busy in between.
		c.log.Warn("auto claim lost", "trip_id", t.ID, "driver_id", candidate.ID, "error", err)
		return t
	}

	if err := c.notifier.NotifyAssignment(ctx, notify.Assignment{
		TripID:     claimed.ID,
		RiderID:    claimed.RiderID,
		DriverID:   candidate.ID,
		Server:     server,
		DistanceKm: claimed.DistanceKm,
		Price:      claimed.Price,
	}); err != nil {
		c.log.Error("assignment notify failed", "trip_id", claimed.ID, "error", err)
	}
	return claimed
}

// Accept is the manual-mode claim path: a driver takes a pending trip.
func (c *Coordinator) Accept(ctx context.Context, tripID, driverID types.ID) (*trip.Trip, error) {
	t, err := c.trips.Claim(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	if err := c.notifier.NotifyAssignment(ctx, notify.Assignment{
		TripID:     t.ID,
		RiderID:    t.RiderID,
		DriverID:   driverID,
		DistanceKm: t.DistanceKm,
		Price:      t.Price,
	}); err != nil {
		c.log.Error("assignment notify failed", "trip_id", t.ID, "error", err)
	}
	return t, nil
}

func (c *Coordinator) notifyStatus(ctx context.Context, t *trip.Trip, from trip.Status) {
	err := c.notifier.NotifyStatusChange(ctx, notify.StatusChange{
		TripID: t.ID,
		From:   string(from),
		To:     string(t.Status),
	})
	if err != nil {
		c.log.Error("status notify failed", "trip_id", t.ID, "error", err)
	}
}

// Start, Complete and Cancel wrap the registry transitions and publish the
// status change on success.

func (c *Coordinator) Start(ctx context.Context, tripID, driverID types.ID) (*trip.Trip, error) {
	t, err := c.trips.Start(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	c.notifyStatus(ctx, t, trip.StatusAccepted)
	return t, nil
}

func (c *Coordinator) Complete(ctx context.Context, tripID, driverID types.ID) (*trip.Trip, error) {
	t, err := c.trips.Complete(ctx, tripID, driverID)
	if err != nil {
		return nil, err
	}
	c.notifyStatus(ctx, t, trip.StatusInProgress)
	return t, nil
}

func (c *Coordinator) Cancel(ctx context.Context, tripID, actorID types.ID) (*trip.Trip, error) {
	prior, err := c.trips.Get(ctx, tripID)
	if err != nil {
		return nil, err
	}
	t, err := c.trips.Cancel(ctx, tripID, actorID)
	if err != nil {
		return nil, err
	}
	c.notifyStatus(ctx, t, prior.Status)
	return t, nil
}
