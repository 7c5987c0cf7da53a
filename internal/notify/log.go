package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes trip events to the application log. It backs the "log"
// notify mode so the service runs without a broker.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyAssignment(_ context.Context, a Assignment) error {
	n.log.Info("trip assigned",
		"trip_id", a.TripID,
		"rider_id", a.RiderID,
		"driver_id", a.DriverID,
		"server", a.Server,
		"price", a.Price,
	)
	return nil
}

func (n *LogNotifier) NotifyStatusChange(_ context.Context, s StatusChange) error {
	n.log.Info("trip status changed", "trip_id", s.TripID, "from", s.From, "to", s.To)
	return nil
}
