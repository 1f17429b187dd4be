package projections

import (
	"context"

	client "github.com/influxdata/influxdb/client/v2"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/retro"
)

const (
	measurementEvents  = "events"
	measurementWinners = "winners"
)

// Winners writes a point per event (measurement "events", tagged with
// event and partition name) and a point per drawn winner (measurement
// "winners", tagged with lottery and winner) to influxdb.
type Winners struct {
	client   client.Client
	database string
}

func NewWinners(c client.Client, database string) *Winners {
	return &Winners{client: c, database: database}
}

// EnsureDatabase creates the database unless it exists.
func (w *Winners) EnsureDatabase() error {
	res, err := w.client.Query(client.NewQuery("CREATE DATABASE "+w.database, "", ""))
	if err != nil {
		return errors.Wrap(err, "winners: creating database")
	}
	if res.Error() != nil {
		return errors.Wrap(res.Error(), "winners: creating database")
	}
	return nil
}

func (w *Winners) Name() string { return "winners" }

func (w *Winners) Project(_ context.Context, pEv retro.PersistedEvent) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  w.database,
		Precision: "s",
	})
	if err != nil {
		return errors.Wrap(err, "winners: batch")
	}

	pt, err := client.NewPoint(measurementEvents, map[string]string{
		"name":      pEv.Name(),
		"partition": pEv.PartitionName().String(),
	}, map[string]interface{}{"count": 1}, pEv.Time())
	if err != nil {
		return errors.Wrap(err, "winners: event point")
	}
	bp.AddPoint(pt)

	if ev, ok := pEv.Event().(events.WinnerSelected); ok {
		pt, err := client.NewPoint(measurementWinners, map[string]string{
			"lottery": ev.ID,
			"winner":  ev.Winner,
		}, map[string]interface{}{"count": 1}, ev.Timestamp)
		if err != nil {
			return errors.Wrap(err, "winners: winner point")
		}
		bp.AddPoint(pt)
	}

	return errors.Wrap(w.client.Write(bp), "winners: write")
}
