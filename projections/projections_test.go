package projections

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	client "github.com/influxdata/influxdb/client/v2"
	"github.com/olivere/elastic"
	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/framework/storage/memory"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

var (
	_ Projection = &Summaries{}
	_ Projection = &Winners{}
	_ Projection = &Listings{}
)

var drawn = time.Date(2019, time.January, 2, 3, 4, 5, 0, time.UTC)

func newDepot() *depot.Simple {
	return depot.New(memory.NewStore(), events.DefaultManifest, depot.WithClock(test.NewStubClock()))
}

func appendEvs(t *testing.T, d *depot.Simple, id string, evs ...retro.Event) []retro.PersistedEvent {
	t.Helper()
	persisted, err := d.Append(context.Background(), retro.NewPartitionName("lottery", id), evs...)
	test.H(t).IsNil(err)
	return persisted
}

func finishedLottery(id string) []retro.Event {
	return []retro.Event{
		events.LotteryCreated{ID: id},
		events.ParticipantAdded{Name: "Alice", ID: id},
		events.ParticipantAdded{Name: "Bob", ID: id},
		events.WinnerSelected{Winner: "Bob", Timestamp: drawn, ID: id},
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func Test_Summaries(t *testing.T) {

	t.Run("folds events into per lottery summaries", func(t *testing.T) {
		// Arrange
		var (
			d = newDepot()
			s = NewSummaries(aggregates.NewBehavior(nil, nil))
		)

		// Act
		for _, pEv := range appendEvs(t, d, "L1", finishedLottery("L1")...) {
			test.H(t).IsNil(s.Project(context.Background(), pEv))
		}
		for _, pEv := range appendEvs(t, d, "L0", events.LotteryCreated{ID: "L0"}, events.ParticipantAdded{Name: "Carol", ID: "L0"}) {
			test.H(t).IsNil(s.Project(context.Background(), pEv))
		}

		// Assert
		got, ok := s.Get("L1")
		test.H(t).BoolEql(ok, true)
		test.H(t).InterfaceEql(got, Summary{ID: "L1", State: "finished", Participants: []string{}, Winner: "Bob"})
		test.H(t).InterfaceEql(s.List(), []Summary{
			{ID: "L0", State: "non_empty", Participants: []string{"Carol"}},
			got,
		})
		_, ok = s.Get("L2")
		test.H(t).BoolEql(ok, false)
	})

	t.Run("events that don't fold are reported", func(t *testing.T) {
		var (
			d = newDepot()
			s = NewSummaries(aggregates.NewBehavior(nil, nil))
		)
		pEvs := appendEvs(t, d, "L1", events.ParticipantAdded{Name: "Alice", ID: "L1"})
		test.H(t).NotNil(s.Project(context.Background(), pEvs[0]))
	})
}

func Test_Runner(t *testing.T) {

	t.Run("catches up with history then follows the live stream", func(t *testing.T) {
		// Arrange
		var (
			d           = newDepot()
			s           = NewSummaries(aggregates.NewBehavior(nil, nil))
			r           = NewRunner(d, "lottery/*", nil, s)
			ctx, cancel = context.WithCancel(context.Background())
			done        = make(chan error)
		)
		defer cancel()
		appendEvs(t, d, "L1", events.LotteryCreated{ID: "L1"}, events.ParticipantAdded{Name: "Alice", ID: "L1"})

		// Act
		go func() { done <- r.Run(ctx) }()
		<-r.Ready()
		appendEvs(t, d, "L1", events.ParticipantAdded{Name: "Bob", ID: "L1"})

		// Assert
		eventually(t, func() bool {
			sum, _ := s.Get("L1")
			return len(sum.Participants) == 2
		})
		sum, _ := s.Get("L1")
		test.H(t).InterfaceEql(sum.Participants, []string{"Bob", "Alice"})
		cancel()
		test.H(t).ErrEql(<-done, context.Canceled)
	})
}

func Test_Winners(t *testing.T) {

	// Arrange
	var (
		mu     sync.Mutex
		writes []string
		ts     = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := ioutil.ReadAll(r.Body)
			mu.Lock()
			writes = append(writes, r.URL.Path+" "+string(body))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		}))
	)
	defer ts.Close()
	c, err := client.NewHTTPClient(client.HTTPConfig{Addr: ts.URL})
	test.H(t).IsNil(err)
	defer c.Close()

	var (
		d = newDepot()
		w = NewWinners(c, "lotteries")
	)

	// Act
	for _, pEv := range appendEvs(t, d, "L1", finishedLottery("L1")...) {
		test.H(t).IsNil(w.Project(context.Background(), pEv))
	}

	// Assert
	mu.Lock()
	defer mu.Unlock()
	test.H(t).IntEql(len(writes), 4)
	test.H(t).BoolEql(strings.HasPrefix(writes[0], "/write events,name=lottery_created,partition=lottery/L1 count=1i"), true)
	test.H(t).BoolEql(strings.Contains(writes[3], "winners,lottery=L1,winner=Bob count=1i"), true)
}

func Test_Listings(t *testing.T) {

	// Arrange
	var (
		mu      sync.Mutex
		indexed = map[string]Listing{}
		ts      = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/lotteries/listing/"):
				var l Listing
				json.NewDecoder(r.Body).Decode(&l)
				indexed[l.ID] = l
				json.NewEncoder(w).Encode(map[string]interface{}{
					"_index": "lotteries", "_type": "listing", "_id": l.ID, "_version": 1, "result": "created",
				})
			case strings.HasSuffix(r.URL.Path, "/_search"):
				var hits []map[string]interface{}
				for id, l := range indexed {
					if l.State == "finished" {
						hits = append(hits, map[string]interface{}{"_index": "lotteries", "_type": "listing", "_id": id, "_source": l})
					}
				}
				json.NewEncoder(w).Encode(map[string]interface{}{
					"hits": map[string]interface{}{"total": len(hits), "hits": hits},
				})
			default:
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{}`))
			}
		}))
	)
	defer ts.Close()
	c, err := elastic.NewClient(elastic.SetURL(ts.URL), elastic.SetSniff(false), elastic.SetHealthcheck(false))
	test.H(t).IsNil(err)

	var (
		ctx = context.Background()
		d   = newDepot()
		l   = NewListings(c, "", aggregates.NewBehavior(nil, nil))
	)

	// Act
	for _, pEv := range appendEvs(t, d, "L1", finishedLottery("L1")...) {
		test.H(t).IsNil(l.Project(ctx, pEv))
	}
	for _, pEv := range appendEvs(t, d, "L2", events.LotteryCreated{ID: "L2"}) {
		test.H(t).IsNil(l.Project(ctx, pEv))
	}
	finished, err := l.Finished(ctx)

	// Assert
	test.H(t).IsNil(err)
	test.H(t).IntEql(len(finished), 1)
	test.H(t).StringEql(finished[0].ID, "L1")
	test.H(t).StringEql(finished[0].Winner, "Bob")
	mu.Lock()
	test.H(t).StringEql(indexed["L2"].State, "empty")
	mu.Unlock()
}
