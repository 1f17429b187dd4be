package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/engine"
	"github.com/retro-framework/go-lottery/framework/storage/memory"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
	"github.com/retro-framework/go-lottery/projections"
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	var (
		d = depot.New(memory.NewStore(), events.DefaultManifest)
		b = aggregates.NewBehavior(aggregates.First, test.NewStubClock())
		e = engine.New[aggregates.State, commands.Command, events.Event](b, d, aggregates.Partition)
	)
	t.Cleanup(func() { e.Close() })
	return New(Options{
		Engine: e,
		Depot:  d,
		IDFn:   func() (string, error) { return "generated", nil },
	}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var (
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		rec = httptest.NewRecorder()
	)
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(v); err != nil {
		t.Fatalf("decoding %q: %s", rec.Body.String(), err)
	}
}

func Test_Server_Lotteries(t *testing.T) {

	t.Run("drives a lottery to its winner", func(t *testing.T) {
		// Arrange
		h := newServer(t)

		// Act
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Alice"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Bob"}`)
		rec := do(t, h, "POST", "/lotteries/L1/run", "")

		// Assert
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var res resultView
		decode(t, rec, &res)
		test.H(t).BoolEql(res.Accepted, true)
		test.H(t).StringEql(res.Lottery.State, "finished")
		test.H(t).StringEql(res.Lottery.Winner, "Bob")
		test.H(t).IntEql(len(res.Events), 1)
		test.H(t).StringEql(res.Events[0].Name, "winner_selected")
		test.H(t).IntEql(res.Events[0].Sequence, 4)
	})

	t.Run("generates ids for lotteries created without one", func(t *testing.T) {
		h := newServer(t)
		rec := do(t, h, "POST", "/lotteries", "")
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var res resultView
		decode(t, rec, &res)
		test.H(t).StringEql(res.Lottery.ID, "generated")
		test.H(t).StringEql(res.Lottery.State, "empty")
	})

	t.Run("domain rejections are unprocessable", func(t *testing.T) {
		// Arrange
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)

		// Act
		rec := do(t, h, "POST", "/lotteries/L1/run", "")

		// Assert
		test.H(t).IntEql(rec.Code, http.StatusUnprocessableEntity)
		var res resultView
		decode(t, rec, &res)
		test.H(t).BoolEql(res.Accepted, false)
		test.H(t).BoolEql(res.Rejection != nil, true)
		test.H(t).StringEql(res.Rejection.Code, aggregates.CodeNoParticipants)
		test.H(t).StringEql(res.Lottery.State, "empty")
	})

	t.Run("commands a state has no handler for conflict", func(t *testing.T) {
		h := newServer(t)
		rec := do(t, h, "POST", "/lotteries/L1/run", "")
		test.H(t).IntEql(rec.Code, http.StatusConflict)
		var res resultView
		decode(t, rec, &res)
		test.H(t).BoolEql(res.Rejection.IsHandlerNotDefined(), true)
	})

	t.Run("blank participant names are bad requests", func(t *testing.T) {
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)
		test.H(t).IntEql(do(t, h, "POST", "/lotteries/L1/participants", `{"name":" "}`).Code, http.StatusBadRequest)
		test.H(t).IntEql(do(t, h, "POST", "/lotteries/L1/participants", `{"name":`).Code, http.StatusBadRequest)
	})

	t.Run("removes participants", func(t *testing.T) {
		// Arrange
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Alice"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Bob"}`)

		// Act
		rec := do(t, h, "DELETE", "/lotteries/L1/participants/Alice", "")

		// Assert
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var res resultView
		decode(t, rec, &res)
		test.H(t).InterfaceEql(res.Lottery.Participants, []string{"Bob"})

		rec = do(t, h, "DELETE", "/lotteries/L1/participants", "")
		test.H(t).IntEql(rec.Code, http.StatusOK)
		decode(t, rec, &res)
		test.H(t).StringEql(res.Lottery.State, "empty")
	})
}

func Test_Server_Queries(t *testing.T) {

	t.Run("shows existing lotteries", func(t *testing.T) {
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Alice"}`)

		rec := do(t, h, "GET", "/lotteries/L1", "")
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var sum projections.Summary
		decode(t, rec, &sum)
		test.H(t).InterfaceEql(sum, projections.Summary{ID: "L1", State: "non_empty", Participants: []string{"Alice"}})
	})

	t.Run("unknown lotteries are not found", func(t *testing.T) {
		h := newServer(t)
		test.H(t).IntEql(do(t, h, "GET", "/lotteries/nope", "").Code, http.StatusNotFound)
		test.H(t).IntEql(do(t, h, "GET", "/lotteries/nope/events", "").Code, http.StatusNotFound)
	})

	t.Run("lists the history of a lottery", func(t *testing.T) {
		// Arrange
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)
		do(t, h, "POST", "/lotteries/L1/participants", `{"name":"Alice"}`)

		// Act
		rec := do(t, h, "GET", "/lotteries/L1/events", "")

		// Assert
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var evs []struct {
			Sequence int    `json:"sequence"`
			Name     string `json:"name"`
			Hash     string `json:"hash"`
		}
		decode(t, rec, &evs)
		test.H(t).IntEql(len(evs), 2)
		test.H(t).StringEql(evs[0].Name, "lottery_created")
		test.H(t).StringEql(evs[1].Name, "participant_added")
		test.H(t).IntEql(evs[1].Sequence, 2)
		test.H(t).BoolEql(strings.HasPrefix(evs[1].Hash, "sha256:"), true)
	})

	t.Run("lists lotteries from the depot without a lister", func(t *testing.T) {
		h := newServer(t)
		do(t, h, "POST", "/lotteries", `{"id":"L2"}`)
		do(t, h, "POST", "/lotteries", `{"id":"L1"}`)

		rec := do(t, h, "GET", "/lotteries", "")
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var sums []projections.Summary
		decode(t, rec, &sums)
		test.H(t).IntEql(len(sums), 2)
	})
}

func Test_Server_Apply(t *testing.T) {

	t.Run("applies resolved commands", func(t *testing.T) {
		h := newServer(t)
		do(t, h, "POST", "/apply", `{"path":"lottery/L1","name":"CreateLottery"}`)
		rec := do(t, h, "POST", "/apply", `{"path":"lottery/L1","name":"AddParticipant","args":{"name":"Alice"}}`)
		test.H(t).IntEql(rec.Code, http.StatusOK)
		var res resultView
		decode(t, rec, &res)
		test.H(t).InterfaceEql(res.Lottery.Participants, []string{"Alice"})
	})

	t.Run("unresolvable commands are bad requests", func(t *testing.T) {
		h := newServer(t)
		test.H(t).IntEql(do(t, h, "POST", "/apply", `{"path":"lottery/L1","name":"Cheat"}`).Code, http.StatusBadRequest)
	})
}

func Test_Server_RequestID(t *testing.T) {
	h := newServer(t)

	t.Run("echoes the caller's id", func(t *testing.T) {
		var (
			req = httptest.NewRequest("GET", "/lotteries", nil)
			rec = httptest.NewRecorder()
		)
		req.Header.Set("X-Request-Id", "abc123")
		h.ServeHTTP(rec, req)
		test.H(t).StringEql(rec.Header().Get("X-Request-Id"), "abc123")
	})

	t.Run("generates one otherwise", func(t *testing.T) {
		rec := do(t, h, "GET", "/lotteries", "")
		test.H(t).IntEql(len(rec.Header().Get("X-Request-Id")), 36)
	})
}

func Test_Server_Manifests(t *testing.T) {
	h := newServer(t)

	var cmds []string
	decode(t, do(t, h, "GET", "/list/commands", ""), &cmds)
	test.H(t).InterfaceEql(cmds, commands.DefaultManifest.List())

	var evs map[string]interface{}
	decode(t, do(t, h, "GET", "/list/events", ""), &evs)
	test.H(t).IntEql(len(evs), 4)
}
