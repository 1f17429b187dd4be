package server

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/framework/behavior"
	"github.com/retro-framework/go-lottery/framework/ctxkey"
	"github.com/retro-framework/go-lottery/framework/depot"
	"github.com/retro-framework/go-lottery/framework/engine"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/projections"
)

const maxBodyBytes = 1 << 20

type eventView struct {
	Sequence int         `json:"sequence"`
	Name     string      `json:"name"`
	Time     time.Time   `json:"time"`
	Hash     string      `json:"hash"`
	Event    retro.Event `json:"event"`
}

type resultView struct {
	Accepted  bool                `json:"accepted"`
	Rejection *behavior.Rejection `json:"rejection,omitempty"`
	Lottery   projections.Summary `json:"lottery"`
	Events    []eventView         `json:"events,omitempty"`
}

type errorView struct {
	Error string `json:"error"`
}

func views(pEvs []retro.PersistedEvent) []eventView {
	var out = make([]eventView, len(pEvs))
	for i, pEv := range pEvs {
		out[i] = eventView{
			Sequence: pEv.Sequence(),
			Name:     pEv.Name(),
			Time:     pEv.Time(),
			Hash:     pEv.Hash().String(),
			Event:    pEv.Event(),
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{err.Error()})
}

// readJSON decodes an optional JSON body into v.
func readJSON(r *http.Request, v interface{}) error {
	body, err := ioutil.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "reading request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(body, v), "decoding request body")
}

// apply runs cmd and renders the outcome: 200 for accepted commands,
// 409 for commands the lottery's state has no handler for, 422 for
// domain rejections and 500 when the command could not be handled.
func (s *Server) apply(ctx context.Context, w http.ResponseWriter, cmd commands.Command) {

	var requestID = ctxkey.RequestID(ctx)

	spnApply, ctx := opentracing.StartSpanFromContext(ctx, "server.apply")
	spnApply.SetTag("request.id", requestID)
	defer spnApply.Finish()

	res, err := s.Engine.Apply(ctx, cmd)
	if err != nil {
		s.Logger.Errorf("server: %s: applying %T to %s: %s", requestID, cmd, res.Partition, err)
		spnApply.LogKV("event", "error", "error.object", err)
		if errors.Cause(err) == engine.ErrInvalidPartition {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	view := resultView{
		Accepted: res.Accepted(),
		Lottery:  projections.Summarize(cmd.LotteryID(), res.State),
		Events:   views(res.Persisted),
	}
	if rej, rejected := res.Reaction.Rejection(); rejected {
		view.Rejection = &rej
		status := http.StatusUnprocessableEntity
		if rej.IsHandlerNotDefined() {
			status = http.StatusConflict
		}
		writeJSON(w, status, view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type engineServer struct {
	s *Server
}

// ServeHTTP resolves command descriptions such as
// {"path":"lottery/L1","name":"AddParticipant","args":{"name":"Alice"}}.
func (e engineServer) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, err := ioutil.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cmd, err := commands.Resolve(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e.s.apply(req.Context(), w, cmd)
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	var args struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &args); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(args.ID) == "" {
		if s.IDFn == nil {
			writeError(w, http.StatusBadRequest, errors.New("id is required"))
			return
		}
		id, err := s.IDFn()
		if err != nil {
			writeError(w, http.StatusInternalServerError, errors.Wrap(err, "generating id"))
			return
		}
		args.ID = id
	}
	s.apply(r.Context(), w, commands.CreateLottery{ID: args.ID})
}

func (s *Server) addParticipantHandler(w http.ResponseWriter, r *http.Request) {
	var args struct {
		Name string `json:"name"`
	}
	if err := readJSON(r, &args); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(args.Name) == "" {
		writeError(w, http.StatusBadRequest, errors.New("name may not be blank"))
		return
	}
	s.apply(r.Context(), w, commands.AddParticipant{ID: mux.Vars(r)["id"], Name: args.Name})
}

func (s *Server) removeParticipantHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.apply(r.Context(), w, commands.RemoveParticipant{ID: vars["id"], Name: vars["name"]})
}

func (s *Server) removeAllParticipantsHandler(w http.ResponseWriter, r *http.Request) {
	s.apply(r.Context(), w, commands.RemoveAllParticipants{ID: mux.Vars(r)["id"]})
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	s.apply(r.Context(), w, commands.Run{ID: mux.Vars(r)["id"]})
}

func (s *Server) showHandler(w http.ResponseWriter, r *http.Request) {
	var (
		id = mux.Vars(r)["id"]
		pn = retro.NewPartitionName(commands.Dirname, id)
	)
	state, err := s.Engine.State(r.Context(), pn)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if _, missing := state.(aggregates.Uninitialized); missing {
		writeError(w, http.StatusNotFound, errors.Errorf("no lottery %s", id))
		return
	}
	writeJSON(w, http.StatusOK, projections.Summarize(id, state))
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if s.Depot == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no depot configured"))
		return
	}
	var (
		ctx = r.Context()
		id  = mux.Vars(r)["id"]
	)
	it, err := s.Depot.Rehydrate(ctx, retro.NewPartitionName(commands.Dirname, id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	pEvs, err := depot.Collect(ctx, it)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if len(pEvs) == 0 {
		writeError(w, http.StatusNotFound, errors.Errorf("no lottery %s", id))
		return
	}
	writeJSON(w, http.StatusOK, views(pEvs))
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	if s.Lister != nil {
		writeJSON(w, http.StatusOK, s.Lister.List())
		return
	}
	if s.Depot == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no listing configured"))
		return
	}
	var ctx = r.Context()
	partitions, err := s.Depot.Partitions(ctx, commands.Dirname+"/*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var out = []projections.Summary{}
	for _, pn := range partitions {
		state, err := s.Engine.State(ctx, pn)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, projections.Summarize(pn.ID(), state))
	}
	writeJSON(w, http.StatusOK, out)
}
