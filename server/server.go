// Package server exposes the lottery engine over HTTP.
package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gobuffalo/flect"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/retro-framework/go-lottery/aggregates"
	"github.com/retro-framework/go-lottery/commands"
	"github.com/retro-framework/go-lottery/events"
	"github.com/retro-framework/go-lottery/framework/ctxkey"
	"github.com/retro-framework/go-lottery/framework/engine"
	"github.com/retro-framework/go-lottery/framework/logging"
	"github.com/retro-framework/go-lottery/framework/retro"
	"github.com/retro-framework/go-lottery/projections"
)

// Engine is the part of the lottery engine the server drives.
type Engine interface {
	Apply(context.Context, commands.Command) (engine.Result[aggregates.State, events.Event], error)
	State(context.Context, retro.PartitionName) (aggregates.State, error)
}

// Lister lists lottery summaries, typically a projection.
type Lister interface {
	List() []projections.Summary
}

type Options struct {
	Engine Engine
	Depot  retro.Depot

	// Lister answers GET on the collection, without one the
	// summaries are built from the engine.
	Lister Lister

	// IDFn generates ids for lotteries created without one.
	IDFn retro.IDFn

	Logger retro.Logger

	// AccessLog receives combined log format lines when set.
	AccessLog io.Writer
}

type Server struct {
	Options
	collection string
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Noop{}
	}
	return &Server{
		Options:    opts,
		collection: flect.Pluralize(commands.Dirname),
	}
}

// Handler routes all endpoints.
func (s *Server) Handler() http.Handler {
	var (
		rMux       = mux.NewRouter()
		collection = "/" + s.collection
		member     = collection + "/{id}"
	)

	rMux.Handle("/list/commands", commandManifestServer{commands.DefaultManifest}).Methods("GET")
	rMux.Handle("/list/events", eventManifestServer{events.DefaultManifest}).Methods("GET")
	rMux.Handle("/apply", engineServer{s}).Methods("POST")

	rMux.HandleFunc(collection, s.listHandler).Methods("GET")
	rMux.HandleFunc(collection, s.createHandler).Methods("POST")
	rMux.HandleFunc(member, s.showHandler).Methods("GET")
	rMux.HandleFunc(member+"/events", s.eventsHandler).Methods("GET")
	rMux.HandleFunc(member+"/participants", s.addParticipantHandler).Methods("POST")
	rMux.HandleFunc(member+"/participants", s.removeAllParticipantsHandler).Methods("DELETE")
	rMux.HandleFunc(member+"/participants/{name}", s.removeParticipantHandler).Methods("DELETE")
	rMux.HandleFunc(member+"/run", s.runHandler).Methods("POST")
	rMux.Use(requestIDMiddleware)

	var h http.Handler = handlers.RecoveryHandler()(rMux)
	if s.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(s.AccessLog, h)
	}
	return h
}

const requestIDHeader = "X-Request-Id"

// requestIDMiddleware carries the caller's request id, or a fresh one,
// in the request context and echoes it in the response.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkey.WithRequestID(r.Context(), id)))
	})
}
