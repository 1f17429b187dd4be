package server

import (
	"encoding/json"
	"net/http"

	"github.com/retro-framework/go-lottery/framework/retro"
)

type commandManifestServer struct {
	m retro.ListingCommandManifest
}

func (ms commandManifestServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var enc = json.NewEncoder(w)
	enc.SetIndent("", "    ")
	w.Header().Set("Content-Type", "application/json")
	if err := enc.Encode(ms.m.List()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type eventManifestServer struct {
	m retro.ListingEventManifest
}

func (ms eventManifestServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var enc = json.NewEncoder(w)
	enc.SetIndent("", "    ")
	w.Header().Set("Content-Type", "application/json")
	if err := enc.Encode(ms.m.List()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
