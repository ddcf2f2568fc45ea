package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"widevine-keyproxy/internal/dash"
	"widevine-keyproxy/internal/origin"
	"widevine-keyproxy/internal/widevine"
)

type server struct {
	keys   *widevine.Client
	origin *origin.Client
	tracks string
	policy string
	logger *zap.Logger
}

func (s *server) router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.requestID)

	router.HandleFunc("/", home)
	router.HandleFunc("/keys/{id}", s.getKeys).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	router.HandleFunc("/cdn/{id:[A-Za-z0-9_-]+}.mpd", s.cdn).Methods(http.MethodGet, http.MethodOptions)

	return router
}

func (s *server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")

		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-Id", id)

		logs := s.logger.With(zap.String("request_id", id), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(widevine.ContextWithLogger(r.Context(), logs)))
	})
}

func (s *server) log(r *http.Request) *zap.Logger {
	return widevine.LoggerFromContext(r.Context(), s.logger)
}

func home(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Widevine Key Proxy"))
}

func (s *server) getKeys(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		return
	}

	tracks := s.tracks
	policy := s.policy

	if v := r.URL.Query().Get("tracks"); v != "" {
		tracks = v
	}

	if v := r.URL.Query().Get("policy"); v != "" {
		policy = v
	}

	res, err := s.keys.GetKeys(r.Context(), mux.Vars(r)["id"], tracks, policy)

	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(res.Raw())
}

func (s *server) cdn(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodOptions {
		return
	}

	if s.origin == nil {
		http.Error(w, "no origin configured", http.StatusNotFound)
		return
	}

	id := mux.Vars(r)["id"]

	manifest, err := s.origin.GetManifest(r.Context(), id)

	if err != nil {
		s.fail(w, r, errors.Wrap(err, "origin"))
		return
	}

	res, err := s.keys.GetKeys(r.Context(), id, s.tracks, s.policy)

	if err != nil {
		s.fail(w, r, err)
		return
	}

	keys, err := res.Keys()

	if err != nil {
		s.fail(w, r, err)
		return
	}

	protected, err := dash.Protect(manifest, keys)

	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.log(r).Debug("manifest protected", zap.Int("adaptation_sets", protected), zap.Int("keys", len(keys)))

	w.Header().Set("Content-Type", "application/dash+xml")
	_ = manifest.Write(w)
}

// fail maps key server errors onto gateway statuses and everything else onto
// an internal error.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		requestErr *widevine.RequestError
		decodeErr  *widevine.DecodeError
	)

	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.As(err, &requestErr):
		status = http.StatusBadGateway
		message = fmt.Sprintf("key server answered %d", requestErr.StatusCode)
	case errors.As(err, &decodeErr):
		status = http.StatusBadGateway
	}

	s.log(r).Error("request failed", zap.Int("status", status), zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
