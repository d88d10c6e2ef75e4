// Package inspect serves a read-mostly HTTP and WebSocket view of a running
// scene: models, frames, instance playback state and software snapshots.
package inspect

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/md2anim/internal/engine/scene"
	"github.com/Faultbox/md2anim/pkg/formats"
)

// StreamInterval is how often /ws pushes instance states.
const StreamInterval = 250 * time.Millisecond

// Source is the scene the server inspects. app.Context implements it.
type Source interface {
	Models() []*scene.Model
	Model(name string) (*scene.Model, bool)
	States() []scene.InstanceState
	State(name string) (scene.InstanceState, error)
	SetAction(name string, action formats.ActionType) error
	Snapshot(name string) ([]byte, error)
}

// Server routes inspection requests to a Source.
type Server struct {
	src      Source
	log      *zap.Logger
	router   *mux.Router
	upgrader websocket.Upgrader
	interval time.Duration
}

// New creates a server. A nil logger disables logging.
func New(src Source, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		src:      src,
		log:      log,
		router:   mux.NewRouter(),
		interval: StreamInterval,
	}

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	api.HandleFunc("/models/{name}/frames", s.handleFrames).Methods(http.MethodGet)
	api.HandleFunc("/instances", s.handleInstances).Methods(http.MethodGet)
	api.HandleFunc("/instances/{name}", s.handleInstance).Methods(http.MethodGet)
	api.HandleFunc("/instances/{name}/action/{action}", s.handleSetAction).Methods(http.MethodPost)
	api.HandleFunc("/instances/{name}/snapshot.webp", s.handleSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleStream)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.Errorf("no route for %s", r.URL.Path))
	})

	return s
}

// Handler returns the router with request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	logOut := zap.NewStdLog(s.log).Writer()
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(s.router)
	return handlers.LoggingHandler(logOut, h)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("inspection server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "serving %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutting down inspection server")
		}
		return nil
	}
}
