// Package api provides the HTTP surface for consumers: a server sent events
// stream of outbox messages, incident queries and incident commands.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mpapenbr/iracelog-stewarding-go/log"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/incident"
	"github.com/mpapenbr/iracelog-stewarding-go/pkg/outbox"
)

// Commander executes incident commands on the update loop
type Commander interface {
	Submit(ctx context.Context, cmd incident.Command) error
}

type Server struct {
	store     *incident.Store
	outbox    *outbox.Outbox
	commander Commander
	mux       *http.ServeMux
	l         *log.Logger
}

type Option func(s *Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

//nolint:whitespace // editor/linter issue
func New(
	store *incident.Store, ob *outbox.Outbox, commander Commander, opts ...Option,
) *Server {
	ret := &Server{
		store:     store,
		outbox:    ob,
		commander: commander,
		mux:       http.NewServeMux(),
		l:         log.Default().Named("api"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ret.mux.HandleFunc("GET /events", ret.events)
	ret.mux.HandleFunc("GET /incidents", ret.incidents)
	ret.mux.HandleFunc("GET /incidents/resolutions", ret.resolutions)
	ret.mux.HandleFunc("POST /incidents/clear", ret.clear)
	ret.mux.HandleFunc("POST /incidents/{id}/{action}", ret.command)
	return ret
}

// Handler returns the handler with CORS and h2c support
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(newCORS().Handler(s.mux), &http2.Server{})
}

// ListenAndServe serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // ctx is already done
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.l.Warn("shutdown failed", log.ErrorField(err))
		}
	}()
	s.l.Info("Starting HTTP server", log.String("addr", addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// events streams outbox messages. The log is replayed first unless
// replay=false is given. channels=a,b restricts the stream to these channels.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	replay := r.URL.Query().Get("replay") != "false"
	filter := map[string]bool{}
	if c := r.URL.Query().Get("channels"); c != "" {
		for _, name := range strings.Split(c, ",") {
			filter[name] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	mb := outbox.NewMailbox()
	remove := s.outbox.AddOutbox(mb, replay)
	defer func() {
		remove()
		mb.Close()
	}()
	s.l.Debug("event stream attached", log.Bool("replay", replay))
	for {
		msg, err := mb.Receive(r.Context())
		if err != nil {
			s.l.Debug("event stream detached", log.ErrorField(err))
			return
		}
		if len(filter) > 0 && !filter[msg.Channel] {
			continue
		}
		data, err := json.Marshal(msg.Data)
		if err != nil {
			s.l.Warn("could not encode message",
				log.String("channel", msg.Channel), log.ErrorField(err))
			continue
		}
		if msg.Seq > 0 {
			fmt.Fprintf(w, "id: %d\n", msg.Seq)
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Channel, data)
		flusher.Flush()
	}
}

func (s *Server) incidents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Incidents())
}

func (s *Server) resolutions(w http.ResponseWriter, r *http.Request) {
	includeDeleted, _ := strconv.ParseBool(r.URL.Query().Get("includeDeleted"))
	writeJSON(w, http.StatusOK, s.store.Resolutions(includeDeleted))
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, incident.Command{Type: incident.CommandClearAll})
}

func (s *Server) command(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}
	t, err := incident.ParseCommandType(r.PathValue("action"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.submit(w, r, incident.Command{Type: t, ID: id})
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd incident.Command) {
	err := s.commander.Submit(r.Context(), cmd)
	switch {
	case err == nil:
		if cmd.Type == incident.CommandClearAll {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		inc, _ := s.store.Get(cmd.ID)
		writeJSON(w, http.StatusOK, inc)
	case errors.Is(err, incident.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, incident.ErrUnknownCommand):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusServiceUnavailable, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errchkjson // nothing to do on failure
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func newCORS() *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Content-Encoding",
			"Last-Event-ID",
		},
		MaxAge: int(2 * time.Hour / time.Second),
	})
}
