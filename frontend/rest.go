package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"gitlab.com/linkinlog/queueMirror/env"
	"gitlab.com/linkinlog/queueMirror/featureflags"
	"gitlab.com/linkinlog/queueMirror/protocol"
	"gitlab.com/linkinlog/queueMirror/telemetry"
	"gitlab.com/linkinlog/queueMirror/view"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNotConnected is returned by a Backend that has no live session.
var ErrNotConnected = errors.New("not connected")

const maxUploadSize = 32 << 20

func NewRESTServer(sl *slog.Logger) *RESTServer {
	return &RESTServer{slogger: sl}
}

type RESTServer struct {
	slogger *slog.Logger
	srv     *http.Server
}

type tableResponse struct {
	Key  string   `json:"key"`
	Rows []string `json:"rows"`
}

type queuesResponse struct {
	Placeholder bool            `json:"placeholder"`
	Tables      []tableResponse `json:"tables"`
}

type statusResponse struct {
	Connected bool     `json:"connected"`
	Peers     int      `json:"peers"`
	CanSave   bool     `json:"canSave"`
	Log       []string `json:"log"`
}

func (s *RESTServer) Start(b Backend) <-chan error {
	s.srv = &http.Server{
		Addr:    env.FrontendPort(),
		Handler: s.Handler(b),
	}

	errs := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("can't hear shit! %w", err)
		}
	}()

	return errs
}

func (s *RESTServer) Close(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Handler routes the REST API. Requests carrying the tracing flag are
// traced through otelhttp.
func (s *RESTServer) Handler(b Backend) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /queues", queues(b))
	mux.HandleFunc("GET /queues/{key}", queue(b))
	mux.HandleFunc("GET /status", status(b))
	mux.HandleFunc("POST /upload", s.upload(b))
	mux.HandleFunc("POST /download", s.download(b))
	mux.Handle("GET /metrics", telemetry.Handler())

	traced := otelhttp.NewHandler(mux, "queueMirror")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if featureflags.Enabled(featureflags.Tracing, r) {
			traced.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func queues(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board := b.Board()
		tables := view.FilterTables(board.Tables(), r.URL.Query().Get("search"))

		resp := queuesResponse{
			Placeholder: board.Status().Placeholder,
			Tables:      make([]tableResponse, 0, len(tables)),
		}
		for _, t := range tables {
			resp.Tables = append(resp.Tables, tableResponse{Key: t.Key, Rows: t.Rows})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func queue(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")

		if key == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid key"))
			return
		}

		t, ok := b.Board().Table(key)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("no such queue"))
			return
		}

		writeJSON(w, http.StatusOK, tableResponse{
			Key:  t.Key,
			Rows: view.Filter(t.Rows, r.URL.Query().Get("search")),
		})
	}
}

func status(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		board := b.Board()
		st := board.Status()

		writeJSON(w, http.StatusOK, statusResponse{
			Connected: st.Connected,
			Peers:     st.Peers,
			CanSave:   st.CanSave,
			Log:       board.Log(),
		})
	}
}

func (s *RESTServer) upload(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
		if err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte("unable to read snapshot"))
			return
		}

		payload, err := protocol.CompactPayload(body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(err.Error()))
			return
		}

		if err := b.Upload(payload); err != nil {
			s.slogger.Error("upload", "error", err)
			w.WriteHeader(sendFailureStatus(err))
			_, _ = w.Write([]byte(err.Error()))
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *RESTServer) download(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.Board().Status().CanSave {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("nothing to save"))
			return
		}

		if err := b.Download(); err != nil {
			s.slogger.Error("download", "error", err)
			w.WriteHeader(sendFailureStatus(err))
			_, _ = w.Write([]byte(err.Error()))
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func sendFailureStatus(err error) int {
	if errors.Is(err, ErrNotConnected) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
