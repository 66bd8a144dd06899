package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/impulsevault/engine/kit"
)

const maxMessageBody = 64 * 1024

// Routes returns the HTTP surface: the message endpoint plus convenience
// GETs for the two read actions.
func (r *Relay) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Post("/v1/message", r.handleMessage)
	mux.Get("/v1/stats", r.handleAction("getStats"))
	mux.Get("/v1/records", r.handleAction("getRecords"))

	return mux
}

func (r *Relay) handleMessage(w http.ResponseWriter, req *http.Request) {
	ctx := kit.WithTransport(req.Context(), "http")
	ctx = kit.WithRequestID(ctx, middleware.GetReqID(ctx))

	body, err := io.ReadAll(io.LimitReader(req.Body, maxMessageBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	resp, err := r.Dispatch(ctx, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeRaw(w, http.StatusOK, resp)
}

func (r *Relay) handleAction(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := kit.WithTransport(req.Context(), "http")
		resp, err := r.Dispatch(ctx, []byte(`{"action":"`+action+`"}`))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeRaw(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
