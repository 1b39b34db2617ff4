package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-tts/internal/protocol"
	"github.com/loqalabs/loqa-tts/internal/tts"
)

func (r *Runtime) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/v1/voices", r.handleVoices)
	if r.metrics != nil {
		mux.Handle("/metrics", r.metrics)
	}
	return mux
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) isReady() bool {
	if !r.ready.Load() || !r.bus.Healthy() {
		return false
	}
	return r.service == nil || r.service.Healthy()
}

// handleVoices reports the synthesizer's voice catalog as a protocol.VoiceList.
func (r *Runtime) handleVoices(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	catalog, ok := r.synth.(tts.VoiceCatalog)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, protocol.VoiceList{Error: "synthesizer does not list voices"})
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
	defer cancel()
	voices, current, err := catalog.Voices(ctx)
	if err != nil {
		r.logger.Warn("failed to list voices", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, protocol.VoiceList{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, protocol.VoiceList{Voices: voices, Current: current})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
