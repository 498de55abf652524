package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/config"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/events"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/publish"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/remote"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/routes"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/sse"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

func (s *contentService) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(routes.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc(routes.APIContent, s.handleContent)
	mux.HandleFunc(routes.APIPublish, s.handlePublish)
	mux.HandleFunc(routes.APIClearCache, s.handleClearCache)
	mux.HandleFunc(routes.APIPublished, s.handlePublished)
	mux.HandleFunc(routes.APIResolve, s.handleResolve)
	mux.HandleFunc(routes.APIMeta, s.handleMeta)
	mux.HandleFunc(routes.APICaptions, s.handleCaptions)
	mux.HandleFunc(routes.APIImages, s.handleImages)
	mux.HandleFunc(routes.APIWrites, s.handleWriteState)
	mux.HandleFunc(routes.SSEPath, s.handleSSE)

	return mux
}

// handleContent is the content endpoint of the editing pipeline: GET is the
// fetch action, POST the upsert action, DELETE drops the project's draft.
func (s *contentService) handleContent(w http.ResponseWriter, r *http.Request) {
	projectID := model.ProjectID(r.PathValue("project"))
	if projectID == "" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		changes := s.remote.Changes(r.Context(), projectID)
		if changes == nil {
			changes = []remote.Change{}
		}
		writeData(w, http.StatusOK, changes)

	case http.MethodPost:
		userID, ok := s.editorID(w, r)
		if !ok {
			return
		}

		var change remote.Change
		if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
			writeError(w, http.StatusBadRequest, "malformed change payload")
			return
		}

		entry := change.Entry()
		entry.EditedBy = userID
		// Validation failures reject before any persistence happens.
		if err := entry.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeID, err := s.store.Set(r.Context(), projectID, entry)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		writeData(w, http.StatusOK, map[string]string{
			"content_key": string(entry.Key),
			"write_id":    writeID,
		})

	case http.MethodDelete:
		if _, ok := s.editorID(w, r); !ok {
			return
		}
		if err := s.remote.Clear(r.Context(), projectID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func (s *contentService) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	if projectID == "" {
		http.NotFound(w, r)
		return
	}

	if _, ok := s.editorID(w, r); !ok {
		return
	}

	preserve := s.cfg.Publish.PreserveDevChanges
	if q := r.URL.Query().Get("preserve"); q != "" {
		preserve = q == "true"
	}

	snap, err := s.pipeline.Publish(r.Context(), projectID, preserve)
	if err != nil {
		if errors.Is(err, publish.ErrEmptyDraft) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		// A failed snapshot write leaves the draft untouched; tell the
		// editor so they can retry.
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeData(w, http.StatusOK, map[string]any{
		"snapshot_id":  snap.ID,
		"project_id":   snap.ProjectID,
		"content_hash": snap.ContentHash,
		"published_at": snap.PublishedAt,
	})
}

func (s *contentService) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	if projectID == "" {
		http.NotFound(w, r)
		return
	}

	if _, ok := s.editorID(w, r); !ok {
		return
	}

	if err := s.store.ClearProject(projectID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *contentService) handlePublished(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	snap, err := s.snaps.Latest(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("project %s has never been published", projectID))
		return
	}

	w.Header().Set(config.HETag, snap.ContentHash)
	writeData(w, http.StatusOK, snap)
}

func (s *contentService) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key parameter required")
		return
	}
	fallback := r.URL.Query().Get("fallback")

	value := s.resolver.Resolve(r.Context(), projectID, model.ContentKey(key), fallback)
	writeData(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": value,
	})
}

func (s *contentService) handleMeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	writeData(w, http.StatusOK, s.seo.Meta(r.Context(), projectID))
}

// handleCaptions ingests externally generated captions. The commit happens
// after the debounce window, so the response only acknowledges receipt.
func (s *contentService) handleCaptions(w http.ResponseWriter, r *http.Request) {
	projectID := model.ProjectID(r.PathValue("project"))

	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, s.captions.PublishCaptions(projectID))

	case http.MethodPost:
		if _, ok := s.editorID(w, r); !ok {
			return
		}

		var payload struct {
			ImageSrc    string `json:"imageSrc"`
			Caption     string `json:"caption"`
			AutoPublish bool   `json:"autoPublish"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "malformed caption payload")
			return
		}
		if payload.ImageSrc == "" {
			writeError(w, http.StatusBadRequest, "imageSrc required")
			return
		}

		s.bus.Emit(events.TopicCaptionGenerated, events.CaptionGenerated{
			ProjectID:   projectID,
			ImageSrc:    payload.ImageSrc,
			Caption:     payload.Caption,
			AutoPublish: payload.AutoPublish,
		})
		writeData(w, http.StatusAccepted, map[string]string{"status": "queued"})

	default:
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
	}
}

func (s *contentService) handleImages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	projectID := model.ProjectID(r.PathValue("project"))
	if _, ok := s.editorID(w, r); !ok {
		return
	}

	var payload struct {
		OriginalSrc string `json:"originalSrc"`
		NewSrc      string `json:"newSrc"`
		AutoPublish bool   `json:"autoPublish"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "malformed image payload")
		return
	}
	if payload.OriginalSrc == "" || payload.NewSrc == "" {
		writeError(w, http.StatusBadRequest, "originalSrc and newSrc required")
		return
	}

	s.captions.ReplaceImage(projectID, payload.OriginalSrc, payload.NewSrc, payload.AutoPublish)
	writeData(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *contentService) handleWriteState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, config.HTTPErrMethodNotAllowed, http.StatusMethodNotAllowed)
		return
	}

	state, ok := s.store.WriteState(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown write")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"state": string(state)})
}

func (s *contentService) handleSSE(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project")
	if projectID == "" {
		http.Error(w, "Project parameter required", http.StatusBadRequest)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Del("X-Content-Type-Options")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := &sse.Client{
		Msg:       make(chan string),
		ProjectID: model.ProjectID(projectID),
	}

	s.clients.Add(client)
	s.log.Info().Str("project_id", projectID).Msg("New SSE client connected")

	defer func() {
		s.clients.Delete(client)
		s.log.Info().Str("project_id", projectID).Msg("SSE client disconnected")
	}()

	notify := r.Context().Done()
	for {
		select {
		case msg := <-client.Msg:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
