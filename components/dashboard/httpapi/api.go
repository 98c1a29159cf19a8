package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// ViewerFunc resolves the signed-in viewer of a request.
type ViewerFunc func(*http.Request) dashboard.ViewerContext

// Handlers exposes net/http endpoints backed by the shared Executor.
type Handlers struct {
	API            Executor
	Viewer         ViewerFunc
	MaxUploadBytes int64
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer == nil {
		return dashboard.ViewerContext{}
	}
	return h.Viewer(r)
}

// HandleUpload imports a dataset file for ?product=.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request, rawDataset string) {
	dataset, err := ParseDataset(rawDataset)
	if err != nil {
		WriteError(w, err)
		return
	}
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		WriteError(w, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	file, err := ReadUpload(r.Header.Get("Content-Type"), body, r.URL.Query().Get("filename"), dataset)
	if err != nil {
		WriteError(w, err)
		return
	}
	var result csvimport.Result
	input := commands.ImportDatasetInput{
		Dataset:    dataset,
		Product:    r.URL.Query().Get("product"),
		Filename:   file.Filename,
		File:       bytes.NewReader(file.Data),
		UploadedBy: h.viewer(r).Email,
		Result:     &result,
	}
	if err := h.API.Import(r.Context(), input); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

// HandleSelectScope stores the viewer's product and quarter.
func (h *Handlers) HandleSelectScope(w http.ResponseWriter, r *http.Request) {
	var payload commands.SelectScopeInput
	if err := decode(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}
	var scope metrics.Scope
	payload.UserID = h.viewer(r).UserID
	payload.Result = &scope
	if err := h.API.SelectScope(r.Context(), payload); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, scope)
}

// HandleSavePreferences stores the viewer's widget settings.
func (h *Handlers) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	var payload commands.SaveLayoutPreferencesInput
	if err := decode(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}
	payload.Viewer = h.viewer(r)
	if err := h.API.Preferences(r.Context(), payload); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// HandleSaveActionItem creates an item (empty id) or updates the item id.
func (h *Handlers) HandleSaveActionItem(w http.ResponseWriter, r *http.Request, id string) {
	var payload metrics.ActionItemInput
	if err := decode(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}
	payload.ID = id
	var item metrics.ActionItem
	if err := h.API.SaveActionItem(r.Context(), commands.SaveActionItemInput{Item: payload, Result: &item}); err != nil {
		WriteError(w, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	WriteJSON(w, status, item)
}

// HandleDeleteActionItem removes the item id.
func (h *Handlers) HandleDeleteActionItem(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.API.DeleteActionItem(r.Context(), commands.DeleteActionItemInput{ID: id}); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRefreshWidget forwards a refresh event to the refresh hooks.
func (h *Handlers) HandleRefreshWidget(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshWidgetInput
	if err := decode(r.Body, &payload); err != nil {
		WriteError(w, err)
		return
	}
	if err := h.API.Refresh(r.Context(), payload); err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err with the status StatusFor picks.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorPayload(err))
}

func decode(body io.Reader, v any) error {
	if body == nil {
		return fmt.Errorf("%w: empty body", ErrBadRequest)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
