package gorouter

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	gocommand "github.com/goliatone/go-command"

	"github.com/goliatone/go-portal-metrics/components/dashboard"
	"github.com/goliatone/go-portal-metrics/components/dashboard/commands"
	"github.com/goliatone/go-portal-metrics/components/dashboard/httpapi"
	"github.com/goliatone/go-portal-metrics/components/dashboard/queries"
	"github.com/goliatone/go-portal-metrics/pkg/csvimport"
	"github.com/goliatone/go-portal-metrics/pkg/metrics"
)

// Queries groups the read side used by the JSON routes.
type Queries struct {
	Layout      gocommand.Querier[dashboard.ViewerContext, dashboard.Layout]
	View        gocommand.Querier[dashboard.ViewerContext, metrics.ViewModel]
	Detail      gocommand.Querier[queries.WidgetDetailInput, dashboard.WidgetDetail]
	History     gocommand.Querier[queries.UploadHistoryInput, []csvimport.Upload]
	ActionItems gocommand.Querier[queries.ActionItemsInput, []metrics.ActionItem]
}

type portalHandlers struct {
	controller     *dashboard.Controller
	api            httpapi.Executor
	queries        Queries
	maxUploadBytes int64
}

type viewerHandler func(Request, dashboard.ViewerContext) error

func (h portalHandlers) page(req Request, viewer dashboard.ViewerContext) error {
	var buf bytes.Buffer
	if err := h.controller.RenderTemplate(req.Context(), viewer, &buf); err != nil {
		return respondError(req, err)
	}
	req.SetHeader("Content-Type", "text/html; charset=utf-8")
	return req.Send(buf.Bytes())
}

func (h portalHandlers) layout(req Request, viewer dashboard.ViewerContext) error {
	if req.Query("format") == "raw" && h.queries.Layout != nil {
		layout, err := h.queries.Layout.Query(req.Context(), viewer)
		if err != nil {
			return respondError(req, err)
		}
		return req.JSON(http.StatusOK, layout)
	}
	payload, err := h.controller.LayoutPayload(req.Context(), viewer)
	if err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, payload)
}

func (h portalHandlers) view(req Request, viewer dashboard.ViewerContext) error {
	if h.queries.View == nil {
		return respondError(req, httpapi.ErrCommandUnavailable)
	}
	view, err := h.queries.View.Query(req.Context(), viewer)
	if err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, view)
}

func (h portalHandlers) detail(req Request, viewer dashboard.ViewerContext) error {
	if h.queries.Detail == nil {
		return respondError(req, httpapi.ErrCommandUnavailable)
	}
	detail, err := h.queries.Detail.Query(req.Context(), queries.WidgetDetailInput{
		Viewer:   viewer,
		WidgetID: req.Param("id"),
	})
	if err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, detail)
}

func (h portalHandlers) selectScope(req Request, viewer dashboard.ViewerContext) error {
	var payload commands.SelectScopeInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	var scope metrics.Scope
	payload.UserID = viewer.UserID
	payload.Result = &scope
	if err := h.api.SelectScope(req.Context(), payload); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, scope)
}

func (h portalHandlers) preferences(req Request, viewer dashboard.ViewerContext) error {
	var payload commands.SaveLayoutPreferencesInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	payload.Viewer = viewer
	if err := h.api.Preferences(req.Context(), payload); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{"status": "saved"})
}

func (h portalHandlers) assign(req Request, viewer dashboard.ViewerContext) error {
	var payload dashboard.AddWidgetRequest
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	payload.UserID = viewer.UserID
	var created dashboard.WidgetInstance
	if err := h.api.Assign(req.Context(), commands.AssignWidgetInput{Request: payload, Result: &created}); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusCreated, created)
}

func (h portalHandlers) update(req Request, _ dashboard.ViewerContext) error {
	var payload commands.UpdateWidgetInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	var updated dashboard.WidgetInstance
	payload.WidgetID = req.Param("id")
	payload.Result = &updated
	if err := h.api.Update(req.Context(), payload); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, updated)
}

func (h portalHandlers) remove(req Request, _ dashboard.ViewerContext) error {
	id := req.Param("id")
	if id == "" {
		return respondError(req, fmt.Errorf("%w: widget id is required", httpapi.ErrBadRequest))
	}
	if err := h.api.Remove(req.Context(), commands.RemoveWidgetInput{WidgetID: id}); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{"status": "removed"})
}

func (h portalHandlers) reorder(req Request, _ dashboard.ViewerContext) error {
	var payload commands.ReorderWidgetsInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	if err := h.api.Reorder(req.Context(), payload); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{"status": "reordered"})
}

func (h portalHandlers) refresh(req Request, _ dashboard.ViewerContext) error {
	var payload commands.RefreshWidgetInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	if err := h.api.Refresh(req.Context(), payload); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h portalHandlers) upload(req Request, viewer dashboard.ViewerContext) error {
	dataset, err := httpapi.ParseDataset(req.Param("dataset"))
	if err != nil {
		return respondError(req, err)
	}
	body := req.Body()
	if int64(len(body)) > h.maxUploadBytes {
		return respondError(req, fmt.Errorf("%w: upload exceeds %d bytes", httpapi.ErrBadRequest, h.maxUploadBytes))
	}
	file, err := httpapi.ReadUpload(req.Header("Content-Type"), body, req.Query("filename"), dataset)
	if err != nil {
		return respondError(req, err)
	}
	var result csvimport.Result
	err = h.api.Import(req.Context(), commands.ImportDatasetInput{
		Dataset:    dataset,
		Product:    req.Query("product"),
		Filename:   file.Filename,
		File:       bytes.NewReader(file.Data),
		UploadedBy: viewer.Email,
		Result:     &result,
	})
	if err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusCreated, result)
}

func (h portalHandlers) template(req Request, _ dashboard.ViewerContext) error {
	dataset, err := httpapi.ParseDataset(req.Param("dataset"))
	if err != nil {
		return respondError(req, err)
	}
	layout, err := csvimport.LayoutFor(dataset)
	if err != nil {
		return respondError(req, err)
	}
	ext, contentType := "csv", "text/csv; charset=utf-8"
	var data []byte
	if req.Query("format") == "xlsx" {
		ext = "xlsx"
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		data, err = csvimport.WorkbookTemplate(layout)
	} else {
		data, err = csvimport.Template(layout)
	}
	if err != nil {
		return respondError(req, err)
	}
	req.SetHeader("Content-Type", contentType)
	req.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", csvimport.TemplateFilename(layout, ext)))
	return req.Send(data)
}

func (h portalHandlers) history(req Request, _ dashboard.ViewerContext) error {
	if h.queries.History == nil {
		return respondError(req, httpapi.ErrCommandUnavailable)
	}
	limit, _ := strconv.Atoi(req.Query("limit"))
	uploads, err := h.queries.History.Query(req.Context(), queries.UploadHistoryInput{Limit: limit})
	if err != nil {
		return respondError(req, err)
	}
	if uploads == nil {
		uploads = []csvimport.Upload{}
	}
	return req.JSON(http.StatusOK, uploads)
}

func (h portalHandlers) listActionItems(req Request, viewer dashboard.ViewerContext) error {
	if h.queries.ActionItems == nil {
		return respondError(req, httpapi.ErrCommandUnavailable)
	}
	items, err := h.queries.ActionItems.Query(req.Context(), queries.ActionItemsInput{
		Viewer:  viewer,
		Product: req.Query("product"),
		Quarter: req.Query("quarter"),
	})
	if err != nil {
		return respondError(req, err)
	}
	if items == nil {
		items = []metrics.ActionItem{}
	}
	return req.JSON(http.StatusOK, items)
}

func (h portalHandlers) saveActionItem(req Request, _ dashboard.ViewerContext) error {
	var payload metrics.ActionItemInput
	if err := decodeBody(req, &payload); err != nil {
		return respondError(req, err)
	}
	id := req.Param("id")
	payload.ID = id
	var item metrics.ActionItem
	if err := h.api.SaveActionItem(req.Context(), commands.SaveActionItemInput{Item: payload, Result: &item}); err != nil {
		return respondError(req, err)
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	return req.JSON(status, item)
}

func (h portalHandlers) deleteActionItem(req Request, _ dashboard.ViewerContext) error {
	if err := h.api.DeleteActionItem(req.Context(), commands.DeleteActionItemInput{ID: req.Param("id")}); err != nil {
		return respondError(req, err)
	}
	return req.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
