// Package http exposes the CSV import submission and task listing endpoints,
// plus WebSocket upgrade entry points for the progress and tax preview
// channels.
package http

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/qhato/taxorders/internal/importtask"
	"github.com/qhato/taxorders/internal/importtask/domain"
	"github.com/qhato/taxorders/internal/importtask/ports/ws"
	orderdomain "github.com/qhato/taxorders/internal/order/domain"
	"github.com/qhato/taxorders/pkg/auth"
	apperrors "github.com/qhato/taxorders/pkg/errors"
	apphttp "github.com/qhato/taxorders/pkg/http"
	"github.com/qhato/taxorders/pkg/logger"
	"github.com/qhato/taxorders/pkg/middleware"
)

// Authority names the submitter/progress-channel session must carry, per the
// EDIT_ORDERS/READ_ORDERS authority boundary the gateway enforces before
// handing a request to the core.
const (
	AuthorityEditOrders = "EDIT_ORDERS"
	AuthorityReadOrders = "READ_ORDERS"
)

type Handler struct {
	executor   *importtask.Executor
	tasks      domain.Repository
	calc       *orderdomain.Calculator
	jwtService *auth.JWTService
	upgrader   websocket.Upgrader
}

func NewHandler(executor *importtask.Executor, tasks domain.Repository, calc *orderdomain.Calculator, jwtService *auth.JWTService) *Handler {
	return &Handler{
		executor:   executor,
		tasks:      tasks,
		calc:       calc,
		jwtService: jwtService,
		upgrader:   websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
}

func (h *Handler) Routes(r chi.Router) {
	authn := middleware.JWTAuth(h.jwtService)

	r.With(authn, middleware.RequireRole(AuthorityEditOrders)).Post("/orders/import", h.submitImport)
	r.With(authn, middleware.RequireRole(AuthorityReadOrders)).Get("/orders/import/tasks", h.listTasks)
	r.With(authn, middleware.RequireRole(AuthorityReadOrders)).Get("/orders/import/tasks/ws", h.progressWS)
	r.Get("/orders/tax/ws", h.taxPreviewWS)
}

func (h *Handler) submitImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		apphttp.WriteJSON(w, http.StatusBadRequest, apperrors.BadRequest("expected multipart/form-data upload"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.WriteJSON(w, http.StatusBadRequest, apperrors.BadRequest("missing file field"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		apphttp.WriteJSON(w, http.StatusBadRequest, apperrors.BadRequest("failed to read upload"))
		return
	}

	objectName := time.Now().UTC().Format("2006/01/02") + "/" + uuid.NewString() + "-" + header.Filename
	task, err := h.executor.Submit(r.Context(), content, objectName, submitterUserID(r))
	if err != nil {
		var appErr *apperrors.AppError
		if ok := apperrors.As(err, &appErr); ok {
			apphttp.WriteJSON(w, appErr.StatusCode, appErr)
			return
		}
		apphttp.WriteJSON(w, http.StatusInternalServerError, apperrors.InternalWrap(err, "failed to submit import"))
		return
	}

	apphttp.WriteCreated(w, task)
}

// submitterUserID reads the authenticated caller's identity off the JWT
// claims the auth middleware validated before this handler ran. The core
// accepts user_id as an argument per the session/authorization boundary; it
// never re-authenticates.
func submitterUserID(r *http.Request) *uuid.UUID {
	raw := middleware.GetUserID(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListAll(r.Context())
	if err != nil {
		apphttp.WriteJSON(w, http.StatusInternalServerError, apperrors.InternalWrap(err, "failed to list import tasks"))
		return
	}
	apphttp.WriteSuccess(w, tasks)
}

func (h *Handler) progressWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("progress channel: upgrade failed")
		return
	}
	ws.ProgressHandler(r.Context(), conn, h.tasks)
}

func (h *Handler) taxPreviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("tax preview channel: upgrade failed")
		return
	}
	ws.TaxPreviewHandler(r.Context(), conn, h.calc)
}
