package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/security"
	"musicclub-backend/internal/service"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 64 << 10

// Pinger reports database reachability for the liveness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type ApplicationHandler struct {
	svc        service.ApplicationService
	trustProxy bool
}

// NewApplicationHandler builds the handler. With trustProxy set the
// recorded client address comes from X-Forwarded-For instead of the
// connection.
func NewApplicationHandler(svc service.ApplicationService, trustProxy bool) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, trustProxy: trustProxy}
}

// applicationView adds the derived display fields to an application.
type applicationView struct {
	*domain.Application
	FullName    string `json:"fullName"`
	StatusLabel string `json:"statusLabel"`
}

func newApplicationView(a *domain.Application) applicationView {
	return applicationView{Application: a, FullName: a.FullName(), StatusLabel: a.StatusLabel()}
}

type submissionResponse struct {
	ID           string                   `json:"id"`
	Status       domain.ApplicationStatus `json:"status"`
	AutoApproved bool                     `json:"autoApproved"`
	StatusLabel  string                   `json:"statusLabel"`
	SubmittedAt  time.Time                `json:"submittedAt"`
}

type listResponse struct {
	Applications []applicationView `json:"applications"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}

type decisionRequest struct {
	Reason string `json:"reason"`
}

// HandleSubmit accepts a public website submission.
func (h *ApplicationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.ApplicationSourceWebsite)
}

// HandleAdminSubmit records an application entered by an administrator.
func (h *ApplicationHandler) HandleAdminSubmit(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.ApplicationSourceAdmin)
}

func (h *ApplicationHandler) submit(w http.ResponseWriter, r *http.Request, source domain.ApplicationSource) {
	var in service.SubmitInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Source = source
	in.IPAddress = clientIP(r, h.trustProxy)
	in.UserAgent = r.UserAgent()

	app, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if source == domain.ApplicationSourceAdmin {
		writeJSON(w, http.StatusCreated, newApplicationView(app))
		return
	}
	writeJSON(w, http.StatusCreated, submissionResponse{
		ID:           app.ID,
		Status:       app.Status,
		AutoApproved: app.AutoApproved,
		StatusLabel:  app.StatusLabel(),
		SubmittedAt:  app.SubmittedAt,
	})
}

func (h *ApplicationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter domain.ApplicationFilter

	if s := strings.TrimSpace(q.Get("status")); s != "" {
		status := domain.ApplicationStatus(strings.ToUpper(s))
		filter.Status = &status
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		writeError(w, r, err)
		return
	}

	apps, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]applicationView, 0, len(apps))
	for i := range apps {
		views = append(views, newApplicationView(&apps[i]))
	}
	writeJSON(w, http.StatusOK, listResponse{Applications: views, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *ApplicationHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nationalID := strings.TrimSpace(q.Get("nationalId"))
	studentNumber := strings.TrimSpace(q.Get("studentNumber"))
	if nationalID == "" && studentNumber == "" {
		writeError(w, r, domain.NewValidationError("identification", "nationalId or studentNumber is required"))
		return
	}

	app, err := h.svc.FindByIdentification(r.Context(), nationalID, studentNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if app == nil {
		writeError(w, r, &domain.NotFoundError{Resource: "application", ID: nationalID + studentNumber})
		return
	}
	writeJSON(w, http.StatusOK, newApplicationView(app))
}

func (h *ApplicationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationView(app))
}

func (h *ApplicationHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	app, err := h.svc.Approve(r.Context(), mux.Vars(r)["id"], ReviewerFromContext(r.Context()), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationView(app))
}

func (h *ApplicationHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	app, err := h.svc.Reject(r.Context(), mux.Vars(r)["id"], ReviewerFromContext(r.Context()), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newApplicationView(app))
}

// RegisterApplicationRoutes registers the public and admin endpoints.
func RegisterApplicationRoutes(router *mux.Router, svc service.ApplicationService, tm security.TokenManager, trustProxy bool) {
	handler := NewApplicationHandler(svc, trustProxy)
	router.HandleFunc("/api/applications", handler.HandleSubmit).Methods(http.MethodPost)

	admin := router.PathPrefix("/api/admin/applications").Subrouter()
	admin.Use(RequireAdmin(tm))
	admin.HandleFunc("", handler.HandleList).Methods(http.MethodGet)
	admin.HandleFunc("", handler.HandleAdminSubmit).Methods(http.MethodPost)
	admin.HandleFunc("/search", handler.HandleSearch).Methods(http.MethodGet)
	admin.HandleFunc("/{id}", handler.HandleGet).Methods(http.MethodGet)
	admin.HandleFunc("/{id}/approve", handler.HandleApprove).Methods(http.MethodPost)
	admin.HandleFunc("/{id}/reject", handler.HandleReject).Methods(http.MethodPost)
}

// RegisterHealthRoutes registers the liveness probe.
func RegisterHealthRoutes(router *mux.Router, db Pinger) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
}

// NewRouter builds the complete HTTP surface.
func NewRouter(svc service.ApplicationService, tm security.TokenManager, db Pinger, trustProxy bool) *mux.Router {
	router := mux.NewRouter()
	RegisterHealthRoutes(router, db)
	RegisterApplicationRoutes(router, svc, tm, trustProxy)
	return router
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return domain.NewValidationError("body", "malformed JSON body")
	}
	return nil
}

func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return domain.NewValidationError("body", "malformed JSON body")
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return n, nil
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			return strings.TrimSpace(strings.Split(fwd, ",")[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
