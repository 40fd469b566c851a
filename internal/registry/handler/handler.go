// Package handler exposes the registry's command and query surface over
// HTTP. It is a thin layer: every rule lives in the registry service, and the
// handler only decodes, delegates and renders.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"landregistry/internal/identity"
	"landregistry/internal/land"
	"landregistry/internal/platform/middleware"
	"landregistry/internal/transfer"
	"landregistry/pkg/domain"
	dErrors "landregistry/pkg/domain-errors"
	"landregistry/pkg/platform/httputil"
	"landregistry/pkg/requestcontext"
)

// Service is the registry surface the handler delegates to.
type Service interface {
	RegisterUser(ctx context.Context, cred domain.Credential, name string, nationalID domain.NationalID, role domain.Role) (*identity.Profile, error)
	RequestLandRegistration(ctx context.Context, cred domain.Credential, landID int64, ownerName string, nationalID domain.NationalID, titleNumber, location string, size int64, landType string) (*land.Record, error)
	ApproveLand(ctx context.Context, cred domain.Credential, landID domain.LandID) (*land.Record, error)
	RejectLand(ctx context.Context, cred domain.Credential, landID domain.LandID, reason string) (*land.Record, error)
	RequestTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID, toNationalID domain.NationalID, proposedOwnerName string) (*transfer.Request, error)
	ApproveTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID) (*transfer.Request, error)
	RejectTransfer(ctx context.Context, cred domain.Credential, landID domain.LandID) (*transfer.Request, error)

	LookupByCredential(ctx context.Context, cred domain.Credential) (*identity.Profile, error)
	LookupByNationalID(ctx context.Context, nationalID domain.NationalID) (*identity.Profile, error)
	GetLand(ctx context.Context, landID domain.LandID) (*land.Record, error)
	ListLandIDs(ctx context.Context) ([]domain.LandID, error)
	ListByStatus(ctx context.Context, status land.Status) ([]*land.Record, error)
	ListByOwner(ctx context.Context, cred domain.Credential) ([]*land.Record, error)
	ListOpenTransfers(ctx context.Context) ([]domain.LandID, error)
	ListTransferHistory(ctx context.Context, landID domain.LandID) ([]*transfer.Request, error)
}

// Handler serves the /registry routes.
type Handler struct {
	logger    *slog.Logger
	registry  Service
	validator middleware.CredentialValidator
}

// New creates a registry Handler.
func New(registry Service, logger *slog.Logger, validator middleware.CredentialValidator) *Handler {
	return &Handler{
		logger:    logger,
		registry:  registry,
		validator: validator,
	}
}

// Register mounts the registry routes on the chi router. Every route requires
// a bearer token; the service decides what the authenticated credential may
// do.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.Logger(h.logger))
	router.Use(chimw.Timeout(30 * time.Second))
	router.Use(middleware.RequireAuth(h.validator, h.logger))

	router.Post("/registry/users", h.handleRegisterUser)
	router.Get("/registry/users/me", h.handleGetMe)
	router.Get("/registry/users/by-national-id/{nationalID}", h.handleLookupNationalID)

	router.Post("/registry/lands", h.handleRequestLand)
	router.Get("/registry/lands", h.handleListLands)
	router.Get("/registry/lands/ids", h.handleListLandIDs)
	router.Get("/registry/lands/{landID}", h.handleGetLand)
	router.Post("/registry/lands/{landID}/approve", h.handleApproveLand)
	router.Post("/registry/lands/{landID}/reject", h.handleRejectLand)

	router.Post("/registry/lands/{landID}/transfer", h.handleRequestTransfer)
	router.Get("/registry/lands/{landID}/transfers", h.handleListTransferHistory)
	router.Post("/registry/lands/{landID}/transfer/approve", h.handleApproveTransfer)
	router.Post("/registry/lands/{landID}/transfer/reject", h.handleRejectTransfer)
	router.Get("/registry/transfers/open", h.handleListOpenTransfers)

	r.Mount("/", router)
}

func (h *Handler) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[registerUserRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nationalID, err := domain.ParseNationalID(req.NationalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.registry.RegisterUser(ctx, requestcontext.Caller(ctx), req.Name, nationalID, role)
	if err != nil {
		h.writeServiceError(ctx, w, "register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProfileResponse(profile))
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profile, err := h.registry.LookupByCredential(ctx, requestcontext.Caller(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "lookup caller", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) handleLookupNationalID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nationalID, err := domain.ParseNationalID(chi.URLParam(r, "nationalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.registry.LookupByNationalID(ctx, nationalID)
	if err != nil {
		h.writeServiceError(ctx, w, "lookup national id", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) handleRequestLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[requestLandRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	nationalID, err := domain.ParseNationalID(req.NationalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.RequestLandRegistration(ctx, requestcontext.Caller(ctx),
		req.LandID, req.OwnerName, nationalID, req.TitleNumber, req.Location, req.Size, req.LandType)
	if err != nil {
		h.writeServiceError(ctx, w, "request land registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toLandResponse(record))
}

func (h *Handler) handleListLands(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Query().Get("owner") == "me" {
		records, err := h.registry.ListByOwner(ctx, requestcontext.Caller(ctx))
		if err != nil {
			h.writeServiceError(ctx, w, "list lands by owner", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toLandResponses(records))
		return
	}

	status, err := land.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.registry.ListByStatus(ctx, status)
	if err != nil {
		h.writeServiceError(ctx, w, "list lands by status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandResponses(records))
}

func (h *Handler) handleListLandIDs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := h.registry.ListLandIDs(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list land ids", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandIDs(ids))
}

func (h *Handler) handleGetLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.registry.GetLand(ctx, landID)
	if err != nil {
		h.writeServiceError(ctx, w, "get land", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandResponse(record))
}

func (h *Handler) handleApproveLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.registry.ApproveLand(ctx, requestcontext.Caller(ctx), landID)
	if err != nil {
		h.writeServiceError(ctx, w, "approve land", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandResponse(record))
}

func (h *Handler) handleRejectLand(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[rejectLandRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	record, err := h.registry.RejectLand(ctx, requestcontext.Caller(ctx), landID, req.Reason)
	if err != nil {
		h.writeServiceError(ctx, w, "reject land", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandResponse(record))
}

func (h *Handler) handleRequestTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[requestTransferRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	toNationalID, err := domain.ParseNationalID(req.ToNationalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	request, err := h.registry.RequestTransfer(ctx, requestcontext.Caller(ctx), landID, toNationalID, req.ProposedOwnerName)
	if err != nil {
		h.writeServiceError(ctx, w, "request transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toTransferResponse(request))
}

func (h *Handler) handleApproveTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	request, err := h.registry.ApproveTransfer(ctx, requestcontext.Caller(ctx), landID)
	if err != nil {
		h.writeServiceError(ctx, w, "approve transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransferResponse(request))
}

func (h *Handler) handleRejectTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	request, err := h.registry.RejectTransfer(ctx, requestcontext.Caller(ctx), landID)
	if err != nil {
		h.writeServiceError(ctx, w, "reject transfer", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransferResponse(request))
}

func (h *Handler) handleListTransferHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	landID, err := parseLandID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.registry.ListTransferHistory(ctx, landID)
	if err != nil {
		h.writeServiceError(ctx, w, "list transfer history", err)
		return
	}
	out := make([]transferResponse, 0, len(history))
	for _, req := range history {
		out = append(out, toTransferResponse(req))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListOpenTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ids, err := h.registry.ListOpenTransfers(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list open transfers", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toLandIDs(ids))
}

func parseLandID(r *http.Request) (domain.LandID, error) {
	raw := chi.URLParam(r, "landID")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidID, "land id must be a positive integer")
	}
	return domain.ParseLandID(v)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "command failed",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
