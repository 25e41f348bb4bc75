package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"visita/internal/church/models"
	"visita/internal/platform/middleware"
	dErrors "visita/pkg/domain-errors"
	"visita/pkg/platform/httputil"
)

// Service defines the review-workflow operations the handler exposes.
type Service interface {
	CreateProfile(ctx context.Context, actor models.Actor, req *models.CreateProfileRequest) (*models.ChurchProfile, error)
	ApplyUpdate(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.UpdateProfileRequest) (*models.StagingResult, error)
	Submit(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error)
	GetProfile(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ProfileDetails, error)
	PublicProfile(ctx context.Context, churchID uuid.UUID) (models.FieldMap, error)
	ListPublished(ctx context.Context) ([]*models.ChurchProfile, error)
	ReviewQueue(ctx context.Context, actor models.Actor) (*models.ReviewQueue, error)
	RouteToHeritageReview(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error)
	Approve(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.ChurchProfile, error)
	SendBackToDraft(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.SendBackRequest) (*models.ChurchProfile, error)
	ApprovePendingForChurch(ctx context.Context, actor models.Actor, churchID uuid.UUID) (*models.PendingChangeSet, error)
	RejectPendingForChurch(ctx context.Context, actor models.Actor, churchID uuid.UUID, req *models.RejectPendingRequest) (*models.PendingChangeSet, error)
}

// Handler wires church profile endpoints to the review-workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a church handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterParish mounts the parish-facing endpoints. The caller is expected to
// have applied RequireAuth with the parish_secretary role.
func (h *Handler) RegisterParish(r chi.Router) {
	r.Post("/parish/churches", h.HandleCreateProfile)
	r.Get("/parish/churches/{id}", h.HandleGetProfile)
	r.Patch("/parish/churches/{id}", h.HandleUpdateProfile)
	r.Post("/parish/churches/{id}/submit", h.HandleSubmit)
}

// RegisterChancery mounts the reviewer endpoints. The caller is expected to
// have applied RequireAuth with the reviewer roles.
func (h *Handler) RegisterChancery(r chi.Router) {
	r.Get("/chancery/review-queue", h.HandleReviewQueue)
	r.Post("/chancery/churches/{id}/heritage-review", h.HandleHeritageReview)
	r.Post("/chancery/churches/{id}/approve", h.HandleApprove)
	r.Post("/chancery/churches/{id}/send-back", h.HandleSendBack)
	r.Post("/chancery/churches/{id}/pending/approve", h.HandleApprovePending)
	r.Post("/chancery/churches/{id}/pending/reject", h.HandleRejectPending)
}

// RegisterPublic mounts the unauthenticated directory endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/churches", h.HandleListPublished)
	r.Get("/churches/{id}", h.HandlePublicProfile)
}

// actorFrom rebuilds the authenticated actor from claims stored by RequireAuth.
func actorFrom(ctx context.Context) models.Actor {
	return models.Actor{
		ID:       middleware.GetActorID(ctx),
		Role:     models.Role(middleware.GetRole(ctx)),
		ParishID: middleware.GetParishID(ctx),
	}
}

func churchID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid church id")
	}
	return id, nil
}

// HandleCreateProfile handles POST /parish/churches.
func (h *Handler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.Decode[models.CreateProfileRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.CreateProfile(ctx, actorFrom(ctx), req)
	if err != nil {
		h.logError(ctx, "create profile failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, profile)
}

// HandleGetProfile handles GET /parish/churches/{id}.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	details, err := h.service.GetProfile(ctx, actorFrom(ctx), id)
	if err != nil {
		h.logError(ctx, "get profile failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

// HandleUpdateProfile handles PATCH /parish/churches/{id}. The response tells
// the submitter which fields went live and which wait for review.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[models.UpdateProfileRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.ApplyUpdate(ctx, actorFrom(ctx), id, req)
	if err != nil {
		h.logError(ctx, "profile update failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleSubmit handles POST /parish/churches/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	h.profileAction(w, r, "submit failed", func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.service.Submit(ctx, actor, id)
	})
}

// HandlePublicProfile handles GET /churches/{id}. No authentication; only
// approved profiles resolve.
func (h *Handler) HandlePublicProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	view, err := h.service.PublicProfile(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleListPublished handles GET /churches.
func (h *Handler) HandleListPublished(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profiles, err := h.service.ListPublished(ctx)
	if err != nil {
		h.logError(ctx, "list published failed", err)
		httputil.WriteError(w, err)
		return
	}

	directory := make([]map[string]any, 0, len(profiles))
	for _, profile := range profiles {
		directory = append(directory, map[string]any{
			"id":     profile.ID,
			"fields": profile.PublicView(),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, directory)
}

// HandleReviewQueue handles GET /chancery/review-queue.
func (h *Handler) HandleReviewQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	queue, err := h.service.ReviewQueue(ctx, actorFrom(ctx))
	if err != nil {
		h.logError(ctx, "review queue failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, queue)
}

// HandleHeritageReview handles POST /chancery/churches/{id}/heritage-review.
func (h *Handler) HandleHeritageReview(w http.ResponseWriter, r *http.Request) {
	h.profileAction(w, r, "heritage routing failed", func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.service.RouteToHeritageReview(ctx, actor, id)
	})
}

// HandleApprove handles POST /chancery/churches/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.profileAction(w, r, "approval failed", func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.service.Approve(ctx, actor, id)
	})
}

// HandleSendBack handles POST /chancery/churches/{id}/send-back.
func (h *Handler) HandleSendBack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[models.SendBackRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.service.SendBackToDraft(ctx, actorFrom(ctx), id, req)
	if err != nil {
		h.logError(ctx, "send back failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// HandleApprovePending handles POST /chancery/churches/{id}/pending/approve.
func (h *Handler) HandleApprovePending(w http.ResponseWriter, r *http.Request) {
	h.profileAction(w, r, "pending approval failed", func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.service.ApprovePendingForChurch(ctx, actor, id)
	})
}

// HandleRejectPending handles POST /chancery/churches/{id}/pending/reject.
func (h *Handler) HandleRejectPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[models.RejectPendingRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	set, err := h.service.RejectPendingForChurch(ctx, actorFrom(ctx), id, req)
	if err != nil {
		h.logError(ctx, "pending rejection failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, set)
}

// profileAction factors the id-parse, call, respond shape shared by the
// body-less POST endpoints.
func (h *Handler) profileAction(w http.ResponseWriter, r *http.Request, logMsg string, fn func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error)) {
	ctx := r.Context()
	id, err := churchID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := fn(ctx, actorFrom(ctx), id)
	if err != nil {
		h.logError(ctx, logMsg, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if h.logger == nil {
		return
	}
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodePartialFailure {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", middleware.GetRequestID(ctx))
}
