package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/josiahbryan/userhub/internal/config"
	"github.com/josiahbryan/userhub/internal/domain/user"
	"github.com/josiahbryan/userhub/internal/http/middlewares"
	"github.com/josiahbryan/userhub/internal/notifications"
	"github.com/josiahbryan/userhub/internal/observability"
	"github.com/josiahbryan/userhub/internal/security"
	"github.com/josiahbryan/userhub/internal/utils"
)

type UsersStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, filter user.ListUsersFilter, page, limit int) ([]user.User, int, error)
	Update(ctx context.Context, id string, fields user.UpdateFields) (user.User, error)
	Delete(ctx context.Context, id string) (int64, error)
}

type UsersHandler struct {
	store    UsersStore
	notifier notifications.Notifier
	log      *slog.Logger
	metrics  *observability.Prom

	defaultPage  int
	defaultLimit int
}

func NewUsersHandler(store UsersStore, notifier notifications.Notifier, log *slog.Logger, metrics *observability.Prom, cfg config.Config) *UsersHandler {
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}

	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 10
	}

	return &UsersHandler{
		store:        store,
		notifier:     notifier,
		log:          log,
		metrics:      metrics,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
	}
}

// List returns one page of users for admins. Pagination metadata travels in
// response headers; the body stays a plain array of records.
func (h *UsersHandler) List(ctx *gin.Context) {
	caller, ok := middlewares.CallerFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	if !caller.IsAdmin() {
		RespondForbidden(ctx)
		return
	}

	// only email and role are filterable; everything else is ignored
	filter := user.ListUsersFilter{}

	if v := ctx.Query("email"); v != "" {
		filter.Email = &v
	}

	if v := ctx.Query("role"); v != "" {
		filter.Role = &v
	}

	page := utils.ParsePageParam(ctx.Query("page"), h.defaultPage)
	limit := utils.ParsePageParam(ctx.Query("limit"), h.defaultLimit)

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, total, err := h.store.List(cctx, filter, page, limit)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	utils.SetPaginationHeaders(ctx, utils.Page{Page: page, Limit: limit, Total: total})

	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	caller, ok := middlewares.CallerFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.store.GetByID(cctx, id)

	if err != nil {
		// lookup failures are reported as not-found, never leaked verbatim
		if !errors.Is(err, user.ErrNotFound) {
			h.log.ErrorContext(ctx.Request.Context(), "user lookup failed", "user_id", id, "err", err)
		}

		RespondNotFound(ctx, "User not found")
		return
	}

	if !caller.CanRead(user.Target{ID: found.ID}) {
		RespondForbidden(ctx)
		return
	}

	ctx.JSON(http.StatusOK, found)
}

// Create registers a new user. Unauthenticated: this is the sign-up route.
func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	// role is not a field of the request type, so a client-supplied role is
	// dropped during decoding
	if !BindJSON(ctx, &req) {
		return
	}

	if err := user.ValidateCreate(req); err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	created, err := h.store.Create(cctx, u)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	// The record is committed; both messages go out concurrently and are
	// awaited before the response. Failures are logged, never escalated.
	h.sendRegistrationNotifications(created)

	ctx.JSON(http.StatusCreated, created)
}

func (h *UsersHandler) sendRegistrationNotifications(created user.User) {
	to := notifications.Recipient{UserID: created.ID, Email: created.Email}

	// Detached from the request context: an abandoned request must not
	// cancel a send halfway through.
	nctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	var wg sync.WaitGroup

	send := func(kind string, fn func(context.Context, notifications.Recipient) error) {
		defer wg.Done()

		err := fn(nctx, to)

		result := "ok"

		if err != nil {
			result = "error"
			h.log.WarnContext(nctx, "registration notification failed",
				"kind", kind,
				"user_id", created.ID,
				"err", err,
			)
		}

		if h.metrics != nil {
			h.metrics.NotificationsTotal.WithLabelValues(kind, result).Inc()
		}
	}

	wg.Add(2)

	go send("greeting", h.notifier.SendGreeting)
	go send("gift_card", h.notifier.SendGiftCard)

	wg.Wait()
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	caller, ok := middlewares.CallerFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	// authorization is keyed on the target identity, before any load
	if !caller.CanEdit(user.Target{ID: id}) {
		RespondForbidden(ctx)
		return
	}

	// UpdateUserRequest carries no role field: a client-supplied role never
	// survives decoding
	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := user.ValidateUpdate(req); err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	fields := user.UpdateFields{
		Email: req.Email,
		Items: req.Items,
	}

	// hash only when a new plaintext arrives
	if req.Password != nil {
		hash, err := security.HashPassword(*req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not update user")
			return
		}

		fields.PasswordHash = &hash
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	updated, err := h.store.Update(cctx, id, fields)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondBadRequest(ctx, "Email is already in use.", nil)
		default:
			RespondInternal(ctx, "Could not update user")
		}

		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// Delete removes a user. The capability check runs before the removal, not
// after it, so an unauthorized caller can never trigger the delete. Idempotent:
// deleting a missing record still succeeds.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	caller, ok := middlewares.CallerFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	id := ctx.Param("id")

	if !caller.CanEdit(user.Target{ID: id}) {
		RespondForbidden(ctx)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	deleted, err := h.store.Delete(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not delete user")
		return
	}

	if deleted == 0 {
		h.log.DebugContext(ctx.Request.Context(), "delete matched no user", "user_id", id)
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User successfully deleted"})
}
