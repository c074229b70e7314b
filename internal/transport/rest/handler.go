// Package rest provides HTTP handlers for cart operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	carterrors "github.com/abgdnv/gocommerce/cart_service/internal/errors"
	"github.com/abgdnv/gocommerce/cart_service/internal/service"
	"github.com/abgdnv/gocommerce/cart_service/internal/session"
	"github.com/abgdnv/gocommerce/cart_service/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Mounter registers mounted views.
type Mounter interface {
	Mount(ctx context.Context) (string, <-chan struct{})
	Unmount(id string) bool
}

// SessionController signs the user in and out.
type SessionController interface {
	SignIn(ctx context.Context, token string) (session.AuthState, error)
	SignOut(ctx context.Context) error
}

// SignInDto carries the bearer token of the user signing in.
type SignInDto struct {
	Token string `json:"token" validate:"required"`
}

// MountDto identifies a mounted view.
type MountDto struct {
	ViewID string            `json:"view_id"`
	UserID string            `json:"user_id,omitempty"`
	Cart   *service.CartView `json:"cart,omitempty"`
}

type Handler struct {
	service  service.CartService
	mounts   Mounter
	sessions SessionController
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new cart Handler.
func NewHandler(service service.CartService, mounts Mounter, sessions SessionController, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		mounts:   mounts,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the cart service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Get("/", h.View)
		r.Delete("/", h.Clear)
		r.Get("/totals", h.Totals)

		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.AddItem)
			r.Route("/{productId}", func(r chi.Router) {
				r.Put("/", h.UpdateItem)
				r.Delete("/", h.RemoveItem)
				r.Get("/quantity", h.ItemQuantity)
				r.Get("/availability", h.Availability)
			})
		})
	})

	r.Route("/api/v1/views", func(r chi.Router) {
		r.Post("/", h.Mount)
		r.Delete("/{id}", h.Unmount)
	})

	r.Route("/api/v1/session", func(r chi.Router) {
		r.Put("/", h.SignIn)
		r.Delete("/", h.SignOut)
	})
}

// View returns the full cart with totals, vendor groups and lifecycle flags.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	view := h.service.View(r.Context())
	mLogger.DebugContext(r.Context(), "Cart view served", "items", len(view.Items))
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Totals(r.Context()))
}

func (h *Handler) ItemQuantity(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.PathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"product_id": productID,
		"quantity":   h.service.ItemQuantity(r.Context(), productID),
	})
}

// Availability runs the stock guard for ?quantity= against ?max_stock= without changing the cart.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.PathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	quantity, ok := web.QueryInt(w, r, mLogger, "quantity", 1)
	if !ok {
		return
	}
	maxStock, ok := web.QueryInt(w, r, mLogger, "max_stock", 0)
	if !ok {
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, h.service.Availability(r.Context(), productID, quantity, maxStock))
}

// AddItem adds a product to the cart after the stock guard admits it.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var addItemDto service.AddItemDto
	if err := json.NewDecoder(r.Body).Decode(&addItemDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(addItemDto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to add item", "product_id", addItemDto.ProductID, "quantity", addItemDto.Quantity)
	view, err := h.service.AddItem(r.Context(), addItemDto)
	if err != nil {
		h.respondMutationError(w, r, mLogger, addItemDto.ProductID, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Item added to cart", "product_id", addItemDto.ProductID)
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

// UpdateItem sets the absolute quantity of a product already in the cart.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.PathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	var updateDto service.UpdateItemDto
	if err := json.NewDecoder(r.Body).Decode(&updateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.service.UpdateItem(r.Context(), productID, updateDto)
	if err != nil {
		h.respondMutationError(w, r, mLogger, productID, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Item quantity updated", "product_id", productID, "quantity", updateDto.Quantity)
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	productID, ok := web.PathParam(w, r, mLogger, "productId")
	if !ok {
		return
	}
	view, err := h.service.RemoveItem(r.Context(), productID)
	if err != nil {
		h.respondMutationError(w, r, mLogger, productID, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, view)
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.service.Clear(r.Context()); err != nil {
		mLogger.ErrorContext(r.Context(), "Error clearing cart", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to clear cart")
		return
	}
	mLogger.InfoContext(r.Context(), "Cart cleared")
	w.WriteHeader(http.StatusNoContent)
}

// Mount registers a view and starts its hydration pass.
// With ?wait=true the response is sent once the pass is over and includes the cart.
func (h *Handler) Mount(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, done := h.mounts.Mount(r.Context())
	if id == "" {
		web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Service is shutting down")
		return
	}
	mLogger.DebugContext(r.Context(), "View mounted", "view_id", id)
	if r.URL.Query().Get("wait") != "true" {
		web.RespondJSON(w, mLogger, http.StatusCreated, MountDto{ViewID: id})
		return
	}
	select {
	case <-done:
	case <-r.Context().Done():
		return
	}
	view := h.service.View(r.Context())
	web.RespondJSON(w, mLogger, http.StatusCreated, MountDto{ViewID: id, Cart: &view})
}

func (h *Handler) Unmount(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	viewID, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	id := viewID.String()
	if !h.mounts.Unmount(id) {
		mLogger.WarnContext(r.Context(), "View not found", "view_id", id, "error", carterrors.ErrViewNotFound)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("View with ID %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignIn stores the token, starts a fresh hydration cycle and mounts a view for it.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var signInDto SignInDto
	if err := json.NewDecoder(r.Body).Decode(&signInDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(signInDto); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	state, err := h.sessions.SignIn(r.Context(), signInDto.Token)
	if err != nil {
		if errors.Is(err, carterrors.ErrUnauthenticated) {
			mLogger.WarnContext(r.Context(), "Sign-in rejected")
			web.RespondError(w, mLogger, http.StatusUnauthorized, "Invalid token")
			return
		}
		mLogger.ErrorContext(r.Context(), "Error signing in", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	id, _ := h.mounts.Mount(r.Context())
	web.RespondJSON(w, mLogger, http.StatusOK, MountDto{ViewID: id, UserID: state.UserID})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	if err := h.sessions.SignOut(r.Context()); err != nil {
		mLogger.ErrorContext(r.Context(), "Error signing out", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to sign out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondMutationError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, productID string, err error) {
	switch {
	case errors.Is(err, carterrors.ErrInsufficientStock):
		web.RespondError(w, mLogger, http.StatusConflict, err.Error())
	case errors.Is(err, carterrors.ErrInvalidQuantity):
		web.RespondError(w, mLogger, http.StatusBadRequest, "Quantity must be at least 1")
	case errors.Is(err, carterrors.ErrItemNotFound):
		mLogger.WarnContext(r.Context(), "Item not found", "product_id", productID)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Product with ID %s is not in the cart", productID))
	default:
		mLogger.ErrorContext(r.Context(), "Error updating cart", "product_id", productID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to update cart")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID, _ := web.GetRequestID(r.Context())
	return h.logger.With("request_id", reqID)
}
