package handlers

import (
	"net/http"

	"github.com/baharkarakas/shop-backend/internal/api/httpx"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/services"
)

type OrderHandler struct {
	svc *services.OrderService
}

func NewOrderHandler(svc *services.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create defaults userId to the caller.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.OrderInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if in.UserID == "" {
		in.UserID = actor(r)
	}
	who, err := authorizeUser(r, in.UserID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	o, err := h.svc.Create(r.Context(), who, in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"id": o.ID, "order": o})
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = actor(r)
	}
	if _, err := authorizeUser(r, userID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	orders, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
