package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/shop-backend/internal/api/httpx"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/services"
)

type UserHandler struct {
	svc *services.AccountService
}

func NewUserHandler(svc *services.AccountService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := authorizeUser(r, id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	p, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := authorizeUser(r, id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req models.ProfileUpdate
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.svc.UpdateProfile(r.Context(), id, req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w)
}

type basketReq struct {
	Basket []models.LineItem `json:"basket"`
}

func (h *UserHandler) SaveBasket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := authorizeUser(r, id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	var req basketReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.svc.SaveBasket(r.Context(), id, req.Basket); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w)
}
