package handlers

import (
	"net/http"

	"github.com/baharkarakas/shop-backend/internal/api/httpx"
	"github.com/baharkarakas/shop-backend/internal/apperr"
	"github.com/baharkarakas/shop-backend/internal/middleware"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/services"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type signinReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupInput
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := h.svc.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.Claims(r.Context())
	if !ok {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return
	}
	u, err := h.svc.Me(r.Context(), claims)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": u})
}

// authorizeUser lets the token owner, or an admin, act on userID.
func authorizeUser(r *http.Request, userID string) (string, error) {
	claims, ok := middleware.Claims(r.Context())
	if !ok {
		return "", apperr.ErrUnauthorized
	}
	if claims.UserID != userID && !claims.IsAdmin() {
		return "", apperr.New(apperr.ErrForbidden, "not allowed to access this user")
	}
	return claims.UserID, nil
}
