package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/shop-backend/internal/api/httpx"
	"github.com/baharkarakas/shop-backend/internal/api/validate"
	"github.com/baharkarakas/shop-backend/internal/middleware"
	"github.com/baharkarakas/shop-backend/internal/models"
	"github.com/baharkarakas/shop-backend/internal/services"
)

type ProductHandler struct {
	svc *services.CatalogService
}

func NewProductHandler(svc *services.CatalogService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

type productsResp struct {
	Products []models.Product `json:"products"`
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.List(r.Context(), validate.Offset(q), validate.Limit(q))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *ProductHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Featured(r.Context(), validate.Limit(r.URL.Query()))
	h.writeList(w, ps, err)
}

func (h *ProductHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	ps, err := h.svc.Recommended(r.Context(), validate.Limit(r.URL.Query()))
	h.writeList(w, ps, err)
}

func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := h.svc.Search(r.Context(), q.Get("q"), validate.Limit(q))
	h.writeList(w, ps, err)
}

func (h *ProductHandler) writeList(w http.ResponseWriter, ps []models.Product, err error) {
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, productsResp{Products: ps})
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}
	p, err := h.svc.Create(r.Context(), actor(r), in)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"id": p.ID, "product": p})
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.ProductInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.svc.Update(r.Context(), actor(r), chi.URLParam(r, "id"), in); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), actor(r), chi.URLParam(r, "id")); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.OK(w)
}

func actor(r *http.Request) string {
	if c, ok := middleware.Claims(r.Context()); ok {
		return c.UserID
	}
	return ""
}
