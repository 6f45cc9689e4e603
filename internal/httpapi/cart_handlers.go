package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addCartItemRequest struct {
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

type updateCartItemRequest struct {
	Qty int32 `json:"qty"`
}

func (s *Server) handleGetCart(kind ownerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := s.carts.Get(ownerFromRequest(r, kind))
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartView(cart))
	}
}

func (s *Server) handleAddCartItem(kind ownerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCartItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		cart, err := s.carts.AddItem(ownerFromRequest(r, kind), req.ProductID, req.Qty, req.UnitPriceMinor)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartView(cart))
	}
}

func (s *Server) handleUpdateCartItem(kind ownerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateCartItemRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		cart, err := s.carts.UpdateItemQty(ownerFromRequest(r, kind), chi.URLParam(r, "productID"), req.Qty)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartView(cart))
	}
}

func (s *Server) handleRemoveCartItem(kind ownerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cart, err := s.carts.RemoveItem(ownerFromRequest(r, kind), chi.URLParam(r, "productID"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartView(cart))
	}
}

func (s *Server) handleClearCart(kind ownerKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.carts.Clear(ownerFromRequest(r, kind)); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
