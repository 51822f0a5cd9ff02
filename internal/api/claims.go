package api

import (
	"net/http"

	"github.com/campuslost/lostfound/internal/service"
)

// ClaimsHandler handles claim endpoints.
type ClaimsHandler struct {
	Claims *service.ClaimManager
	*errorWriter
}

type submitClaimRequest struct {
	ProofMessage string `json:"proofMessage"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Submit handles POST /api/claims/item/{itemId}.
func (h *ClaimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	itemID, valid := pathID(r, "itemId")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req submitClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claim, err := h.Claims.Submit(r.Context(), actor(r), itemID, req.ProofMessage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "claim submitted", claim)
}

// Mine handles GET /api/claims/mine.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims, err := h.Claims.ListMine(r.Context(), actor(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okList(w, claims)
}

// ByItem handles GET /api/claims/item/{itemId}.
func (h *ClaimsHandler) ByItem(w http.ResponseWriter, r *http.Request) {
	itemID, valid := pathID(r, "itemId")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	claims, err := h.Claims.ListByItem(r.Context(), actor(r), itemID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	okList(w, claims)
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.Claims.Get(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", claim)
}

// Approve handles PUT /api/claims/{id}/approve.
func (h *ClaimsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	claim, err := h.Claims.Approve(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "claim approved", claim)
}

// Reject handles PUT /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, valid := pathID(r, "id")
	if !valid {
		jsonError(w, http.StatusBadRequest, "invalid claim id")
		return
	}

	var req reasonRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	claim, err := h.Claims.Reject(r.Context(), actor(r), id, req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "claim rejected", claim)
}
