package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bhandaraboard/internal/httputil"
	"bhandaraboard/internal/model"
	"bhandaraboard/internal/service"
)

// AdminPasswordHeader carries the shared moderation password on admin
// requests.
const AdminPasswordHeader = "X-Admin-Password"

type AdminHandler struct {
	listingService *service.ListingService
}

func NewAdminHandler(listingService *service.ListingService) *AdminHandler {
	return &AdminHandler{
		listingService: listingService,
	}
}

// Login handles POST /admin/login
// Verifies the shared password so the client can unlock the moderation page.
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.listingService.VerifyAdmin(req.Password); err != nil {
		httputil.WriteUnauthorized(w, "Invalid admin password")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// List handles GET /admin/listings
// Returns every listing left after an expiry sweep.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.AdminListAll(r.Context(), r.Header.Get(AdminPasswordHeader))
	if err != nil {
		if errors.Is(err, model.ErrAdminUnauthorized) {
			httputil.WriteUnauthorized(w, "Invalid admin password")
			return
		}
		log.Printf("[ERROR] Admin list handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list listings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listings)
}

// Delete handles DELETE /admin/listings/:id
// Removes a listing before its window closes.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	err := h.listingService.AdminDelete(r.Context(), r.Header.Get(AdminPasswordHeader), listingID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAdminUnauthorized):
			httputil.WriteUnauthorized(w, "Invalid admin password")
		case errors.Is(err, model.ErrListingNotFound):
			httputil.WriteNotFound(w, "Listing not found")
		default:
			log.Printf("[ERROR] Admin delete handler: listing=%s err=%v", listingID, err)
			httputil.WriteInternalError(w, "Failed to delete listing")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Listing deleted successfully",
	})
}
