package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bhandaraboard/internal/httputil"
	"bhandaraboard/internal/model"
	"bhandaraboard/internal/service"
	"bhandaraboard/internal/transport/http/middleware"
)

// maxSubmitFormMemory bounds the in-memory portion of a multipart submission
// (two photos at 10MB each plus the text fields).
const maxSubmitFormMemory = 25 << 20

type ListingHandler struct {
	listingService *service.ListingService
	voteService    *service.VoteService
}

func NewListingHandler(listingService *service.ListingService, voteService *service.VoteService) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		voteService:    voteService,
	}
}

// Create handles POST /listings
// Accepts a multipart form: text fields plus one or two photo files.
func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxSubmitFormMemory); err != nil {
		httputil.WriteBadRequest(w, "Invalid multipart form")
		return
	}

	draft := model.ListingDraft{
		LocationLink:        r.FormValue("location_link"),
		LocationDescription: r.FormValue("location_description"),
	}
	if v := r.FormValue("nearby_landmark"); v != "" {
		draft.NearbyLandmark = &v
	}
	if v := r.FormValue("menu"); v != "" {
		draft.Menu = &v
	}

	var photos []service.PhotoFile
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			file, err := header.Open()
			if err != nil {
				httputil.WriteBadRequest(w, "Could not read uploaded photo")
				return
			}
			defer file.Close()
			photos = append(photos, service.PhotoFile{File: file, Header: header})
		}
	}

	listing, err := h.listingService.Submit(r.Context(), ident, draft, photos)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, "Authentication required")
		case errors.Is(err, model.ErrInvalidMapLink):
			httputil.WriteBadRequest(w, "Location link must be a valid map link")
		case errors.Is(err, model.ErrMissingDescription):
			httputil.WriteBadRequest(w, "Location description is required")
		case errors.Is(err, model.ErrNoPhotosProvided):
			httputil.WriteBadRequest(w, "At least one photo is required")
		case errors.Is(err, model.ErrTooManyPhotos):
			httputil.WriteBadRequest(w, "Too many photos (max 2)")
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequest(w, "Photo too large (max 10MB)")
		case errors.Is(err, model.ErrInvalidImageType):
			httputil.WriteBadRequest(w, "Unsupported photo format")
		default:
			log.Printf("[ERROR] Create listing handler: user=%s err=%v", ident.ID, err)
			httputil.WriteInternalError(w, "Failed to create listing")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, listing)
}

// List handles GET /listings
// Returns the active listings, newest first. Expired rows are swept as a
// side effect of the read.
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.ListActive(r.Context())
	if err != nil {
		log.Printf("[ERROR] List listings handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list listings")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, listings)
}

// Upvote handles POST /listings/:id/upvote
// Idempotent: a repeat vote returns 200 with status "already_voted".
func (h *ListingHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	ident := middleware.GetIdentityFromContext(r.Context())
	if ident == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		httputil.WriteBadRequest(w, "Invalid listing ID")
		return
	}

	result, err := h.voteService.CastVote(r.Context(), ident.ID, listingID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAuthRequired):
			httputil.WriteUnauthorized(w, "Authentication required")
		case errors.Is(err, model.ErrListingNotFound):
			httputil.WriteNotFound(w, "Listing not found")
		default:
			log.Printf("[ERROR] Upvote handler: user=%s listing=%s err=%v", ident.ID, listingID, err)
			httputil.WriteInternalError(w, "Failed to record vote")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
