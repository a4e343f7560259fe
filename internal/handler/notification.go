package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"bhandaraboard/internal/httputil"
	"bhandaraboard/internal/model"
	"bhandaraboard/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// VAPIDKey handles GET /notifications/vapid-key
// Returns the public key browsers need to create a push subscription.
func (h *NotificationHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"public_key": h.notificationService.VAPIDPublicKey(),
	})
}

// Subscribe handles POST /notifications/subscriptions
// Registers or reactivates a device's push subscription.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req model.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	sub, err := h.notificationService.Subscribe(r.Context(), req)
	if err != nil {
		if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
			httputil.WriteBadRequest(w, "Endpoint and keys are required")
			return
		}
		log.Printf("[ERROR] Subscribe handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to register subscription")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /notifications/subscriptions
// Deactivates the subscription for the given endpoint.
func (h *NotificationHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Endpoint string `json:"endpoint"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Endpoint == "" {
		httputil.WriteBadRequest(w, "Endpoint is required")
		return
	}

	if err := h.notificationService.Unsubscribe(r.Context(), req.Endpoint); err != nil {
		log.Printf("[ERROR] Unsubscribe handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to remove subscription")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Subscription removed",
	})
}
