package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/models"
)

// CreateNotification persists a targeted clinical notification and routes
// it to the target's live handles only — never tenant-wide.
func (h *Handlers) CreateNotification(c *gin.Context) {
	var req struct {
		TargetID   string `json:"targetId" binding:"required"`
		SubjectRef string `json:"subjectRef,omitempty"`
		Body       string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issuerID, tenantID, ok := principal(c)
	if !ok {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.TargetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target ID"})
		return
	}

	n, err := h.store.CreateNotification(c.Request.Context(), models.Notification{
		TenantID:   tenantID,
		IssuerID:   issuerID,
		TargetID:   targetID,
		SubjectRef: req.SubjectRef,
		Body:       req.Body,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	h.router.RouteNotification(n)
	c.JSON(http.StatusCreated, n)
}

// GetUnreadNotifications lists pending notifications for one participant.
// Only the participant themselves may ask.
func (h *Handlers) GetUnreadNotifications(c *gin.Context) {
	viewerID, tenantID, ok := principal(c)
	if !ok {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(c.Param("participantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID"})
		return
	}
	if targetID != viewerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Notifications are private to their target"})
		return
	}

	out, err := h.store.UnreadNotifications(c.Request.Context(), tenantID, targetID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// MarkNotificationRead flips one notification's read flag. Monotonic:
// re-marking a read notification is a no-op.
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	_, tenantID, ok := principal(c)
	if !ok {
		return
	}
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := h.store.MarkNotificationRead(c.Request.Context(), tenantID, id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Marked as read"})
}
