package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetPresence reports a colleague's live status for the roster UI. Scoped
// to the caller's tenant: asking about staff from another hospital is a
// not-found, not a leak.
func (h *Handlers) GetPresence(c *gin.Context) {
	_, tenantID, ok := principal(c)
	if !ok {
		return
	}
	participantID, err := primitive.ObjectIDFromHex(c.Param("participantId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID"})
		return
	}

	if _, err := h.store.GetStaff(c.Request.Context(), tenantID, participantID); err != nil {
		respondErr(c, err)
		return
	}

	status, lastSeen := h.registry.Status(participantID.Hex())
	resp := gin.H{"participantId": participantID.Hex(), "status": status}
	if lastSeen > 0 {
		resp["lastSeenAt"] = lastSeen
	}
	c.JSON(http.StatusOK, resp)
}
