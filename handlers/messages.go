package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/models"
)

// GetConversations returns the viewer's roster: one derived view per other
// staff member in the tenant, most recent conversation first.
func (h *Handlers) GetConversations(c *gin.Context) {
	viewerID, tenantID, ok := principal(c)
	if !ok {
		return
	}

	views, err := h.store.ListConversations(c.Request.Context(), tenantID, viewerID)
	if err != nil {
		h.log.Error("list conversations failed", "viewer", viewerID.Hex(), "err", err)
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetMessages returns the full history with one peer. Fetching marks the
// peer's pending messages read, so a read receipt is routed when anything
// flipped.
func (h *Handlers) GetMessages(c *gin.Context) {
	viewerID, tenantID, ok := principal(c)
	if !ok {
		return
	}
	peerID, err := primitive.ObjectIDFromHex(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid peer ID"})
		return
	}

	history, updated, err := h.store.ListMessages(c.Request.Context(), tenantID, viewerID, peerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if updated > 0 {
		h.router.RouteReadReceipt(viewerID.Hex(), peerID.Hex())
	}
	c.JSON(http.StatusOK, history)
}

// SendMessage persists and routes one message. Persistence failure aborts
// the call; no live push happens for an unpersisted record.
func (h *Handlers) SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID string `json:"receiverId" binding:"required"`
		Body       string `json:"body,omitempty"`
		MediaRef   string `json:"mediaRef,omitempty"`
		Kind       string `json:"kind,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	senderID, tenantID, ok := principal(c)
	if !ok {
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid receiver ID"})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindText
	}
	if !models.ValidKind(kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown message kind"})
		return
	}
	if req.Body == "" && req.MediaRef == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty message"})
		return
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), models.Message{
		TenantID:   tenantID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       req.Body,
		MediaRef:   req.MediaRef,
		Kind:       kind,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	h.router.RouteMessage(msg)
	c.JSON(http.StatusCreated, msg)
}

// MarkRead flips every pending message from the peer. Idempotent.
func (h *Handlers) MarkRead(c *gin.Context) {
	viewerID, tenantID, ok := principal(c)
	if !ok {
		return
	}
	peerID, err := primitive.ObjectIDFromHex(c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid peer ID"})
		return
	}

	updated, err := h.store.MarkRead(c.Request.Context(), tenantID, viewerID, peerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if updated > 0 {
		h.router.RouteReadReceipt(viewerID.Hex(), peerID.Hex())
	}
	c.JSON(http.StatusOK, gin.H{"updatedCount": updated})
}
