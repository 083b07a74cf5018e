// Package handlers exposes the delivery layer's HTTP surface, consumed by
// the hospital CRUD frontends. Every route sits behind the principal
// middleware; tenant scoping comes from the token, never from the request
// body.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medilink/delivery"
	"medilink/errs"
	"medilink/presence"
	"medilink/store"
)

type Handlers struct {
	store    store.Store
	router   *delivery.Router
	registry *presence.Registry
	log      *slog.Logger
}

func New(st store.Store, router *delivery.Router, registry *presence.Registry, log *slog.Logger) *Handlers {
	return &Handlers{store: st, router: router, registry: registry, log: log}
}

// principal reads the authenticated staff and tenant ids set by the JWT
// middleware. A malformed id means a token minted outside the platform.
func principal(c *gin.Context) (staffID, tenantID primitive.ObjectID, ok bool) {
	staffID, err1 := primitive.ObjectIDFromHex(c.GetString("staffId"))
	tenantID, err2 := primitive.ObjectIDFromHex(c.GetString("tenantId"))
	if err1 != nil || err2 != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid principal"})
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return staffID, tenantID, true
}

func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrRecipientNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipient not found"})
	case errors.Is(err, errs.ErrTenantMismatch):
		c.JSON(http.StatusForbidden, gin.H{"error": "Recipient belongs to another hospital"})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Store unavailable"})
	}
}
