package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-qr/services"
	"github.com/yeremiapane/restaurant-qr/utils"
)

// SessionCookieName is the cookie carrying the table session credential.
const SessionCookieName = "tsession"

const (
	tableIDKey     = "table_id"
	tableNumberKey = "table_number"
)

// SessionAuthorizer resolves a credential to a table.
type SessionAuthorizer interface {
	Authorize(ctx context.Context, cred services.Credential) (*services.TableIdentity, error)
}

// RequireTableSession admits only requests carrying a live table session and
// stores the resolved table in the context.
func RequireTableSession(auth SessionAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(SessionCookieName)

		id, err := auth.Authorize(c.Request.Context(), services.Credential(token))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrNoSession):
			utils.RespondReason(c, http.StatusUnauthorized, services.ErrNoSession.Error())
			return
		case errors.Is(err, services.ErrSessionInvalid):
			utils.RespondReason(c, http.StatusUnauthorized, services.ErrSessionInvalid.Error())
			return
		default:
			utils.ErrorLogger.WithError(err).Error("table session guard failed")
			utils.RespondReason(c, http.StatusInternalServerError, "server_error")
			return
		}

		c.Set(tableIDKey, id.TableID)
		c.Set(tableNumberKey, id.TableNumber)
		c.Next()
	}
}

// TableFromContext returns the table resolved by RequireTableSession.
func TableFromContext(c *gin.Context) (services.TableIdentity, bool) {
	id, ok := c.Get(tableIDKey)
	if !ok {
		return services.TableIdentity{}, false
	}
	tableID, ok := id.(uint)
	if !ok {
		return services.TableIdentity{}, false
	}
	return services.TableIdentity{TableID: tableID, TableNumber: c.GetString(tableNumberKey)}, true
}

// EnsureSameTable rejects requests whose :table_id differs from the session's table.
func EnsureSameTable(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		paramID, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			utils.RespondReason(c, http.StatusBadRequest, "bad_table_id")
			return
		}
		id, ok := TableFromContext(c)
		if !ok {
			utils.RespondReason(c, http.StatusUnauthorized, services.ErrNoSession.Error())
			return
		}
		if uint(paramID) != id.TableID {
			utils.RespondReason(c, http.StatusForbidden, "forbidden_different_table")
			return
		}
		c.Next()
	}
}
