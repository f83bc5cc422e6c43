package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"withdrawal_settlement/models"
)

const (
	UserHeader  = "X-User-ID"
	AdminHeader = "X-Admin-ID"
	actorKey    = "actor"
)

// UserAuth trusts the user id set by the gateway in front of the service.
func UserAuth() gin.HandlerFunc {
	return identify(UserHeader, models.RoleUser)
}

// AdminAuth resolves the administrator. Capabilities are checked later, per
// action, by the service.
func AdminAuth() gin.HandlerFunc {
	return identify(AdminHeader, models.RoleAdmin)
}

func identify(header string, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": header + " header is required"})
			return
		}
		logrus.WithFields(logrus.Fields{"role": role, "actor_id": id, "path": c.FullPath()}).Debug("request authenticated")
		c.Set(actorKey, models.Actor{ID: id, Role: role})
		c.Next()
	}
}

// ActorFrom returns the actor set by UserAuth or AdminAuth.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
