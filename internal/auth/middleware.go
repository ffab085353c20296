package auth

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/odilbek/timeclock/internal/models"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ctxUser          = "auth_user"
	ctxActor         = "auth_actor"
	ctxImpersonating = "auth_impersonating"
)

// UserLoader is the slice of the store the middleware needs.
type UserLoader interface {
	GetUser(ctx context.Context, id uint) (models.User, error)
}

// RequireAuth ensures a session exists and resolves the effective user.
// While an admin impersonates someone, the effective user is the target and
// the admin stays recorded as the actor.
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		rawID := session.Get(SessionUserID)
		if rawID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		actorID, ok := rawID.(uint)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		actor, err := users.GetUser(c.Request.Context(), actorID)
		if err != nil {
			// Stale session for a deleted account.
			session.Clear()
			_ = session.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		effective := actor
		impersonating := false
		if rawImp := session.Get(SessionImpersonateID); rawImp != nil && actor.IsAdmin() {
			if impID, ok := rawImp.(uint); ok && impID != actorID {
				target, err := users.GetUser(c.Request.Context(), impID)
				if err == nil {
					effective = target
					impersonating = true
				}
			}
		}

		c.Set(ctxUser, effective)
		c.Set(ctxActor, actor)
		c.Set(ctxImpersonating, impersonating)

		c.Next()
	}
}

// RequireAdmin allows only admin actors through. Impersonation does not
// grant or shed admin rights: the check runs against the real account.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok || !actor.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the effective user for the request (the impersonated
// user while impersonation is active).
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// Actor returns the real logged-in account regardless of impersonation.
func Actor(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxActor)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// Impersonating reports whether the session is currently impersonating.
func Impersonating(c *gin.Context) bool {
	v, ok := c.Get(ctxImpersonating)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
