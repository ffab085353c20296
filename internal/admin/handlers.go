// Package admin exposes the administrator API: user management, aggregated
// status, log and notification views, and impersonation.
package admin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/odilbek/timeclock/internal/auth"
	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/store"
	"github.com/odilbek/timeclock/internal/timeclock"
)

type userView struct {
	models.User
	TotalBreakTime int64 `json:"total_break_time"`
}

// HandleListUsers returns every user with their live break total for the
// admin dashboard.
func HandleListUsers(st *store.Store, engine *timeclock.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := models.Status(c.Query("status"))
		switch status {
		case "", models.StatusWorking, models.StatusOnBreak, models.StatusOffline:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
			return
		}

		users, err := st.ListUsers(c.Request.Context(), status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load users"})
			return
		}

		now := time.Now()
		views := make([]userView, 0, len(users))
		for _, u := range users {
			views = append(views, userView{User: u, TotalBreakTime: engine.TotalBreakTime(u, now)})
		}
		c.JSON(http.StatusOK, gin.H{"users": views})
	}
}

// HandleStats returns the headcount-by-status summary.
func HandleStats(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := st.GetStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// HandleAllLogs returns every user's log entries joined with display
// fields, filtered by ?period=day|month|all.
func HandleAllLogs(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		period, ok := store.ParsePeriod(c.Query("period"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be day, month or all"})
			return
		}

		logs, err := st.AllLogs(c.Request.Context(), period, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role" binding:"omitempty,oneof=user admin"`
}

// HandleUpdateUser applies a partial edit to a user's profile fields.
func HandleUpdateUser(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user update"})
			return
		}

		fields := map[string]interface{}{}
		if req.Name != nil {
			fields["name"] = *req.Name
		}
		if req.Email != nil {
			fields["email"] = *req.Email
		}
		if req.Role != nil {
			fields["role"] = *req.Role
		}
		if len(fields) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
			return
		}

		user, err := st.UpdateUserFields(c.Request.Context(), id, fields)
		if errors.Is(err, timeclock.ErrMissingRecord) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// HandleDeleteUser removes a user. Admins cannot delete themselves.
func HandleDeleteUser(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if actor, _ := auth.Actor(c); actor.ID == id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
			return
		}

		err := st.DeleteUser(c.Request.Context(), id)
		if errors.Is(err, timeclock.ErrMissingRecord) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// HandleResetPassword stores a new bcrypt hash for the user.
func HandleResetPassword(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req resetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
			return
		}

		err = st.SetPassword(c.Request.Context(), id, string(hash))
		if errors.Is(err, timeclock.ErrMissingRecord) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
	}
}

// HandleImpersonate switches the session's effective user to the target.
// The admin's own account stays the actor; RequireAdmin keeps running
// against it, so an admin cannot escalate by impersonating another admin.
func HandleImpersonate(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if actor, _ := auth.Actor(c); actor.ID == id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "already acting as yourself"})
			return
		}

		target, err := st.GetUser(c.Request.Context(), id)
		if errors.Is(err, timeclock.ErrMissingRecord) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		session := sessions.Default(c)
		session.Set(auth.SessionImpersonateID, target.ID)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": target})
	}
}

// HandleExitImpersonation restores the admin's own session.
func HandleExitImpersonation(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(auth.SessionImpersonateID)
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "impersonation_ended"})
}

// HandleListNotifications returns the recent webhook delivery audit.
func HandleListNotifications(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 100
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 1000 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be 1-1000"})
				return
			}
			limit = n
		}

		notifications, err := st.ListNotifications(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load notifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": notifications})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return uint(id), true
}
