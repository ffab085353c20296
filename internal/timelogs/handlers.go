// Package timelogs exposes the user-facing API: the current record, the
// four status actions, and the personal log view.
package timelogs

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/odilbek/timeclock/internal/auth"
	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/store"
	"github.com/odilbek/timeclock/internal/timeclock"
)

// userView is a user record plus the read-time break total (accumulated
// seconds plus the in-progress segment).
type userView struct {
	models.User
	TotalBreakTime int64 `json:"total_break_time"`
	Impersonating  bool  `json:"impersonating,omitempty"`
}

// HandleMe returns the effective user's current record with the live break
// total.
func HandleMe(engine *timeclock.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.JSON(http.StatusOK, userView{
			User:           user,
			TotalBreakTime: engine.TotalBreakTime(user, time.Now()),
			Impersonating:  auth.Impersonating(c),
		})
	}
}

// HandleAction applies one status action (start_work, start_break,
// end_break, end_work) for the effective user.
func HandleAction(svc *timeclock.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		action, ok := models.ParseAction(c.Param("action"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown action"})
			return
		}

		now := time.Now()
		updated, err := svc.ApplyAction(c.Request.Context(), user.ID, action, now)
		switch {
		case errors.Is(err, timeclock.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, timeclock.ErrMissingRecord):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status update failed"})
			return
		}

		c.JSON(http.StatusOK, userView{
			User:           updated,
			TotalBreakTime: svc.Engine().TotalBreakTime(updated, now),
			Impersonating:  auth.Impersonating(c),
		})
	}
}

// HandleMyLogs returns the effective user's log entries, newest first,
// filtered by ?period=day|month|all.
func HandleMyLogs(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		period, ok := store.ParsePeriod(c.Query("period"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period must be day, month or all"})
			return
		}

		logs, err := st.UserLogs(c.Request.Context(), user.ID, period, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load logs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"logs": logs})
	}
}
