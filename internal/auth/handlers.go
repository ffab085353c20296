package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"golang.org/x/crypto/bcrypt"

	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/store"
)

func newOAuthUser(email, name string) models.User {
	return models.User{
		Email:  email,
		Name:   name,
		Role:   models.RoleUser,
		Status: models.StatusOffline,
	}
}

// Session keys. ImpersonateID is set only while an admin is impersonating
// another user; UserID always refers to the real, logged-in account.
const (
	SessionUserID        = "user_id"
	SessionImpersonateID = "impersonate_id"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin authenticates an email/password pair against the stored
// bcrypt hash and opens a session.
func HandleLogin(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		user, err := st.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			// Same response for unknown email and wrong password.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		session := sessions.Default(c)
		session.Clear()
		session.Set(SessionUserID, user.ID)
		if err := session.Save(); err != nil {
			slog.Error("Session save failed", "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// HandleLogout clears the session, including any active impersonation.
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()

	if err := session.Save(); err != nil {
		slog.Error("Session clear failed", "error", err.Error())
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// HandleOAuthLogin initiates the Google OAuth flow
func HandleOAuthLogin(c *gin.Context) {
	// Gothic requires the "provider" query parameter
	q := c.Request.URL.Query()
	q.Add("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleOAuthCallback completes the OAuth flow, upserts the user, and opens
// a session. OAuth accounts are created without a password hash; they can
// only sign in through the provider.
func HandleOAuthCallback(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		q.Add("provider", "google")
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Error("OAuth callback failed", "error", err.Error())
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		user, err := st.GetUserByEmail(c.Request.Context(), gothUser.Email)
		if err != nil {
			user, err = st.CreateUser(c.Request.Context(), newOAuthUser(gothUser.Email, gothUser.Name))
			if err != nil {
				slog.Error("OAuth user upsert failed", "email", gothUser.Email, "error", err.Error())
				c.Redirect(http.StatusFound, "/login?error=auth_failed")
				return
			}
		}

		session := sessions.Default(c)
		session.Clear()
		session.Set(SessionUserID, user.ID)
		if err := session.Save(); err != nil {
			slog.Error("Session save failed", "error", err.Error())
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		slog.Info("User authenticated via OAuth", "email", user.Email)
		c.Redirect(http.StatusFound, "/")
	}
}
