package timelogs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/odilbek/timeclock/internal/auth"
	"github.com/odilbek/timeclock/internal/models"
	"github.com/odilbek/timeclock/internal/timeclock"
)

// memGateway backs the handler tests with an in-memory user table.
type memGateway struct {
	users map[uint]models.User
	logs  []models.TimeLog
}

func (g *memGateway) GetUser(_ context.Context, id uint) (models.User, error) {
	u, ok := g.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, timeclock.ErrMissingRecord)
	}
	return u, nil
}

func (g *memGateway) ListUsers(_ context.Context, status models.Status) ([]models.User, error) {
	var out []models.User
	for _, u := range g.users {
		if status == "" || u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (g *memGateway) SaveUser(_ context.Context, u models.User) (models.User, error) {
	g.users[u.ID] = u
	return u, nil
}

func (g *memGateway) AppendLog(_ context.Context, entry models.TimeLog) error {
	g.logs = append(g.logs, entry)
	return nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(timeclock.Notification) error { return nil }

func newActionRouter(t *testing.T, gw *memGateway) *gin.Engine {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tashkent")
	require.NoError(t, err)
	engine, err := timeclock.NewEngine(loc, "09:00", 3600)
	require.NoError(t, err)
	svc := timeclock.NewService(engine, gw, noopDispatcher{}, slog.Default())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/test/session/:id", func(c *gin.Context) {
		var id uint
		fmt.Sscanf(c.Param("id"), "%d", &id)
		s := sessions.Default(c)
		s.Set(auth.SessionUserID, id)
		_ = s.Save()
		c.Status(http.StatusOK)
	})

	api := r.Group("/api", auth.RequireAuth(gw))
	api.GET("/me", HandleMe(engine))
	api.POST("/time/:action", HandleAction(svc))
	return r
}

func login(t *testing.T, r *gin.Engine, id uint) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/test/session/%d", id), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func doPost(r *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestHandleActionStartWork(t *testing.T) {
	gw := &memGateway{users: map[uint]models.User{
		1: {Model: gorm.Model{ID: 1, UpdatedAt: time.Now().Add(-time.Hour)}, Name: "Worker", Status: models.StatusOffline},
	}}
	r := newActionRouter(t, gw)
	cookies := login(t, r, 1)

	w := doPost(r, "/api/time/start_work", cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status models.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.StatusWorking, resp.Status)
	assert.Equal(t, models.StatusWorking, gw.users[1].Status)
	require.Len(t, gw.logs, 1)
	assert.Equal(t, models.ActionStartWork, gw.logs[0].Action)
}

func TestHandleActionInvalidTransition(t *testing.T) {
	gw := &memGateway{users: map[uint]models.User{
		1: {Model: gorm.Model{ID: 1, UpdatedAt: time.Now().Add(-time.Hour)}, Name: "Worker", Status: models.StatusOffline},
	}}
	r := newActionRouter(t, gw)
	cookies := login(t, r, 1)

	w := doPost(r, "/api/time/end_break", cookies)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.StatusOffline, gw.users[1].Status, "record unchanged")
	assert.Empty(t, gw.logs)
}

func TestHandleActionUnknown(t *testing.T) {
	gw := &memGateway{users: map[uint]models.User{
		1: {Model: gorm.Model{ID: 1, UpdatedAt: time.Now()}, Status: models.StatusOffline},
	}}
	r := newActionRouter(t, gw)
	cookies := login(t, r, 1)

	w := doPost(r, "/api/time/take_nap", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleActionRequiresAuth(t *testing.T) {
	gw := &memGateway{users: map[uint]models.User{}}
	r := newActionRouter(t, gw)

	w := doPost(r, "/api/time/start_work", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleMeIncludesLiveBreakTotal(t *testing.T) {
	bs := time.Now().Add(-10 * time.Minute)
	gw := &memGateway{users: map[uint]models.User{
		1: {
			Model:          gorm.Model{ID: 1, UpdatedAt: time.Now()},
			Name:           "Worker",
			Status:         models.StatusOnBreak,
			BreakStartTime: &bs,
			DailyBreakTime: 600,
		},
	}}
	r := newActionRouter(t, gw)
	cookies := login(t, r, 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		TotalBreakTime int64 `json:"total_break_time"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// 600 accumulated + ~600 in progress.
	assert.GreaterOrEqual(t, resp.TotalBreakTime, int64(1190))
	assert.LessOrEqual(t, resp.TotalBreakTime, int64(1210))
}
