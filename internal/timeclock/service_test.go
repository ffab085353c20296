package timeclock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/odilbek/timeclock/internal/models"
)

type fakeGateway struct {
	users    map[uint]models.User
	logs     []models.TimeLog
	saves    int
	failSave error
	failList error
}

func newFakeGateway(users ...models.User) *fakeGateway {
	g := &fakeGateway{users: make(map[uint]models.User)}
	for _, u := range users {
		g.users[u.ID] = u
	}
	return g
}

func (g *fakeGateway) GetUser(_ context.Context, id uint) (models.User, error) {
	u, ok := g.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, ErrMissingRecord)
	}
	return u, nil
}

func (g *fakeGateway) ListUsers(_ context.Context, status models.Status) ([]models.User, error) {
	if g.failList != nil {
		return nil, g.failList
	}
	var out []models.User
	for _, u := range g.users {
		if status == "" || u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (g *fakeGateway) SaveUser(_ context.Context, u models.User) (models.User, error) {
	if g.failSave != nil {
		return models.User{}, g.failSave
	}
	g.saves++
	g.users[u.ID] = u
	return u, nil
}

func (g *fakeGateway) AppendLog(_ context.Context, entry models.TimeLog) error {
	g.logs = append(g.logs, entry)
	return nil
}

type recorderDispatcher struct {
	sent []Notification
	fail map[uint]error // per-user dispatch failure
}

func (d *recorderDispatcher) Dispatch(n Notification) error {
	d.sent = append(d.sent, n)
	if err := d.fail[n.UserID]; err != nil {
		return err
	}
	return nil
}

func newTestService(t *testing.T, gw *fakeGateway, d *recorderDispatcher) *Service {
	t.Helper()
	return NewService(newTestEngine(t), gw, d, slog.Default())
}

func TestApplyActionPersistsAndLogs(t *testing.T) {
	loc := tashkent(t)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)

	u := models.User{
		Model:  gorm.Model{ID: 1, UpdatedAt: now.Add(-time.Hour)},
		Name:   "Vladimir H",
		Status: models.StatusOffline,
	}
	gw := newFakeGateway(u)
	d := &recorderDispatcher{}
	svc := newTestService(t, gw, d)

	updated, err := svc.ApplyAction(context.Background(), 1, models.ActionStartWork, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWorking, updated.Status)

	stored := gw.users[1]
	assert.Equal(t, models.StatusWorking, stored.Status)
	require.Len(t, gw.logs, 1)
	assert.Equal(t, models.ActionStartWork, gw.logs[0].Action)
	assert.Equal(t, uint(1), gw.logs[0].UserID)
	assert.Equal(t, now, gw.logs[0].Timestamp)
	assert.Empty(t, d.sent, "08:00 start is not late")
}

func TestApplyActionInvalidTransitionNoWrites(t *testing.T) {
	loc := tashkent(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)

	u := models.User{Model: gorm.Model{ID: 1, UpdatedAt: now.Add(-time.Hour)}, Status: models.StatusOffline}
	gw := newFakeGateway(u)
	svc := newTestService(t, gw, &recorderDispatcher{})

	_, err := svc.ApplyAction(context.Background(), 1, models.ActionEndBreak, now)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, gw.saves, "no state written")
	assert.Empty(t, gw.logs, "no log appended")
}

func TestApplyActionMissingRecord(t *testing.T) {
	gw := newFakeGateway()
	svc := newTestService(t, gw, &recorderDispatcher{})

	_, err := svc.ApplyAction(context.Background(), 42, models.ActionStartWork, time.Now())
	require.ErrorIs(t, err, ErrMissingRecord)
}

func TestApplyActionIdempotentSkipsPersistence(t *testing.T) {
	loc := tashkent(t)
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)

	u := models.User{Model: gorm.Model{ID: 1, UpdatedAt: now.Add(-time.Hour)}, Status: models.StatusWorking}
	gw := newFakeGateway(u)
	svc := newTestService(t, gw, &recorderDispatcher{})

	got, err := svc.ApplyAction(context.Background(), 1, models.ActionStartWork, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWorking, got.Status)
	assert.Zero(t, gw.saves)
	assert.Empty(t, gw.logs)
}

func TestApplyActionSaveFailureSurfaces(t *testing.T) {
	loc := tashkent(t)
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, loc)

	u := models.User{Model: gorm.Model{ID: 1, UpdatedAt: now.Add(-time.Hour)}, Status: models.StatusOffline}
	gw := newFakeGateway(u)
	gw.failSave = errors.New("connection refused")
	svc := newTestService(t, gw, &recorderDispatcher{})

	_, err := svc.ApplyAction(context.Background(), 1, models.ActionStartWork, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestApplyActionDispatchFailureSwallowed(t *testing.T) {
	loc := tashkent(t)
	// 10:00 start is late, so a lateness notification is produced.
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)

	u := models.User{
		Model:  gorm.Model{ID: 1, UpdatedAt: now.Add(-time.Hour)},
		Name:   "Vladimir H",
		Status: models.StatusOffline,
	}
	gw := newFakeGateway(u)
	d := &recorderDispatcher{fail: map[uint]error{1: errors.New("queue down")}}
	svc := newTestService(t, gw, d)

	updated, err := svc.ApplyAction(context.Background(), 1, models.ActionStartWork, now)
	require.NoError(t, err, "dispatch failure must not fail the transition")
	assert.Equal(t, models.StatusWorking, updated.Status)
	require.Len(t, d.sent, 1)
	assert.Equal(t, KindLateness, d.sent[0].Kind)
}

func TestSweepBreaksNotifiesOnce(t *testing.T) {
	loc := tashkent(t)
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)

	over := models.User{Model: gorm.Model{ID: 1, UpdatedAt: start}, Name: "Over", Status: models.StatusOnBreak}
	over.BreakStartTime = &start
	over.DailyBreakTime = 3500

	under := models.User{Model: gorm.Model{ID: 2, UpdatedAt: start}, Name: "Under", Status: models.StatusOnBreak}
	under.BreakStartTime = &start

	gw := newFakeGateway(over, under)
	d := &recorderDispatcher{}
	svc := newTestService(t, gw, d)

	now := start.Add(200 * time.Second) // user 1 at 3700s, user 2 at 200s
	require.NoError(t, svc.SweepBreaks(context.Background(), now))
	require.Len(t, d.sent, 1)
	assert.Equal(t, uint(1), d.sent[0].UserID)
	assert.Equal(t, KindBreakExceeded, d.sent[0].Kind)

	// A later sweep the same day stays quiet.
	require.NoError(t, svc.SweepBreaks(context.Background(), now.Add(time.Minute)))
	assert.Len(t, d.sent, 1)
}

func TestSweepBreaksIsolatesDispatchFailures(t *testing.T) {
	loc := tashkent(t)
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)

	mk := func(id uint, name string) models.User {
		u := models.User{Model: gorm.Model{ID: id, UpdatedAt: start}, Name: name, Status: models.StatusOnBreak}
		u.BreakStartTime = &start
		u.DailyBreakTime = 3500
		return u
	}

	gw := newFakeGateway(mk(1, "A"), mk(2, "B"))
	d := &recorderDispatcher{fail: map[uint]error{1: errors.New("queue down")}}
	svc := newTestService(t, gw, d)

	now := start.Add(200 * time.Second)
	require.NoError(t, svc.SweepBreaks(context.Background(), now), "one failure must not abort the sweep")
	assert.Len(t, d.sent, 2, "both users were attempted")
}

func TestSweepBreaksListFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.failList = errors.New("connection refused")
	svc := newTestService(t, gw, &recorderDispatcher{})

	err := svc.SweepBreaks(context.Background(), time.Now())
	require.Error(t, err)
}
