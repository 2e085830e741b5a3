package streaming

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/plangenie/internal/app/models"
)

func TestManagerCreateAndGet(t *testing.T) {
	m := NewManager(zap.NewNop())

	session := m.Create("thread-1")
	require.NotEmpty(t, session.ID)
	assert.Equal(t, "thread-1", session.ThreadID)

	got, ok := m.Get(session.ID)
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestSessionPushAndDrain(t *testing.T) {
	m := NewManager(zap.NewNop())
	session := m.Create("thread-1")

	session.Push(models.Segment{Type: models.SegmentText, Data: "hello", Seq: 1})
	session.Push(models.Segment{Type: models.SegmentDone, Seq: 2, Final: true})
	m.Close(session.ID)

	var drained []models.Segment
	for seg := range session.Segments {
		drained = append(drained, seg)
	}
	require.Len(t, drained, 2)
	assert.Equal(t, models.SegmentText, drained[0].Type)
	assert.True(t, drained[1].Final)

	_, ok := m.Get(session.ID)
	assert.False(t, ok)
}

func TestClosedSessionSwallowsLatePushes(t *testing.T) {
	m := NewManager(zap.NewNop())
	session := m.Create("thread-1")
	m.Close(session.ID)

	assert.NotPanics(t, func() {
		session.Push(models.Segment{Type: models.SegmentText, Data: "late"})
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewManager(zap.NewNop())
	session := m.Create("thread-1")

	m.Close(session.ID)
	assert.NotPanics(t, func() { m.Close(session.ID) })
}

func TestCleanupExpiredRemovesOnlyStaleSessions(t *testing.T) {
	m := NewManager(zap.NewNop())
	stale := m.Create("old")
	stale.CreatedAt = time.Now().Add(-time.Hour)
	fresh := m.Create("new")

	removed := m.CleanupExpired(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := m.Get(stale.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
}
