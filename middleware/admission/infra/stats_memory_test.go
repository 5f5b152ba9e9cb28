package infra

import (
	"context"
	"testing"

	"image-quality-api/middleware/admission/domain"

	"github.com/stretchr/testify/require"
)

func TestMemoryStatsStore_CountsByReason(t *testing.T) {
	s := NewMemoryStatsStore()

	require.NoError(t, s.Record(context.Background(), domain.Event{Reason: domain.ReasonCompleted}))
	require.NoError(t, s.Record(context.Background(), domain.Event{Reason: domain.ReasonCompleted}))
	require.NoError(t, s.Record(context.Background(), domain.Event{Reason: domain.ReasonCapacityExceeded}))

	total := s.Total()
	require.Equal(t, int64(2), total[domain.ReasonCompleted])
	require.Equal(t, int64(1), total[domain.ReasonCapacityExceeded])
	require.Equal(t, int64(0), total[domain.ReasonShuttingDown])
}

func TestMemoryStatsStore_TracksRoutesWhenEnabled(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackRoutes(true))

	ev := domain.Event{Reason: domain.ReasonCompleted, Method: "POST", Path: "/score-from-path"}
	require.NoError(t, s.Record(context.Background(), ev))

	byRoute := s.ByRoute()
	require.Equal(t, int64(1), byRoute["POST /score-from-path"][domain.ReasonCompleted])
}

func TestMemoryStatsStore_IgnoresRoutesByDefault(t *testing.T) {
	s := NewMemoryStatsStore()

	ev := domain.Event{Reason: domain.ReasonCompleted, Method: "POST", Path: "/score-from-path"}
	require.NoError(t, s.Record(context.Background(), ev))
	require.Empty(t, s.ByRoute())
}

func TestMultiStats_RecordsInAll(t *testing.T) {
	a := NewMemoryStatsStore()
	b := NewMemoryStatsStore()

	m := MultiStats(a, nil, b)
	require.NoError(t, m.Record(context.Background(), domain.Event{Reason: domain.ReasonQueueTimeout}))

	require.Equal(t, int64(1), a.Total()[domain.ReasonQueueTimeout])
	require.Equal(t, int64(1), b.Total()[domain.ReasonQueueTimeout])
}
