package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/ourabridge/internal/adapters/repository"
	"github.com/okian/ourabridge/internal/domain/model"
)

func sampleSnapshot(cycle string, withHeartRate bool) model.Snapshot {
	summary := "normal"
	records := map[model.Kind]model.Record{
		model.KindDailyReadiness: model.DailyReadiness{ID: "r1", Day: "2024-11-12", Score: 82, Timestamp: "t"},
		model.KindDailyStress:    model.DailyStress{ID: "s1", StressHigh: 5400, RecoveryHigh: 2700, Day: "2024-11-12", DaySummary: &summary},
	}
	if withHeartRate {
		records[model.KindHeartRate] = model.HeartRate{BPM: 61, Source: "awake", Timestamp: "t"}
	}
	outcomes := map[model.Kind]model.Outcome{
		model.KindDailySleep: {Status: model.OutcomeEmpty},
	}
	return model.NewSnapshot(cycle, time.Date(2024, 11, 12, 8, 0, 0, 0, time.UTC), records, outcomes)
}

func TestMemoryStore(t *testing.T) {
	convey.Convey("Given an empty memory store", t, func() {
		store := repository.NewMemoryStore()
		ctx := context.Background()

		_, err := store.Latest(ctx)
		convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)

		convey.Convey("When two snapshots are saved", func() {
			convey.So(store.Save(ctx, sampleSnapshot("c-1", true)), convey.ShouldBeNil)
			convey.So(store.Save(ctx, sampleSnapshot("c-2", false)), convey.ShouldBeNil)

			convey.Convey("Then the second fully replaces the first", func() {
				snap, err := store.Latest(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.CycleID, convey.ShouldEqual, "c-2")
				convey.So(snap.Has(model.KindHeartRate), convey.ShouldBeFalse)
			})
		})
	})
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *repository.RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, repository.NewRedisStore(client, repository.WithKeyPrefix("test"), repository.WithTTL(time.Hour))
}

func TestRedisStore_SaveAndLatest(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("c-1", true)))

	snap, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c-1", snap.CycleID)
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, model.OutcomeEmpty, snap.Outcomes[model.KindDailySleep].Status)

	stress, ok := snap.Get(model.KindDailyStress)
	require.True(t, ok)
	require.NotNil(t, stress.(model.DailyStress).DaySummary)
	assert.Equal(t, "normal", *stress.(model.DailyStress).DaySummary)

	assert.True(t, mr.Exists("test:record:heartrate"))
	assert.Equal(t, time.Hour, mr.TTL("test:snapshot"))

	raw, err := store.Record(ctx, model.KindHeartRate)
	require.NoError(t, err)
	var hr map[string]any
	require.NoError(t, json.Unmarshal(raw, &hr))
	assert.EqualValues(t, 61, hr["bpm"])
}

func TestRedisStore_ReplacesAbsentRecords(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("c-1", true)))
	require.NoError(t, store.Publish(ctx, sampleSnapshot("c-2", false)))

	assert.False(t, mr.Exists("test:record:heartrate"))
	assert.True(t, mr.Exists("test:record:daily_readiness"))

	_, err := store.Record(ctx, model.KindHeartRate)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, "redis", store.Name())
}

func TestRedisStore_Errors(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mr.Set("test:snapshot", `{"records":{"steps":{}}}`))
	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, repository.ErrCorrupt)

	require.NoError(t, mr.Set("test:snapshot", `not json`))
	_, err = store.Latest(ctx)
	assert.ErrorIs(t, err, repository.ErrCorrupt)
}

func readStatus(t *testing.T, mr *miniredis.Miniredis) repository.Status {
	t.Helper()
	raw, err := mr.Get("test:status")
	require.NoError(t, err)
	var st repository.Status
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	return st
}

func TestRedisStore_StaleStatus(t *testing.T) {
	mr, store := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSnapshot("c-1", true)))
	st := readStatus(t, mr)
	assert.False(t, st.Stale)
	assert.Equal(t, "c-1", st.CycleID)
	assert.Equal(t, "test:status", store.StatusKey())

	require.NoError(t, store.MarkStale(ctx, "c-2", errors.New("invalid response")))
	st = readStatus(t, mr)
	assert.True(t, st.Stale)
	assert.Equal(t, "c-2", st.CycleID)
	assert.Equal(t, "invalid response", st.Error)

	snap, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c-1", snap.CycleID)
	assert.True(t, mr.Exists("test:record:heartrate"))

	require.NoError(t, store.Save(ctx, sampleSnapshot("c-3", false)))
	st = readStatus(t, mr)
	assert.False(t, st.Stale)
	assert.Empty(t, st.Error)
	assert.Equal(t, "c-3", st.CycleID)
}

func TestRedisStore_MarkStaleUnavailable(t *testing.T) {
	mr, store := setupRedis(t)
	mr.Close()

	err := store.MarkStale(context.Background(), "c-1", nil)
	assert.Error(t, err)
}
