package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmodirect/rntbd/rntbderr"
)

func testRecord() *Record {
	args := Args{ReplicaPath: "/db/col", PhysicalAddress: "rntbd://10.0.0.1:14331"}
	return newRecord(args, 1, time.Now().Add(time.Minute), time.Minute)
}

func TestRecordCompleteWinsOnce(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	rec := testRecord()
	resp := &StoreResponse{Status: 200}

	a.True(rec.Complete(resp))
	a.False(rec.Complete(resp), "second transition is a no-op")
	a.False(rec.Fail(errors.New("late")))
	a.False(rec.Expire())
	a.False(rec.Cancel())

	got, err := rec.Result()
	require.NoError(t, err)
	a.Same(resp, got)

	select {
	case <-rec.Done():
	default:
		t.Fatal("done must be closed after completion")
	}
}

func TestRecordExpire(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	rec := testRecord()
	a.True(rec.Expire())
	a.False(rec.Complete(&StoreResponse{Status: 200}), "a late response loses the race")

	_, err := rec.Result()
	a.True(rntbderr.IsKind(err, rntbderr.KindRequestTimeout))

	var re *rntbderr.Error
	require.ErrorAs(t, err, &re)
	a.Equal("rntbd://10.0.0.1:14331", re.URI)
}

func TestRecordCancel(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	rec := testRecord()
	a.True(rec.Cancel())

	_, err := rec.Result()
	a.ErrorIs(err, ErrRequestCancelled)
}

func TestRecordHooksRunOncePerTransition(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	rec := testRecord()
	calls := 0
	rec.onComplete(func() { calls++ })

	rec.Fail(errors.New("boom"))
	rec.Fail(errors.New("again"))
	a.Equal(1, calls)

	// registering after the terminal transition fires immediately
	rec.onComplete(func() { calls++ })
	a.Equal(2, calls)
}

func TestRecordWaitHonorsContext(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	rec := testRecord()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rec.Wait(ctx)
	a.ErrorIs(err, context.Canceled)

	// dropping interest cancelled the record
	_, err = rec.Result()
	a.ErrorIs(err, ErrRequestCancelled)
}
