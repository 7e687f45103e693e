package rntbderr

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	cases := []struct {
		status    uint32
		subStatus uint32
		want      Kind
	}{
		{400, 0, KindBadRequest},
		{401, 0, KindUnauthorized},
		{403, 0, KindForbidden},
		{404, 0, KindNotFound},
		{405, 0, KindMethodNotAllowed},
		{408, 0, KindRequestTimeout},
		{409, 0, KindConflict},
		{410, SubStatusCompletingSplit, KindPartitionKeyRangeIsSplitting},
		{410, SubStatusCompletingPartitionMigration, KindPartitionIsMigrating},
		{410, SubStatusNameCacheIsStale, KindInvalidPartition},
		{410, SubStatusPartitionKeyRangeGone, KindPartitionKeyRangeGone},
		{410, 0, KindGone},
		{410, 9999, KindGone},
		{412, 0, KindPreconditionFailed},
		{413, 0, KindRequestEntityTooLarge},
		{423, 0, KindLocked},
		{429, 0, KindRequestRateTooLarge},
		{449, 0, KindRetryWith},
		{500, 0, KindInternalServerError},
		{503, 0, KindServiceUnavailable},
		{418, 0, KindGeneric},
	}
	for _, tc := range cases {
		a.Equal(tc.want, kindOf(tc.status, tc.subStatus), "status=%d sub=%d", tc.status, tc.subStatus)
	}
}

func TestFromResponseWithBody(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	payload := []byte(`{"code":"Gone","message":"partition moved","extra":{"nested":true}}`)
	headers := map[string]string{"LSN": "42", "PartitionKeyRangeId": "pkr-7"}

	err := FromResponse(410, SubStatusCompletingSplit, 42, "pkr-7", headers, payload)
	a.Equal(KindPartitionKeyRangeIsSplitting, err.Kind)
	a.Equal(uint32(410), err.Status)
	a.Equal(uint32(1007), err.SubStatus)
	a.Equal(int64(42), err.LSN)
	a.Equal("pkr-7", err.PartitionKeyRangeID)
	a.Equal("Gone", err.Body.Code)
	a.Equal("partition moved", err.Body.Message)
	a.Equal(headers, err.Headers)
	a.Contains(err.Error(), "PartitionKeyRangeIsSplitting")
}

func TestFromResponseSynthesizesBody(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	err := FromResponse(429, 0, 0, "", nil, nil)
	a.Equal(KindRequestRateTooLarge, err.Kind)
	a.Equal("429", err.Body.Code)
	a.Equal("Too Many Requests", err.Body.Message)

	// a garbled payload falls back to the status line too
	err = FromResponse(503, 0, 0, "", nil, []byte("not json"))
	a.Equal("503", err.Body.Code)
	a.Equal("Service Unavailable", err.Body.Message)
}

func TestParseBody(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	body, err := ParseBody([]byte(`{"Code":"NotFound","Message":"no such document","ignored":[1,2,3]}`))
	require.NoError(t, err)
	a.Equal("NotFound", body.Code)
	a.Equal("no such document", body.Message)

	body, err = ParseBody(nil)
	require.NoError(t, err)
	a.Zero(body)
}

func TestIsKind(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	err := FromResponse(404, 0, 0, "", nil, nil)
	wrapped := errors.Join(errors.New("outer"), err)
	a.True(IsKind(wrapped, KindNotFound))
	a.False(IsKind(wrapped, KindGone))
	a.False(IsKind(errors.New("plain"), KindNotFound))
}

func TestCloseSentinelsAreDistinct(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	sentinels := []error{ErrOnClose, ErrOnUnregister, ErrOnDeregister, ErrUnhealthyChannel}
	for i, s := range sentinels {
		for j, other := range sentinels {
			if i == j {
				continue
			}
			a.False(errors.Is(s, other))
		}
	}
}

func TestGoneCarriesCause(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	headers := map[string]string{"ReplicaPath": "/db/col"}
	err := NewGone("10.0.0.1:14331 closed exceptionally with 5 pending requests",
		ErrOnClose, "rntbd://10.0.0.1:14331", headers)

	a.Equal(KindGone, err.Kind)
	a.True(errors.Is(err, ErrOnClose))
	a.Contains(err.Error(), "closed exceptionally")
	a.Equal("rntbd://10.0.0.1:14331", err.URI)
	a.Equal(headers, err.Headers)
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()
	a := assert.New(t)

	err := NewRequestTimeout("rntbd://10.0.0.1:14331", 10*time.Millisecond)
	a.Equal(KindRequestTimeout, err.Kind)
	a.Equal(uint32(408), err.Status)
	a.Contains(err.Error(), "timed out")
}
