package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusClientFor(t *testing.T, handler http.HandlerFunc) *StatusClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.StatusURL = server.URL
	client := NewStatusClient(cfg)
	client.backoff = time.Millisecond
	return client
}

func TestStatusCheckSuccess(t *testing.T) {
	var gotBody map[string]string
	client := statusClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(StatusResult{Status: StatusSuccess, ResponseCode: "01"})
	})

	result, err := client.Check(context.Background(), "ord-42")
	require.NoError(t, err)
	assert.True(t, result.Success())

	// The outbound query itself is signed.
	checksum := gotBody[ChecksumField]
	require.NotEmpty(t, checksum)
	assert.True(t, Verify(map[string]string{
		"MID":     "NCAfMA53556886213203",
		"ORDERID": "ord-42",
	}, testKey, checksum))
}

func TestStatusCheckRetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := statusClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(StatusResult{Status: StatusFailure})
	})

	result, err := client.Check(context.Background(), "ord-42")
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, int32(2), calls.Load())
}

func TestStatusCheckUnreachableAfterRetry(t *testing.T) {
	var calls atomic.Int32
	client := statusClientFor(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Check(context.Background(), "ord-42")
	assert.ErrorIs(t, err, ErrGatewayUnreachable)
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
}

func TestStatusCheckFailsWithoutKey(t *testing.T) {
	cfg := testConfig()
	cfg.MerchantKey = ""
	client := NewStatusClient(cfg)

	_, err := client.Check(context.Background(), "ord-42")
	assert.ErrorIs(t, err, ErrBadSignInput)
}
