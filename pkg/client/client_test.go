package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/client"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-prooflist-go/pkg/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fastRetry = client.RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  time.Millisecond,
	MaxBackoff:      5 * time.Millisecond,
	BackoffMultiple: 2.0,
}

func newClient(t *testing.T, url string) *client.Client {
	return client.NewClient(url, merkle.NewSHA256Hasher(), zaptest.NewLogger(t), client.WithRetryConfig(fastRetry))
}

func TestClientEndToEnd(t *testing.T) {
	ts := testutil.NewTestServer(t)
	c := newClient(t, ts.URL+"/")
	ctx := context.Background()
	values := testutil.CreateTestValues(7)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	appended, err := c.Append(ctx, "wallet", values)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), appended.FirstIndex)
	assert.Equal(t, uint64(7), appended.Length)

	info, err := c.Info(ctx, "wallet")
	require.NoError(t, err)
	assert.Equal(t, appended.ListHash, info.ListHash)
	assert.Equal(t, merkle.NewTree(merkle.NewSHA256Hasher(), values).ListHash(), info.ListHash)

	names, err := c.ListNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wallet"}, names)

	entry, err := c.GetEntry(ctx, "wallet", 3)
	require.NoError(t, err)
	assert.Equal(t, values[3], entry)

	verified, err := c.FetchVerified(ctx, "wallet", info.ListHash, 0, 6, 3)
	require.NoError(t, err)
	assert.Equal(t, map[uint64][]byte{0: values[0], 3: values[3], 6: values[6]}, verified)

	rangeProof, err := c.GetRangeProof(ctx, "wallet", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 4}, rangeProof.Indices())

	remote, err := c.VerifyRemote(ctx, rangeProof, info.ListHash)
	require.NoError(t, err)
	assert.True(t, remote.Valid)
	assert.Len(t, remote.Entries, 3)

	require.NoError(t, c.Delete(ctx, "wallet"))
	_, err = c.Info(ctx, "wallet")
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "not_found", apiErr.Kind)
}

func TestFetchVerifiedRejectsStaleHash(t *testing.T) {
	ts := testutil.NewTestServer(t)
	c := newClient(t, ts.URL)
	ctx := context.Background()

	l := testutil.SeedList(t, ts.Group, "acct", testutil.CreateTestValues(4))
	trusted, err := l.ListHash()
	require.NoError(t, err)

	_, err = l.Push([]byte("later"))
	require.NoError(t, err)

	_, err = c.FetchVerified(ctx, "acct", trusted, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, merkle.ErrRootMismatch))
}

func TestFetchVerifiedRejectsForgedProof(t *testing.T) {
	h := merkle.NewSHA256Hasher()
	honest := merkle.NewTree(h, testutil.CreateTestValues(5))
	forgedValues := testutil.CreateTestValues(5)
	forgedValues[2] = []byte("forged")
	forged := merkle.NewTree(h, forgedValues)

	proof, err := forged.GenerateProof(2)
	require.NoError(t, err)
	data, err := proof.MarshalBinary()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", merkle.ContentTypeProtobuf)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	entries, err := c.FetchVerified(context.Background(), "acct", honest.ListHash(), 2)
	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Equal(t, "root_mismatch", merkle.ErrorKind(errors.Cause(err)))
}

func TestFetchVerifiedRejectsProofOfOtherIndices(t *testing.T) {
	h := merkle.NewSHA256Hasher()
	honest := merkle.NewTree(h, testutil.CreateTestValues(5))

	tests := []struct {
		name    string
		served  []uint64
		request []uint64
		wantErr error
	}{
		{name: "Different index", served: []uint64{1}, request: []uint64{2}, wantErr: merkle.ErrMissingNode},
		{name: "Root only", served: nil, request: []uint64{2}, wantErr: merkle.ErrMissingNode},
		{name: "Partial cover", served: []uint64{0}, request: []uint64{0, 3}, wantErr: merkle.ErrMissingNode},
		{name: "Extra entry", served: []uint64{1, 2}, request: []uint64{2}, wantErr: merkle.ErrUnexpectedNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof, err := honest.GenerateProof(tt.served...)
			require.NoError(t, err)
			data, err := proof.MarshalBinary()
			require.NoError(t, err)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", merkle.ContentTypeProtobuf)
				_, _ = w.Write(data)
			}))
			defer srv.Close()

			c := newClient(t, srv.URL)
			entries, err := c.FetchVerified(context.Background(), "acct", honest.ListHash(), tt.request...)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, entries)
		})
	}
}

func TestFetchVerifiedAcceptsDuplicateIndices(t *testing.T) {
	ts := testutil.NewTestServer(t)
	values := testutil.CreateTestValues(4)
	list := testutil.SeedList(t, ts.Group, "acct", values)
	listHash, err := list.ListHash()
	require.NoError(t, err)

	c := newClient(t, ts.URL)
	entries, err := c.FetchVerified(context.Background(), "acct", listHash, 3, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, map[uint64][]byte{1: values[1], 3: values[3]}, entries)
}

func TestClientRetriesUnavailableServer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","hasher":"sha256"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.ListNames(context.Background())
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "down", apiErr.Message)
	assert.Equal(t, int32(fastRetry.MaxAttempts), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"index out of range","kind":"index_out_of_range"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.GetProof(context.Background(), "acct", 99)
	require.Error(t, err)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "index_out_of_range", apiErr.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAppendIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL)
	_, err := c.Append(context.Background(), "acct", [][]byte{{1}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := client.NewClient(srv.URL, merkle.NewSHA256Hasher(), zaptest.NewLogger(t), client.WithRetryConfig(client.RetryConfig{
		MaxAttempts:     10,
		InitialBackoff:  time.Hour,
		MaxBackoff:      time.Hour,
		BackoffMultiple: 1,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Health(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
