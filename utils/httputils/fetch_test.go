// Copyright 2025 The Hotwheels API Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyServer fails the first `failures` requests with status.
func flakyServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= failures {
			w.WriteHeader(status)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func testFetcher(logger logrus.FieldLogger, policy RetryPolicy) *Fetcher {
	if policy.Delay == 0 {
		policy.Delay = time.Millisecond
	}

	return NewFetcher(ClientOptions{Policy: policy, Logger: logger})
}

func TestFetch_SucceedsOnThirdAttempt(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv, hits := flakyServer(t, 2, http.StatusInternalServerError)

	page, err := testFetcher(logger, RetryPolicy{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "ok")
	assert.Contains(t, page.ContentType, "text/html")

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, "Retrying (1/3) after error: status 500", entries[0].Message)
	assert.Equal(t, "Retrying (2/3) after error: status 500", entries[1].Message)
}

func TestFetch_GivesUpWithFinalError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv, hits := flakyServer(t, 100, http.StatusNotFound)

	_, err := testFetcher(logger, RetryPolicy{}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	assert.Equal(t, int32(3), hits.Load())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, srv.URL, fetchErr.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	// two retries, the final failure is left to the caller
	assert.Len(t, hook.AllEntries(), 2)
}

func TestFetch_NonRetryableStatus(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv, hits := flakyServer(t, 100, http.StatusNotFound)

	_, err := testFetcher(logger, RetryPolicy{Retryable: RetryOnStatus(400, 408, 500)}).
		Fetch(context.Background(), srv.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
	assert.Empty(t, hook.AllEntries())
}

// failingTransport fails every round trip with a numbered error.
type failingTransport struct {
	calls atomic.Int32
}

func (f *failingTransport) RoundTrip(_ *http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("boom %d", f.calls.Add(1))
}

func TestFetch_TransportErrorsSurfaceTheLastOne(t *testing.T) {
	logger, hook := test.NewNullLogger()
	transport := &failingTransport{}

	f := NewFetcher(ClientOptions{
		Policy:    RetryPolicy{Delay: time.Millisecond},
		Transport: transport,
		Logger:    logger,
	})

	_, err := f.Fetch(context.Background(), "http://wiki.invalid/wiki/Hot_Wheels")
	require.Error(t, err)

	assert.Equal(t, int32(3), transport.calls.Load())
	assert.ErrorContains(t, err, "boom 3")

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0].Message, "boom 1")
	assert.NotContains(t, entries[0].Message, "wiki.invalid")
}

func TestFetch_FixedDelay(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, _ := flakyServer(t, 2, http.StatusRequestTimeout)

	start := time.Now()
	_, err := testFetcher(logger, RetryPolicy{Delay: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestFetch_CancelledContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	srv, _ := flakyServer(t, 0, http.StatusOK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher(logger, RetryPolicy{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryOnErrorStatus(t *testing.T) {
	for code, want := range map[int]bool{200: false, 204: false, 301: true, 404: true, 500: true} {
		assert.Equal(t, want, RetryOnErrorStatus(code), "status %d", code)
	}
}
