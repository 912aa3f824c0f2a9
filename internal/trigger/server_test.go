// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/policy-feed/internal/ingest"
)

type fakeRunner struct {
	active atomic.Bool
	err    error
	last   *ingest.IngestionRun
}

func (f *fakeRunner) Start(context.Context) error {
	if f.err != nil {
		return f.err
	}
	if !f.active.CompareAndSwap(false, true) {
		return ingest.ErrRunInProgress
	}
	return nil
}

func (f *fakeRunner) Status() ingest.Status {
	return ingest.Status{Running: f.active.Load(), LastRun: f.last}
}

func newTestServer(t *testing.T, r Runner) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewServer(context.Background(), "", r, nil).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestCollect_AcceptsThenConflicts(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})

	resp, err := http.Post(ts.URL+"/collect", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/collect", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body collectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Accepted)
}

func TestCollect_StartError(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{err: errors.New("boom")})
	resp, err := http.Post(ts.URL+"/collect", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestCollect_GetNotAllowed(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(ts.URL + "/collect")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	finished := time.Date(2026, 10, 15, 6, 0, 0, 0, time.UTC)
	r := &fakeRunner{last: &ingest.IngestionRun{Status: ingest.RunCompleted, FinishedAt: finished}}
	r.active.Store(true)
	ts := newTestServer(t, r)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var st ingest.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.Running)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, ingest.RunCompleted, st.LastRun.Status)
	assert.True(t, finished.Equal(st.LastRun.FinishedAt))
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeRunner{})
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
