package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/identity-platform/internal/config"
	"github.com/identity-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClientFor(t *testing.T, userURL string, retries int) *Client {
	t.Helper()
	return NewClient(config.ProfileServices{
		UserBaseURL:    userURL,
		PartnerBaseURL: userURL,
		Timeout:        2 * time.Second,
		MaxRetries:     retries,
	})
}

func TestCreate_Success(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/profiles", r.URL.Path)
		var req CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "01HXYZ", req.SubjectID)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newClientFor(t, srv.URL, 2)
	err := c.Create(context.Background(), domain.RoleUser, &CreateRequest{
		SubjectID:     "01HXYZ",
		Email:         "alice@x.com",
		ProfileFields: json.RawMessage(`{"first_name":"Alice"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreate_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := newClientFor(t, srv.URL, 3)
	err := c.Create(context.Background(), domain.RoleUser, &CreateRequest{SubjectID: "x"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCreate_ExhaustsRetriesOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newClientFor(t, srv.URL, 2)
	err := c.Create(context.Background(), domain.RolePartner, &CreateRequest{SubjectID: "x"})
	require.Error(t, err)
	var perm *PermanentError
	assert.NotErrorAs(t, err, &perm)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls)) // initial + 2 retries
}

func TestCreate_NoRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newClientFor(t, srv.URL, 3)
	err := c.Create(context.Background(), domain.RoleUser, &CreateRequest{SubjectID: "x"})
	require.Error(t, err)
	var perm *PermanentError
	require.ErrorAs(t, err, &perm)
	assert.Equal(t, http.StatusUnprocessableEntity, perm.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCreate_UnknownRole(t *testing.T) {
	c := newClientFor(t, "http://localhost:0", 0)
	err := c.Create(context.Background(), "ghost", &CreateRequest{SubjectID: "x"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_ConnectionErrorIsTransient(t *testing.T) {
	// Server closed before the call: every attempt fails with a connection error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newClientFor(t, url, 1)
	err := c.Create(context.Background(), domain.RoleUser, &CreateRequest{SubjectID: "x"})
	require.Error(t, err)
	var perm *PermanentError
	assert.NotErrorAs(t, err, &perm)
}
