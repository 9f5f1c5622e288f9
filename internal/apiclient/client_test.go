package apiclient

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Options{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return client
}

func TestLoginDecodesTokenAndNormalizesUser(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-1","user":{"id":4,"name":"Ana","permissions":{"a":"view_news"}}}`))
	}))

	sess, err := client.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", sess.Token)
	assert.Equal(t, int64(4), sess.User.ID)
	require.Len(t, sess.User.Permissions, 1)
	assert.Equal(t, "view_news", sess.User.Permissions[0].Name)
}

func TestLoginAcceptsDataEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"token":"tok-2","user":{"id":5}}}`))
	}))

	sess, err := client.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", sess.Token)
	assert.Equal(t, int64(5), sess.User.ID)
}

func TestLoginValidationErrorCarriesFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"The given data was invalid.","errors":{"email":["The email must be a valid email address."],"password":"Too short"}}`))
	}))

	_, err := client.Login(context.Background(), "bad", "pw")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "The email must be a valid email address.", apiErr.FieldMessage("email"))
	assert.Equal(t, "Too short", apiErr.FieldMessage("password"))
	assert.Equal(t, "The given data was invalid.", apiErr.Message)
}

func TestBearerTokenInjected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-9", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":3,"name":"Bo"}}`))
	}))

	user, err := client.CurrentUser(WithToken(context.Background(), "tok-9"))
	require.NoError(t, err)
	assert.Equal(t, "Bo", user.Name)
}

func TestUnauthorizedHandlerOnlyForNonPublicPaths(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))

	var calls atomic.Int32
	ctx := WithUnauthorizedHandler(WithToken(context.Background(), "tok"), func(context.Context) {
		calls.Add(1)
	})

	_, err := client.CurrentUser(ctx)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.MenuStructure(ctx)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(1), calls.Load(), "public endpoint must not clear the session")

	_, err = client.Login(ctx, "a@b.c", "pw")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMultipartKeepsBoundary(t *testing.T) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("title", "Poster"))
	require.NoError(t, writer.Close())

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, writer.FormDataContentType(), r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Poster", r.FormValue("title"))
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := client.Do(WithToken(context.Background(), "tok"), Request{
		Method:      http.MethodPost,
		Path:        "/sliders",
		Body:        &body,
		ContentType: writer.FormDataContentType(),
	})
	require.NoError(t, err)
}

func TestMenuStructureSingleRequestOnFailure(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.MenuStructure(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

// newDroppingClient points a client with retries enabled at a listener that
// closes every connection before answering.
func newDroppingClient(t *testing.T) (*Client, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			_ = conn.Close()
		}
	}()

	client, err := New(Options{BaseURL: "http://" + ln.Addr().String(), RetryMax: 2})
	require.NoError(t, err)
	return client, &accepted
}

func TestTransportFailuresOnlyRetryReads(t *testing.T) {
	ctx := context.Background()

	client, accepted := newDroppingClient(t)
	_, err := client.MenuStructure(ctx)
	require.Error(t, err)
	assert.Equal(t, int32(1), accepted.Load(), "menu fetch falls back without retrying")

	client, accepted = newDroppingClient(t)
	_, err = client.Login(ctx, "ana@example.com", "secret")
	require.Error(t, err)
	assert.Equal(t, int32(1), accepted.Load(), "login is never replayed")

	client, accepted = newDroppingClient(t)
	_, err = client.Do(WithToken(ctx, "tok"), Request{Method: http.MethodPost, Path: "/news", Body: bytes.NewReader([]byte(`{}`))})
	require.Error(t, err)
	assert.Equal(t, int32(1), accepted.Load())

	client, accepted = newDroppingClient(t)
	_, err = client.CurrentUser(WithToken(ctx, "tok"))
	require.Error(t, err)
	assert.Equal(t, int32(3), accepted.Load())
}

func TestErrorKeepsRawBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"No news item 9"}`))
	}))

	_, err := client.Do(WithToken(context.Background(), "tok"), Request{Path: "/news/9"})
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.JSONEq(t, `{"message":"No news item 9"}`, string(apiErr.Body))
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "/api"})
	assert.Error(t, err)
}
