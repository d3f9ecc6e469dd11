package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSender(baseURL string) *Sender {
	return New(Config{
		BaseURL:      baseURL,
		Token:        "test-token",
		ChatID:       "-100123",
		ThreadID:     32,
		Timeout:      2 * time.Second,
		SendInterval: time.Millisecond,
		Retries:      2,
		RetryDelay:   time.Millisecond,
	})
}

func TestSend_PostsExpectedForm(t *testing.T) {
	var gotPath string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"chat_id":           r.PostForm.Get("chat_id"),
			"message_thread_id": r.PostForm.Get("message_thread_id"),
			"text":              r.PostForm.Get("text"),
			"parse_mode":        r.PostForm.Get("parse_mode"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testSender(srv.URL).Send(context.Background(), "hello \\- world")
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/sendMessage", gotPath)
	assert.Equal(t, "-100123", gotForm["chat_id"])
	assert.Equal(t, "32", gotForm["message_thread_id"])
	assert.Equal(t, "hello \\- world", gotForm["text"])
	assert.Equal(t, "MarkdownV2", gotForm["parse_mode"])
}

func TestSend_ThreadOmittedWhenUnset(t *testing.T) {
	var hadThread bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		hadThread = r.PostForm.Has("message_thread_id")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(Config{BaseURL: srv.URL, Token: "t", ChatID: "1", Timeout: time.Second, SendInterval: time.Millisecond})
	require.NoError(t, s.Send(context.Background(), "hi"))

	assert.False(t, hadThread)
}

func TestSend_RetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := testSender(srv.URL).Send(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, 2, calls, "one retry after the transient failure")
}

func TestSend_BadRequestNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testSender(srv.URL).Send(context.Background(), "hi")

	require.Error(t, err)
	assert.Equal(t, 1, calls, "a rejected request is final")
}

func TestSend_NonOKIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"ok":false,"description":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := testSender(srv.URL).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}
