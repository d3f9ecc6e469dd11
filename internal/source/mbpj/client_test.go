package mbpj

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/courtwatch/courtwatch/internal/domain/slot"
)

var testDay = time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

func testClient(url string, retries int) *Client {
	return New(Config{
		URL:        url,
		ActivityID: 4,
		Timeout:    2 * time.Second,
		Retries:    retries,
		RetryDelay: time.Millisecond,
	}, map[int]Facility{9: {SiteID: 24, TypeID: 33}}, zap.NewNop())
}

func TestFetch_BuildsLabelsFromUnbookedSlots(t *testing.T) {
	var gotQuery map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotQuery))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"NAME": "Court 1", "STARTTIME": "19:00", "ENDTIME": "20:00", "ISBOOKED": 0},
			{"NAME": "Court 2", "STARTTIME": "19:00", "ENDTIME": "20:00", "ISBOOKED": 1},
			{"NAME": "Court 3", "STARTTIME": "08:30", "ENDTIME": "09:30", "ISBOOKED": 0},
		})
	}))
	defer srv.Close()

	labels, err := testClient(srv.URL, 0).Fetch(context.Background(), 9, testDay)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Court 1 7:00 PM - 8:00 PM",
		"Court 3 8:30 AM - 9:30 AM",
	}, labels)

	assert.Equal(t, float64(24), gotQuery["FSITEID"])
	assert.Equal(t, float64(33), gotQuery["FTYPEID"])
	assert.Equal(t, "2025-01-03", gotQuery["CKIDATE"])
	assert.Equal(t, "ONLINE", gotQuery["SEARCHMODE"])
}

func TestFetch_EmptyResponseIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	labels, err := testClient(srv.URL, 0).Fetch(context.Background(), 9, testDay)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestFetch_RetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"NAME":"Court 1","STARTTIME":"19:00","ENDTIME":"20:00","ISBOOKED":0}]`))
	}))
	defer srv.Close()

	labels, err := testClient(srv.URL, 2).Fetch(context.Background(), 9, testDay)
	require.NoError(t, err)
	assert.Len(t, labels, 1)
	assert.Equal(t, 2, calls)
}

func TestFetch_SessionRejectionIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).Fetch(context.Background(), 9, testDay)

	assert.ErrorIs(t, err, slot.ErrSession)
	assert.Equal(t, 1, calls)
}

func TestFetch_UnknownLocation(t *testing.T) {
	_, err := testClient("http://unused.test", 0).Fetch(context.Background(), 42, testDay)
	assert.Error(t, err)
}
