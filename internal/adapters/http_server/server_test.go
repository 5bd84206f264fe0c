package httpserver_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "frontdesk/internal/adapters/http_server"
	"frontdesk/internal/app"
	"frontdesk/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	srv := httpserver.New(0)
	srv.MountHandlers(&httpserver.Handlers{
		Rooms:    app.NewRoomRegistry(store, nil, nil),
		Bookings: app.NewBookingLedger(store, nil, nil, nil),
		History:  app.NewHistoryService(store, nil),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotModified {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func dataField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "body has no data object: %v", body)
	return data[key]
}

func TestRooms_CRUDAndConflict(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, "POST", "/api/rooms", `{"roomNo":101,"type":"double","beds":2,"pricePerNight":100}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	roomID := dataField(t, body, "id").(string)
	assert.Equal(t, true, dataField(t, body, "available"))

	resp, body = do(t, ts, "POST", "/api/rooms", `{"roomNo":102,"type":"penthouse","beds":2,"pricePerNight":100}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "type", body["field"])

	resp, body = do(t, ts, "POST", "/api/bookings", `{"roomId":"`+roomID+`","guestName":"Alice","nights":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bookingID := dataField(t, body, "id").(string)
	assert.Equal(t, 200.0, dataField(t, body, "totalAmount"))

	resp, _ = do(t, ts, "POST", "/api/bookings", `{"roomId":"`+roomID+`","guestName":"Bob","nights":1}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = do(t, ts, "DELETE", "/api/rooms/"+roomID, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, true, dataField(t, body, "requiresAction"))
	assert.Equal(t, bookingID, dataField(t, body, "bookingId"))

	resp, body = do(t, ts, "PUT", "/api/rooms/"+roomID, `{"beds":3}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, bookingID, dataField(t, body, "bookingId"))

	resp, body = do(t, ts, "POST", "/api/bookings/"+bookingID+"/checkout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Alice", dataField(t, body, "guestName"))

	resp, body = do(t, ts, "PUT", "/api/rooms/"+roomID, `{"beds":3,"forceUpdate":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3.0, dataField(t, body, "beds"))

	resp, _ = do(t, ts, "DELETE", "/api/rooms/"+roomID+"?force=true", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = do(t, ts, "GET", "/api/rooms/"+roomID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRooms_QueryParsing(t *testing.T) {
	ts := newTestServer(t)
	for i, typ := range []string{"single", "double", "suite"} {
		resp, _ := do(t, ts, "POST", "/api/rooms", fmt.Sprintf(`{"roomNo":%d,"type":%q,"beds":1,"pricePerNight":50}`, 101+i, typ))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := do(t, ts, "GET", "/api/rooms?type=suite", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	pag := body["pagination"].(map[string]any)
	assert.Equal(t, 1.0, pag["total"])
	assert.Equal(t, 10.0, pag["limit"])

	resp, body = do(t, ts, "GET", "/api/rooms?page=2&limit=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 2.0, body["pagination"].(map[string]any)["pages"])

	for _, q := range []string{"type=villa", "available=maybe", "minBeds=-1", "maxPrice=abc", "page=x"} {
		resp, _ = do(t, ts, "GET", "/api/rooms?"+q, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestListRooms_ETag(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := do(t, ts, "GET", "/api/rooms", "")
	etag := resp.Header.Get("ETag")
	require.NotEmpty(t, etag)

	req, _ := http.NewRequest("GET", ts.URL+"/api/rooms", nil)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)
}

func TestBookings_SummaryAndErrors(t *testing.T) {
	ts := newTestServer(t)

	resp, body := do(t, ts, "GET", "/api/bookings/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analytics := body["analytics"].(map[string]any)
	assert.Equal(t, 0.0, analytics["averageStayDuration"])
	assert.Equal(t, 0.0, analytics["totalBookings"])

	resp, _ = do(t, ts, "GET", "/api/bookings/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, ts, "POST", "/api/bookings", `{"roomId":"x","guestName":"A","nights":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "nights", body["field"])

	resp, _ = do(t, ts, "POST", "/api/bookings", `{"roomId":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, ts, "PUT", "/api/bookings/nope", `{"nights":2}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, ts, "DELETE", "/api/bookings/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
