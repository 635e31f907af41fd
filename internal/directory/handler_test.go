package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pixil98/go-testutil"
)

type listResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    roomList `json:"data"`
}

func newTestServer(reg Registry) *httptest.Server {
	mux := http.NewServeMux()
	NewHandler(NewService(reg)).Register(mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("requesting %s: %v", url, err)
	}
	defer resp.Body.Close()

	testutil.AssertEqual(t, "content type", resp.Header.Get("Content-Type"), "application/json")
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.StatusCode
}

func TestHandler_ListRooms(t *testing.T) {
	tests := map[string]struct {
		path     string
		expTotal int
		expMsg   string
	}{
		"all rooms": {
			path:     "/api/rooms",
			expTotal: 3,
			expMsg:   "Rooms retrieved successfully",
		},
		"available rooms": {
			path:     "/api/rooms/available",
			expTotal: 1,
			expMsg:   "Available rooms retrieved successfully",
		},
	}

	srv := newTestServer(testRegistry())
	defer srv.Close()

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var body listResponse
			status := getJSON(t, srv.URL+tt.path, &body)

			testutil.AssertEqual(t, "status", status, http.StatusOK)
			testutil.AssertEqual(t, "success", body.Success, true)
			testutil.AssertEqual(t, "message", body.Message, tt.expMsg)
			testutil.AssertEqual(t, "total", body.Data.Total, tt.expTotal)
			testutil.AssertEqual(t, "rooms", len(body.Data.Rooms), tt.expTotal)
		})
	}
}

func TestHandler_Stats(t *testing.T) {
	srv := newTestServer(nil)
	defer srv.Close()

	var body struct {
		Success   bool   `json:"success"`
		Data      Stats  `json:"data"`
		Timestamp string `json:"timestamp"`
	}
	status := getJSON(t, srv.URL+"/api/rooms/stats", &body)

	testutil.AssertEqual(t, "status", status, http.StatusOK)
	testutil.AssertEqual(t, "success", body.Success, true)
	testutil.AssertEqual(t, "total rooms", body.Data.TotalRooms, 0)
	testutil.AssertEqual(t, "total players", body.Data.TotalPlayers, 0)
	if body.Timestamp == "" {
		t.Errorf("expected a timestamp")
	}
}

func TestHandler_GetRoom(t *testing.T) {
	srv := newTestServer(testRegistry())
	defer srv.Close()

	var found struct {
		Success bool       `json:"success"`
		Data    roomDetail `json:"data"`
	}
	status := getJSON(t, srv.URL+"/api/rooms/r1", &found)
	testutil.AssertEqual(t, "status", status, http.StatusOK)
	testutil.AssertEqual(t, "room id", found.Data.Room.RoomId, "r1")
	testutil.AssertEqual(t, "clients", found.Data.Room.Clients, 2)

	var missing Response
	status = getJSON(t, srv.URL+"/api/rooms/unknown", &missing)
	testutil.AssertEqual(t, "missing status", status, http.StatusNotFound)
	testutil.AssertEqual(t, "missing success", missing.Success, false)
	testutil.AssertEqual(t, "missing message", missing.Message, "Room not found")
}
