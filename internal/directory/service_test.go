package directory

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

type fakeRegistry struct {
	rooms []Listing
}

func (f *fakeRegistry) List() []Listing {
	out := make([]Listing, len(f.rooms))
	copy(out, f.rooms)
	return out
}

func (f *fakeRegistry) Get(roomId string) (Listing, bool) {
	for _, l := range f.rooms {
		if l.RoomId == roomId {
			return l, true
		}
	}
	return Listing{}, false
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{rooms: []Listing{
		{RoomId: "r3", Name: "gallery", Clients: 50, MaxClients: 50},
		{RoomId: "r1", Name: "gallery", Clients: 2, MaxClients: 50, Metadata: map[string]any{"floor": 1.0}},
		{RoomId: "r2", Name: "admin_gallery", Clients: 1, MaxClients: 3, Locked: true},
	}}
}

func TestService_EmptyRegistry(t *testing.T) {
	tests := map[string]struct {
		svc *Service
	}{
		"nil registry":   {svc: NewService(nil)},
		"empty registry": {svc: NewService(&fakeRegistry{})},
		"nil service":    {svc: nil},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			stats := tt.svc.GetStats()
			testutil.AssertEqual(t, "total rooms", stats.TotalRooms, 0)
			testutil.AssertEqual(t, "total players", stats.TotalPlayers, 0)
			if stats.Rooms == nil {
				t.Errorf("expected an empty room list, got nil")
			}
			testutil.AssertEqual(t, "rooms", len(stats.Rooms), 0)

			testutil.AssertEqual(t, "available", len(tt.svc.ListAvailableRooms()), 0)
			testutil.AssertEqual(t, "count", tt.svc.TotalRooms(), 0)

			_, ok := tt.svc.GetRoom("r1")
			testutil.AssertEqual(t, "found", ok, false)
		})
	}
}

func TestService_ListRooms(t *testing.T) {
	rooms := NewService(testRegistry()).ListRooms()

	testutil.AssertEqual(t, "count", len(rooms), 3)
	testutil.AssertEqual(t, "first", rooms[0].RoomId, "r2")
	testutil.AssertEqual(t, "second", rooms[1].RoomId, "r1")
	testutil.AssertEqual(t, "third", rooms[2].RoomId, "r3")

	testutil.AssertEqual(t, "locked unavailable", rooms[0].Available, false)
	testutil.AssertEqual(t, "open available", rooms[1].Available, true)
	testutil.AssertEqual(t, "full unavailable", rooms[2].Available, false)

	if rooms[0].Metadata == nil {
		t.Errorf("expected metadata to default to an empty map")
	}
}

func TestService_ListAvailableRooms(t *testing.T) {
	rooms := NewService(testRegistry()).ListAvailableRooms()

	testutil.AssertEqual(t, "count", len(rooms), 1)
	testutil.AssertEqual(t, "room", rooms[0].RoomId, "r1")
}

func TestService_GetRoom(t *testing.T) {
	tests := map[string]struct {
		roomId       string
		expFound     bool
		expAvailable bool
	}{
		"open room":    {roomId: "r1", expFound: true, expAvailable: true},
		"full room":    {roomId: "r3", expFound: true, expAvailable: false},
		"missing room": {roomId: "nope", expFound: false},
	}

	svc := NewService(testRegistry())
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l, ok := svc.GetRoom(tt.roomId)
			testutil.AssertEqual(t, "found", ok, tt.expFound)
			testutil.AssertEqual(t, "available", l.Available, tt.expAvailable)
		})
	}
}

func TestService_GetStats(t *testing.T) {
	stats := NewService(testRegistry()).GetStats()

	testutil.AssertEqual(t, "total rooms", stats.TotalRooms, 3)
	testutil.AssertEqual(t, "total players", stats.TotalPlayers, 53)
	testutil.AssertEqual(t, "rooms", len(stats.Rooms), 3)
}
