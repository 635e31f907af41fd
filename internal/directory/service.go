// Package directory reports which rooms are live and how full they are.
package directory

import (
	"cmp"
	"slices"
)

// Listing describes one live room.
type Listing struct {
	RoomId     string         `json:"roomId"`
	Name       string         `json:"name"`
	Clients    int            `json:"clients"`
	MaxClients int            `json:"maxClients"`
	Locked     bool           `json:"locked"`
	Available  bool           `json:"available"`
	Metadata   map[string]any `json:"metadata"`
}

// Registry enumerates the rooms owned by this process.
type Registry interface {
	List() []Listing
	Get(roomId string) (Listing, bool)
}

// Stats aggregates occupancy across all rooms.
type Stats struct {
	TotalRooms   int       `json:"totalRooms"`
	TotalPlayers int       `json:"totalPlayers"`
	Rooms        []Listing `json:"rooms"`
}

// Service is a read only view over a Registry. A nil registry behaves as an
// empty one.
type Service struct {
	registry Registry
}

func NewService(registry Registry) *Service {
	return &Service{registry: registry}
}

// ListRooms returns every live room ordered by name then id.
func (s *Service) ListRooms() []Listing {
	if s == nil || s.registry == nil {
		return []Listing{}
	}

	rooms := s.registry.List()
	out := make([]Listing, 0, len(rooms))
	for _, l := range rooms {
		out = append(out, normalize(l))
	}

	slices.SortFunc(out, func(a, b Listing) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.RoomId, b.RoomId))
	})
	return out
}

// ListAvailableRooms returns the rooms that can take another client.
func (s *Service) ListAvailableRooms() []Listing {
	rooms := s.ListRooms()
	available := rooms[:0]
	for _, l := range rooms {
		if l.Available {
			available = append(available, l)
		}
	}
	return available
}

func (s *Service) GetRoom(roomId string) (Listing, bool) {
	if s == nil || s.registry == nil {
		return Listing{}, false
	}

	l, ok := s.registry.Get(roomId)
	if !ok {
		return Listing{}, false
	}
	return normalize(l), true
}

// GetStats sums clients over a single listing of the registry. Rooms may
// change while the result is in use.
func (s *Service) GetStats() Stats {
	rooms := s.ListRooms()

	total := 0
	for _, l := range rooms {
		total += l.Clients
	}

	return Stats{
		TotalRooms:   len(rooms),
		TotalPlayers: total,
		Rooms:        rooms,
	}
}

// TotalRooms is the number of live rooms.
func (s *Service) TotalRooms() int {
	if s == nil || s.registry == nil {
		return 0
	}
	return len(s.registry.List())
}

func normalize(l Listing) Listing {
	l.Available = l.Clients < l.MaxClients && !l.Locked
	if l.Metadata == nil {
		l.Metadata = map[string]any{}
	}
	return l
}
