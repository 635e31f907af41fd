package directory

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Response is the envelope used by every directory endpoint.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
	Timestamp string `json:"timestamp"`
}

type roomList struct {
	Total int       `json:"total"`
	Rooms []Listing `json:"rooms"`
}

type roomDetail struct {
	Room Listing `json:"room"`
}

// Handler serves the directory over HTTP.
type Handler struct {
	svc   *Service
	clock func() time.Time
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, clock: time.Now}
}

// Register adds the directory routes to mux under /api/rooms.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms", h.listRooms)
	mux.HandleFunc("GET /api/rooms/available", h.listAvailableRooms)
	mux.HandleFunc("GET /api/rooms/stats", h.stats)
	mux.HandleFunc("GET /api/rooms/{roomId}", h.getRoom)
}

func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.svc.ListRooms()
	h.success(w, r, roomList{Total: len(rooms), Rooms: rooms}, "Rooms retrieved successfully")
}

func (h *Handler) listAvailableRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.svc.ListAvailableRooms()
	h.success(w, r, roomList{Total: len(rooms), Rooms: rooms}, "Available rooms retrieved successfully")
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.success(w, r, h.svc.GetStats(), "Stats retrieved successfully")
}

func (h *Handler) getRoom(w http.ResponseWriter, r *http.Request) {
	l, ok := h.svc.GetRoom(r.PathValue("roomId"))
	if !ok {
		h.write(w, r, http.StatusNotFound, Response{Message: "Room not found"})
		return
	}
	h.success(w, r, roomDetail{Room: l}, "Room retrieved successfully")
}

func (h *Handler) success(w http.ResponseWriter, r *http.Request, data any, msg string) {
	h.write(w, r, http.StatusOK, Response{Success: true, Message: msg, Data: data})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	resp.Timestamp = h.clock().UTC().Format(time.RFC3339Nano)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.WarnContext(r.Context(), "writing directory response", "path", r.URL.Path, "error", err)
	}
}
