package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"frontdesk/internal/domain"
)

type roomUpdateRequest struct {
	domain.RoomFields
	ForceUpdate bool `json:"forceUpdate"`
}

type roomDeleteRequest struct {
	ForceDelete bool `json:"forceDelete"`
}

func roomFilter(r *http.Request) (domain.RoomFilter, error) {
	var f domain.RoomFilter
	q := r.URL.Query()
	if s := q.Get("type"); s != "" {
		t := domain.RoomType(s)
		if !t.Valid() {
			return f, domain.NewValidationError("type", "must be one of: single, double, suite")
		}
		f.Type = &t
	}
	if s := q.Get("available"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, domain.NewValidationError("available", "must be true or false")
		}
		f.Available = &b
	}
	minBeds, err := queryInt(r, "minBeds")
	if err != nil {
		return f, err
	}
	f.MinBeds = minBeds
	if s := q.Get("maxPrice"); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil || p < 0 {
			return f, domain.NewValidationError("maxPrice", "must be a non-negative number")
		}
		f.MaxPrice = &p
	}
	return f, nil
}

func (h *Handlers) listRooms(w http.ResponseWriter, r *http.Request) {
	f, err := roomFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pg, err := pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Rooms.ListRooms(r.Context(), f, pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRead(w, r, out)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.Rooms.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRead(w, r, envelope{Data: rm})
}

func (h *Handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	var f domain.RoomFields
	if err := decodeBody(r, &f, false); err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := h.Rooms.CreateRoom(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: rm})
}

// updateRoom answers 409 with requiresAction while a booking holds the room,
// unless the body carries forceUpdate.
func (h *Handlers) updateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomUpdateRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	update := h.Rooms.UpdateRoom
	if req.ForceUpdate {
		update = h.Rooms.ForceUpdateRoom
	}
	rm, err := update(r.Context(), id, req.RoomFields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: rm})
}

func (h *Handlers) deleteRoom(w http.ResponseWriter, r *http.Request) {
	var req roomDeleteRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	if force, _ := strconv.ParseBool(r.URL.Query().Get("force")); force {
		req.ForceDelete = true
	}
	id := chi.URLParam(r, "id")
	del := h.Rooms.DeleteRoom
	if req.ForceDelete {
		del = h.Rooms.ForceDeleteRoom
	}
	if err := del(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
