package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"frontdesk/internal/app"
	"frontdesk/internal/domain"
)

type Handlers struct {
	Rooms    *app.RoomRegistry
	Bookings *app.BookingLedger
	History  *app.HistoryService
}

// problem is an RFC 7807 body. Message and Data carry the conflict payload
// desk clients act on: {"data":{"requiresAction":true,"bookingId":...}}.
type problem struct {
	Type    string        `json:"type"`
	Title   string        `json:"title"`
	Status  int           `json:"status"`
	Detail  string        `json:"detail,omitempty"`
	Field   string        `json:"field,omitempty"`
	Message string        `json:"message,omitempty"`
	Data    *conflictData `json:"data,omitempty"`
}

type conflictData struct {
	RequiresAction bool   `json:"requiresAction"`
	BookingID      string `json:"bookingId"`
}

type envelope struct {
	Data any `json:"data"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.listRooms)
			r.Post("/", h.createRoom)
			r.Get("/{id}", h.getRoom)
			r.Put("/{id}", h.updateRoom)
			r.Delete("/{id}", h.deleteRoom)
		})
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.listBookings)
			r.Post("/", h.createBooking)
			r.Get("/summary", h.listHistory)
			r.Get("/{id}", h.getBooking)
			r.Put("/{id}", h.updateBooking)
			r.Delete("/{id}", h.deleteBooking)
			r.Post("/{id}/checkout", h.checkoutBooking)
		})
	})
}

func writeProblem(w http.ResponseWriter, p problem) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if ce, ok := domain.IsRoomConflict(err); ok {
		writeProblem(w, problem{
			Title:   "Room Has Active Booking",
			Status:  http.StatusConflict,
			Detail:  ce.Error(),
			Message: "Room has an active booking",
			Data:    &conflictData{RequiresAction: true, BookingID: ce.BookingID},
		})
		return
	}
	if ve, ok := domain.IsValidationError(err); ok {
		writeProblem(w, problem{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: ve.Reason, Field: ve.Field})
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, problem{Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()})
	case errors.Is(err, domain.ErrRoomUnavailable):
		writeProblem(w, problem{Title: "Room Unavailable", Status: http.StatusConflict, Detail: "room is not available"})
	case errors.Is(err, domain.ErrRemoteUnavailable):
		writeProblem(w, problem{Title: "Service Unavailable", Status: http.StatusServiceUnavailable, Detail: err.Error()})
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, problem{Title: "Internal Server Error", Status: http.StatusInternalServerError})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeRead serves a GET body with a weak ETag, answering 304 when the
// client already holds this version.
func writeRead(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, problem{Title: "Internal Server Error", Status: http.StatusInternalServerError})
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched
// when optional is set.
func decodeBody(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && optional:
		return nil
	case errors.Is(err, io.EOF):
		return domain.NewValidationError("", "request body is required")
	}
	return domain.NewValidationError("", "malformed JSON body")
}

func queryInt(r *http.Request, name string) (*int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return &n, nil
}

func pageQuery(r *http.Request) (domain.PageQuery, error) {
	var pg domain.PageQuery
	page, err := queryInt(r, "page")
	if err != nil {
		return pg, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return pg, err
	}
	if page != nil {
		pg.Page = *page
	}
	if limit != nil {
		pg.Limit = *limit
	}
	return pg.Normalize(), nil
}
