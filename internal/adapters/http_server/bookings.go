package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"frontdesk/internal/domain"
)

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.Bookings.ListBookings(r.Context(), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRead(w, r, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	v, err := h.Bookings.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRead(w, r, envelope{Data: v})
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.NewBooking
	if err := decodeBody(r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Bookings.CreateBooking(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Data: v})
}

func (h *Handlers) updateBooking(w http.ResponseWriter, r *http.Request) {
	var p domain.BookingPatch
	if err := decodeBody(r, &p, false); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Bookings.UpdateBooking(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: v})
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if err := h.Bookings.DeleteBooking(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) checkoutBooking(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Bookings.CheckoutBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Data: rec})
}

func (h *Handlers) listHistory(w http.ResponseWriter, r *http.Request) {
	pg, err := pageQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.History.ListHistory(r.Context(), pg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRead(w, r, out)
}
