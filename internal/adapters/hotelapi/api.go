package hotelapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"frontdesk/internal/domain"
)

type one[T any] struct {
	Data T `json:"data"`
}

func pageValues(pg domain.PageQuery) url.Values {
	pg = pg.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(pg.Page))
	q.Set("limit", strconv.Itoa(pg.Limit))
	return q
}

func idPath(prefix, id string) (string, error) {
	if id == "" {
		return "", domain.NewValidationError("id", "is required")
	}
	return prefix + "/" + url.PathEscape(id), nil
}

// ---- rooms ----

func (c *Client) ListRooms(ctx context.Context, f domain.RoomFilter, pg domain.PageQuery) (domain.Page[domain.Room], error) {
	q := pageValues(pg)
	if f.Type != nil {
		q.Set("type", string(*f.Type))
	}
	if f.Available != nil {
		q.Set("available", strconv.FormatBool(*f.Available))
	}
	if f.MinBeds != nil {
		q.Set("minBeds", strconv.Itoa(*f.MinBeds))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	var out domain.Page[domain.Room]
	err := c.do(ctx, call{method: http.MethodGet, path: "/rooms", endpoint: "GET /rooms", query: q, out: &out})
	return out, err
}

func (c *Client) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	p, err := idPath("/rooms", id)
	if err != nil {
		return domain.Room{}, err
	}
	var out one[domain.Room]
	err = c.do(ctx, call{method: http.MethodGet, path: p, endpoint: "GET /rooms/{id}", out: &out})
	return out.Data, err
}

// CreateRoom validates locally first so bad input never leaves the desk.
func (c *Client) CreateRoom(ctx context.Context, f domain.RoomFields) (domain.Room, error) {
	if err := f.ValidateCreate(); err != nil {
		return domain.Room{}, err
	}
	var out one[domain.Room]
	err := c.do(ctx, call{method: http.MethodPost, path: "/rooms", endpoint: "POST /rooms", body: f, out: &out})
	return out.Data, err
}

func (c *Client) UpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error) {
	return c.updateRoom(ctx, id, f, false)
}

func (c *Client) ForceUpdateRoom(ctx context.Context, id string, f domain.RoomFields) (domain.Room, error) {
	return c.updateRoom(ctx, id, f, true)
}

func (c *Client) updateRoom(ctx context.Context, id string, f domain.RoomFields, force bool) (domain.Room, error) {
	if err := f.Validate(); err != nil {
		return domain.Room{}, err
	}
	p, err := idPath("/rooms", id)
	if err != nil {
		return domain.Room{}, err
	}
	body := struct {
		domain.RoomFields
		ForceUpdate bool `json:"forceUpdate,omitempty"`
	}{f, force}
	var out one[domain.Room]
	err = c.do(ctx, call{method: http.MethodPut, path: p, endpoint: "PUT /rooms/{id}", body: body, out: &out})
	return out.Data, withRoom(err, id)
}

func (c *Client) DeleteRoom(ctx context.Context, id string) error {
	return c.deleteRoom(ctx, id, false)
}

func (c *Client) ForceDeleteRoom(ctx context.Context, id string) error {
	return c.deleteRoom(ctx, id, true)
}

func (c *Client) deleteRoom(ctx context.Context, id string, force bool) error {
	p, err := idPath("/rooms", id)
	if err != nil {
		return err
	}
	var q url.Values
	if force {
		q = url.Values{"force": {"true"}}
	}
	err = c.do(ctx, call{method: http.MethodDelete, path: p, endpoint: "DELETE /rooms/{id}", query: q})
	return withRoom(err, id)
}

// ---- bookings ----

func (c *Client) ListBookings(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.BookingView], error) {
	var out domain.Page[domain.BookingView]
	err := c.do(ctx, call{method: http.MethodGet, path: "/bookings", endpoint: "GET /bookings", query: pageValues(pg), out: &out})
	return out, err
}

func (c *Client) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	p, err := idPath("/bookings", id)
	if err != nil {
		return domain.BookingView{}, err
	}
	var out one[domain.BookingView]
	err = c.do(ctx, call{method: http.MethodGet, path: p, endpoint: "GET /bookings/{id}", out: &out})
	return out.Data, err
}

func (c *Client) CreateBooking(ctx context.Context, in domain.NewBooking) (domain.BookingView, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return domain.BookingView{}, err
	}
	var out one[domain.BookingView]
	err := c.do(ctx, call{method: http.MethodPost, path: "/bookings", endpoint: "POST /bookings", body: in, out: &out})
	return out.Data, err
}

func (c *Client) UpdateBooking(ctx context.Context, id string, p domain.BookingPatch) (domain.BookingView, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.BookingView{}, err
	}
	path, err := idPath("/bookings", id)
	if err != nil {
		return domain.BookingView{}, err
	}
	var out one[domain.BookingView]
	err = c.do(ctx, call{method: http.MethodPut, path: path, endpoint: "PUT /bookings/{id}", body: p, out: &out})
	return out.Data, err
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	p, err := idPath("/bookings", id)
	if err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodDelete, path: p, endpoint: "DELETE /bookings/{id}"})
}

func (c *Client) CheckoutBooking(ctx context.Context, id string) (domain.HistoryRecord, error) {
	p, err := idPath("/bookings", id)
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	var out one[domain.HistoryRecord]
	err = c.do(ctx, call{method: http.MethodPost, path: p + "/checkout", endpoint: "POST /bookings/{id}/checkout", out: &out})
	return out.Data, err
}

// ---- history ----

func (c *Client) ListHistory(ctx context.Context, pg domain.PageQuery) (domain.HistoryPage, error) {
	var out domain.HistoryPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/bookings/summary", endpoint: "GET /bookings/summary", query: pageValues(pg), out: &out})
	return out, err
}
