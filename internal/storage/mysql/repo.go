package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"frontdesk/internal/domain"
)

const (
	errDuplicateKey  = 1062
	errRowReferenced = 1451
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isMySQLError(err error, code uint16) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == code
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// withTx runs fn in a transaction, committing only if fn returns nil.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// -----------------------------------------------------------------------------
// ROOMS
// -----------------------------------------------------------------------------

type rowScanner interface{ Scan(dest ...any) error }

func scanRoom(sc rowScanner) (domain.Room, error) {
	var (
		rm   domain.Room
		typ  string
		desc sql.NullString
	)
	if err := sc.Scan(&rm.ID, &rm.RoomNo, &typ, &rm.Beds, &rm.PricePerNight, &desc, &rm.Available); err != nil {
		return domain.Room{}, err
	}
	rm.Type = domain.RoomType(typ)
	rm.Description = desc.String
	return rm, nil
}

func roomWhere(f domain.RoomFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, string(*f.Type))
	}
	if f.Available != nil {
		conds = append(conds, "available = ?")
		args = append(args, *f.Available)
	}
	if f.MinBeds != nil {
		conds = append(conds, "beds >= ?")
		args = append(args, *f.MinBeds)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price_per_night <= ?")
		args = append(args, *f.MaxPrice)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *Repo) ListRooms(ctx context.Context, f domain.RoomFilter, pg domain.PageQuery) (domain.Page[domain.Room], error) {
	pg = pg.Normalize()
	where, args := roomWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, countRoomsSQL+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Room]{}, err
	}

	q := listRoomsSQL + where + " ORDER BY room_no, id LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, pg.Limit, pg.Offset())...)
	if err != nil {
		return domain.Page[domain.Room]{}, err
	}
	defer rows.Close()

	items := make([]domain.Room, 0, pg.Limit)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return domain.Page[domain.Room]{}, err
		}
		items = append(items, rm)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Room]{}, err
	}
	return domain.Page[domain.Room]{Items: items, Pagination: domain.NewPagination(pg, total)}, nil
}

func (r *Repo) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) InsertRoom(ctx context.Context, rm domain.Room) (domain.Room, error) {
	if _, err := r.db.ExecContext(ctx, insertRoomSQL,
		rm.ID, rm.RoomNo, string(rm.Type), rm.Beds, rm.PricePerNight, valStr(rm.Description),
	); err != nil {
		return domain.Room{}, err
	}
	return r.GetRoom(ctx, rm.ID)
}

// UpdateRoom rewrites the descriptive columns. MySQL reports zero affected
// rows for a no-op update, so existence is checked by reading back.
func (r *Repo) UpdateRoom(ctx context.Context, rm domain.Room) (domain.Room, error) {
	if _, err := r.db.ExecContext(ctx, updateRoomSQL,
		rm.RoomNo, string(rm.Type), rm.Beds, rm.PricePerNight, valStr(rm.Description), rm.ID,
	); err != nil {
		return domain.Room{}, err
	}
	return r.GetRoom(ctx, rm.ID)
}

func (r *Repo) DeleteRoom(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var rid string
		if err := tx.QueryRowContext(ctx, lockRoomSQL, id).Scan(&rid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		var bid string
		switch err := tx.QueryRowContext(ctx, activeBookingForRoomLockSQL, id).Scan(&bid); {
		case err == nil:
			return &domain.RoomHasActiveBookingError{RoomID: id, BookingID: bid}
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteRoomSQL, id); err != nil {
			if isMySQLError(err, errRowReferenced) {
				return &domain.RoomHasActiveBookingError{RoomID: id}
			}
			return err
		}
		return nil
	})
}

func (r *Repo) ActiveBookingForRoom(ctx context.Context, roomID string) (string, bool, error) {
	var bid string
	err := r.db.QueryRowContext(ctx, activeBookingForRoomSQL, roomID).Scan(&bid)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return bid, true, nil
}

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

func scanBooking(sc rowScanner) (domain.BookingView, error) {
	var (
		b   domain.Booking
		rm  domain.Room
		typ string
	)
	if err := sc.Scan(&b.ID, &b.RoomID, &b.GuestName, &b.Nights, &b.CheckInDate,
		&rm.RoomNo, &typ, &rm.PricePerNight); err != nil {
		return domain.BookingView{}, err
	}
	rm.Type = domain.RoomType(typ)
	return domain.NewBookingView(b, rm), nil
}

func getBooking(ctx context.Context, q queryer, query, id string) (domain.BookingView, error) {
	v, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BookingView{}, domain.ErrNotFound
	}
	return v, err
}

func (r *Repo) ListBookings(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.BookingView], error) {
	pg = pg.Normalize()
	var total int
	if err := r.db.QueryRowContext(ctx, countBookingsSQL).Scan(&total); err != nil {
		return domain.Page[domain.BookingView]{}, err
	}
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, pg.Limit, pg.Offset())
	if err != nil {
		return domain.Page[domain.BookingView]{}, err
	}
	defer rows.Close()

	items := make([]domain.BookingView, 0, pg.Limit)
	for rows.Next() {
		v, err := scanBooking(rows)
		if err != nil {
			return domain.Page[domain.BookingView]{}, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.BookingView]{}, err
	}
	return domain.Page[domain.BookingView]{Items: items, Pagination: domain.NewPagination(pg, total)}, nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.BookingView, error) {
	return getBooking(ctx, r.db, getBookingSQL, id)
}

// CreateBooking inserts the booking and flips the room flag in one
// transaction. The room row lock serializes concurrent creates; the unique
// key on bookings.room_id backs it up.
func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) (domain.BookingView, error) {
	var out domain.BookingView
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var rid string
		if err := tx.QueryRowContext(ctx, lockRoomSQL, b.RoomID).Scan(&rid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		var bid string
		switch err := tx.QueryRowContext(ctx, activeBookingForRoomLockSQL, b.RoomID).Scan(&bid); {
		case err == nil:
			return domain.ErrRoomUnavailable
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		if _, err := tx.ExecContext(ctx, insertBookingSQL, b.ID, b.RoomID, b.GuestName, b.Nights, b.CheckInDate); err != nil {
			if isMySQLError(err, errDuplicateKey) {
				return domain.ErrRoomUnavailable
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, setRoomAvailableSQL, false, b.RoomID); err != nil {
			return err
		}
		v, err := getBooking(ctx, tx, getBookingSQL, b.ID)
		out = v
		return err
	})
	return out, err
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.BookingView, error) {
	if _, err := r.db.ExecContext(ctx, updateBookingSQL, b.GuestName, b.Nights, b.ID); err != nil {
		return domain.BookingView{}, err
	}
	return r.GetBooking(ctx, b.ID)
}

func (r *Repo) DeleteBooking(ctx context.Context, id string) (domain.Booking, error) {
	var out domain.Booking
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		v, err := getBooking(ctx, tx, lockBookingSQL, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteBookingSQL, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, setRoomAvailableSQL, true, v.RoomID); err != nil {
			return err
		}
		out = v.Booking
		return nil
	})
	return out, err
}

// CheckoutBooking archives, frees the room and removes the booking in one
// transaction.
func (r *Repo) CheckoutBooking(ctx context.Context, id string, archive func(domain.BookingView) domain.HistoryRecord) (domain.HistoryRecord, error) {
	var rec domain.HistoryRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		v, err := getBooking(ctx, tx, lockBookingSQL, id)
		if err != nil {
			return err
		}
		rec = archive(v)
		if _, err := tx.ExecContext(ctx, insertHistorySQL,
			rec.ID, rec.BookingID, rec.GuestName, rec.RoomID, rec.RoomNo, string(rec.RoomType),
			rec.CheckInDate, rec.CheckOutDate, rec.Nights, rec.ActualNightsStayed,
			rec.PricePerNight, rec.TotalAmount, rec.ActualTotalAmount, string(rec.Status),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteBookingSQL, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, setRoomAvailableSQL, true, v.RoomID)
		return err
	})
	if err != nil {
		return domain.HistoryRecord{}, err
	}
	return rec, nil
}

// -----------------------------------------------------------------------------
// HISTORY
// -----------------------------------------------------------------------------

func (r *Repo) ListHistory(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.HistoryRecord], error) {
	pg = pg.Normalize()
	var total int
	if err := r.db.QueryRowContext(ctx, countHistorySQL).Scan(&total); err != nil {
		return domain.Page[domain.HistoryRecord]{}, err
	}
	rows, err := r.db.QueryContext(ctx, listHistorySQL, pg.Limit, pg.Offset())
	if err != nil {
		return domain.Page[domain.HistoryRecord]{}, err
	}
	defer rows.Close()

	items := make([]domain.HistoryRecord, 0, pg.Limit)
	for rows.Next() {
		var (
			h           domain.HistoryRecord
			typ, status string
		)
		if err := rows.Scan(&h.ID, &h.BookingID, &h.GuestName, &h.RoomID, &h.RoomNo, &typ,
			&h.CheckInDate, &h.CheckOutDate, &h.Nights, &h.ActualNightsStayed,
			&h.PricePerNight, &h.TotalAmount, &h.ActualTotalAmount, &status); err != nil {
			return domain.Page[domain.HistoryRecord]{}, err
		}
		h.RoomType = domain.RoomType(typ)
		h.Status = domain.HistoryStatus(status)
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.HistoryRecord]{}, err
	}
	return domain.Page[domain.HistoryRecord]{Items: items, Pagination: domain.NewPagination(pg, total)}, nil
}

func (r *Repo) Analytics(ctx context.Context) (domain.Analytics, error) {
	var (
		revenue  float64
		bookings int
		nights   int
	)
	if err := r.db.QueryRowContext(ctx, historyAnalyticsSQL).Scan(&revenue, &bookings, &nights); err != nil {
		return domain.Analytics{}, err
	}
	return domain.NewAnalytics(revenue, bookings, nights), nil
}

var _ domain.Store = (*Repo)(nil)
