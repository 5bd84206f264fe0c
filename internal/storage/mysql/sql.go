package mysql

// -----------------------------------------------------------------------------
// ROOMS
// -----------------------------------------------------------------------------

const roomColumns = `id, room_no, type, beds, price_per_night, description, available`

const getRoomSQL = `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`

// Locks the room row for the rest of the transaction.
const lockRoomSQL = `SELECT id FROM rooms WHERE id = ? FOR UPDATE`

// WHERE is appended by listRooms.
const listRoomsSQL = `SELECT ` + roomColumns + ` FROM rooms`

const countRoomsSQL = `SELECT COUNT(*) FROM rooms`

const insertRoomSQL = `
INSERT INTO rooms
  (id, room_no, type, beds, price_per_night, description, available)
VALUES
  (?, ?, ?, ?, ?, ?, 1)
`

// available is owned by the booking writes.
const updateRoomSQL = `
UPDATE rooms SET
  room_no         = ?,
  type            = ?,
  beds            = ?,
  price_per_night = ?,
  description     = ?
WHERE id = ?
`

const deleteRoomSQL = `DELETE FROM rooms WHERE id = ?`

const setRoomAvailableSQL = `UPDATE rooms SET available = ? WHERE id = ?`

// -----------------------------------------------------------------------------
// BOOKINGS
// -----------------------------------------------------------------------------

const bookingViewSQL = `
SELECT b.id, b.room_id, b.guest_name, b.nights, b.check_in_date,
       r.room_no, r.type, r.price_per_night
FROM bookings b
JOIN rooms r ON r.id = b.room_id
`

const getBookingSQL = bookingViewSQL + `WHERE b.id = ?`

const lockBookingSQL = bookingViewSQL + `WHERE b.id = ? FOR UPDATE`

const listBookingsSQL = bookingViewSQL + `ORDER BY b.check_in_date DESC, b.id LIMIT ? OFFSET ?`

const countBookingsSQL = `SELECT COUNT(*) FROM bookings`

const activeBookingForRoomSQL = `SELECT id FROM bookings WHERE room_id = ?`

const activeBookingForRoomLockSQL = `SELECT id FROM bookings WHERE room_id = ? FOR UPDATE`

const insertBookingSQL = `
INSERT INTO bookings (id, room_id, guest_name, nights, check_in_date)
VALUES (?, ?, ?, ?, ?)
`

const updateBookingSQL = `UPDATE bookings SET guest_name = ?, nights = ? WHERE id = ?`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

// -----------------------------------------------------------------------------
// HISTORY
// -----------------------------------------------------------------------------

const insertHistorySQL = `
INSERT INTO booking_history
  (id, booking_id, guest_name, room_id, room_no, room_type, check_in_date, check_out_date,
   nights, actual_nights_stayed, price_per_night, total_amount, actual_total_amount, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const listHistorySQL = `
SELECT id, booking_id, guest_name, room_id, room_no, room_type, check_in_date, check_out_date,
       nights, actual_nights_stayed, price_per_night, total_amount, actual_total_amount, status
FROM booking_history
ORDER BY check_out_date DESC, id DESC
LIMIT ? OFFSET ?
`

const countHistorySQL = `SELECT COUNT(*) FROM booking_history`

// Aggregates over the whole archive, never a page.
const historyAnalyticsSQL = `
SELECT COALESCE(SUM(actual_total_amount), 0),
       COUNT(*),
       COALESCE(SUM(actual_nights_stayed), 0)
FROM booking_history
`
