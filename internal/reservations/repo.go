package reservations

import (
	"context"
	"time"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/slots"
)

// Store is the persistence the HTTP handler and sweeper need.
type Store interface {
	Upsert(ctx context.Context, r Reservation) (id int64, created bool, err error)
	Get(ctx context.Context, id int64) (Reservation, error)
	ListByUser(ctx context.Context, userEmail string, status Status) ([]Reservation, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	MarkUnattended(ctx context.Context, day slots.Date, now slots.TimeOfDay) (int64, error)
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

const selectColumns = `
SELECT id,user_email,creation_time,last_sign_in_time,restaurant_id,restaurant_name,full_name,phone_number,number_of_people,booking_date,entry_minutes,special_request,status,created_at,updated_at
FROM bookings`

// Upsert updates the open booking a user already holds at the restaurant for
// that date, or inserts a new Pending one.
func (r *Repo) Upsert(ctx context.Context, res Reservation) (int64, bool, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
SELECT id FROM bookings
WHERE user_email=$1 AND restaurant_id=$2 AND booking_date=$3::date AND status IN ('Pending','Confirmed')
ORDER BY id DESC
LIMIT 1`, res.UserEmail, res.RestaurantID, res.Date.String()).Scan(&id)
	switch {
	case err == nil:
		err = r.db.Exec(ctx, `
UPDATE bookings
SET creation_time=$2, last_sign_in_time=$3, restaurant_name=$4, full_name=$5, phone_number=$6,
    number_of_people=$7, entry_minutes=$8, special_request=$9, status='Pending', updated_at=now()
WHERE id=$1`,
			id, res.CreationTime, res.LastSignInTime, res.RestaurantName, res.FullName, res.PhoneNumber,
			res.PartySize, int(res.EntryTime), res.SpecialRequest)
		if err != nil {
			return 0, false, db.WrapNotFound(err)
		}
		return id, false, nil
	case !db.IsNotFound(err):
		return 0, false, db.WrapNotFound(err)
	}

	err = r.db.QueryRow(ctx, `
INSERT INTO bookings(user_email,creation_time,last_sign_in_time,restaurant_id,restaurant_name,full_name,phone_number,number_of_people,booking_date,entry_minutes,special_request,status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::date,$10,$11,'Pending')
RETURNING id`,
		res.UserEmail, res.CreationTime, res.LastSignInTime, res.RestaurantID, res.RestaurantName, res.FullName,
		res.PhoneNumber, res.PartySize, res.Date.String(), int(res.EntryTime), res.SpecialRequest,
	).Scan(&id)
	if err != nil {
		return 0, false, db.WrapNotFound(err)
	}
	return id, true, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, selectColumns+` WHERE id=$1`, id))
	if err != nil {
		return Reservation{}, db.WrapNotFound(err)
	}
	return res, nil
}

// ListByUser returns a user's bookings newest first. An empty status lists all.
func (r *Repo) ListByUser(ctx context.Context, userEmail string, status Status) ([]Reservation, error) {
	rows, err := r.db.Query(ctx, selectColumns+`
WHERE user_email=$1 AND ($2 = '' OR status = $2)
ORDER BY created_at DESC`, userEmail, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *Repo) SetStatus(ctx context.Context, id int64, status Status) error {
	n, err := r.db.ExecCount(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

// MarkUnattended moves Pending and Confirmed bookings whose entry time is
// before (day, now) to Unattended.
func (r *Repo) MarkUnattended(ctx context.Context, day slots.Date, now slots.TimeOfDay) (int64, error) {
	return r.db.ExecCount(ctx, `
UPDATE bookings
SET status='Unattended', updated_at=now()
WHERE status IN ('Pending','Confirmed')
  AND (booking_date < $1::date OR (booking_date = $1::date AND entry_minutes < $2))`,
		day.String(), int(now))
}

func scanReservation(row db.Row) (Reservation, error) {
	var res Reservation
	var day time.Time
	var entry int
	var status string
	if err := row.Scan(
		&res.ID, &res.UserEmail, &res.CreationTime, &res.LastSignInTime, &res.RestaurantID, &res.RestaurantName,
		&res.FullName, &res.PhoneNumber, &res.PartySize, &day, &entry, &res.SpecialRequest, &status,
		&res.CreatedAt, &res.UpdatedAt,
	); err != nil {
		return Reservation{}, err
	}
	res.Date = slots.DateOf(day)
	res.EntryTime = slots.TimeOfDay(entry)
	res.Status = Status(status)
	return res, nil
}
