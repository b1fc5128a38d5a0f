package reviews

import (
	"context"
	"strings"

	"github.com/example/tablebook/internal/db"
)

// Filter narrows List. Empty fields match everything.
type Filter struct {
	RestaurantID string
	UserEmail    string
}

type Store interface {
	Upsert(ctx context.Context, r Review) (id int64, created bool, err error)
	List(ctx context.Context, f Filter) ([]Review, error)
	Summaries(ctx context.Context, restaurantIDs []string) (map[string]Summary, error)
}

type Repo struct{ db *db.DB }

func NewRepo(d *db.DB) *Repo { return &Repo{db: d} }

// Upsert replaces the user's earlier review of the restaurant, if any.
func (r *Repo) Upsert(ctx context.Context, rv Review) (int64, bool, error) {
	var id int64
	var inserted bool
	err := r.db.QueryRow(ctx, `
INSERT INTO reviews(restaurant_id,user_email,creation_time,last_sign_in_time,full_name,rating,comment,liked,disliked,can_be_improved)
VALUES ($1,lower($2),$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (restaurant_id,user_email) DO UPDATE SET
    creation_time=EXCLUDED.creation_time, last_sign_in_time=EXCLUDED.last_sign_in_time,
    full_name=EXCLUDED.full_name, rating=EXCLUDED.rating, comment=EXCLUDED.comment,
    liked=EXCLUDED.liked, disliked=EXCLUDED.disliked, can_be_improved=EXCLUDED.can_be_improved,
    updated_at=now()
RETURNING id, (xmax = 0)`,
		rv.RestaurantID, rv.UserEmail, rv.CreationTime, rv.LastSignInTime, rv.FullName, rv.Rating, rv.Comment,
		strings.Join(rv.Liked, ","), strings.Join(rv.Disliked, ","), strings.Join(rv.CanBeImproved, ","),
	).Scan(&id, &inserted)
	if err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}

// List returns matching reviews newest first.
func (r *Repo) List(ctx context.Context, f Filter) ([]Review, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,restaurant_id,user_email,creation_time,last_sign_in_time,full_name,rating,comment,liked,disliked,can_be_improved,created_at,updated_at
FROM reviews
WHERE ($1 = '' OR restaurant_id = $1) AND ($2 = '' OR user_email = lower($2))
ORDER BY created_at DESC, id DESC`, f.RestaurantID, f.UserEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Review{}
	for rows.Next() {
		var rv Review
		var liked, disliked, improve string
		if err := rows.Scan(&rv.ID, &rv.RestaurantID, &rv.UserEmail, &rv.CreationTime, &rv.LastSignInTime, &rv.FullName,
			&rv.Rating, &rv.Comment, &liked, &disliked, &improve, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		rv.Liked, rv.Disliked, rv.CanBeImproved = splitTags(liked), splitTags(disliked), splitTags(improve)
		out = append(out, rv)
	}
	return out, rows.Err()
}

// Summaries aggregates ratings per restaurant. Restaurants nobody rated are
// absent from the map.
func (r *Repo) Summaries(ctx context.Context, restaurantIDs []string) (map[string]Summary, error) {
	out := map[string]Summary{}
	if len(restaurantIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
SELECT restaurant_id, avg(rating)::float8, count(*), count(*) FILTER (WHERE comment <> '')
FROM reviews
WHERE restaurant_id = ANY($1)
GROUP BY restaurant_id`, restaurantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var s Summary
		if err := rows.Scan(&id, &s.Average, &s.Ratings, &s.Reviews); err != nil {
			return nil, err
		}
		out[id] = s
	}
	return out, rows.Err()
}
