package restaurants

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/example/tablebook/internal/db"
)

type Repo struct {
	db       *db.DB
	validate *validator.Validate
}

func NewRepo(d *db.DB) *Repo { return &Repo{db: d, validate: validator.New()} }

// Validate checks required fields and that the hours parse.
func Validate(v *validator.Validate, r Restaurant) error {
	if err := v.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is required", verrs[0].Field())
		}
		return err
	}
	_, err := r.Hours()
	return err
}

// Create assigns an id when none is given and stores the listing.
func (r *Repo) Create(ctx context.Context, in Restaurant) (Restaurant, error) {
	in.normalize()
	if err := Validate(r.validate, in); err != nil {
		return Restaurant{}, err
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	err := r.db.QueryRow(ctx, `
INSERT INTO restaurants(id,name,city,area,opens_at,closes_at,owner_id)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING created_at, updated_at`,
		in.ID, in.Name, in.City, in.Area, in.OpensAt, in.ClosesAt, in.OwnerID,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return Restaurant{}, db.WrapNotFound(err)
	}
	return in, nil
}

// UpdateHours changes a listing's operating hours.
func (r *Repo) UpdateHours(ctx context.Context, id, opensAt, closesAt string) error {
	candidate := Restaurant{ID: id, OpensAt: opensAt, ClosesAt: closesAt}
	candidate.normalize()
	if _, err := candidate.Hours(); err != nil {
		return err
	}
	n, err := r.db.ExecCount(ctx, `UPDATE restaurants SET opens_at=$2, closes_at=$3, updated_at=now() WHERE id=$1`,
		id, candidate.OpensAt, candidate.ClosesAt)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (Restaurant, error) {
	var out Restaurant
	err := r.db.QueryRow(ctx, `
SELECT id,name,city,area,opens_at,closes_at,owner_id,created_at,updated_at
FROM restaurants
WHERE id=$1`, id).Scan(
		&out.ID, &out.Name, &out.City, &out.Area, &out.OpensAt, &out.ClosesAt, &out.OwnerID, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return Restaurant{}, db.WrapNotFound(err)
	}
	return out, nil
}

// List returns listings ordered by name, optionally limited to one city.
func (r *Repo) List(ctx context.Context, city string) ([]Restaurant, error) {
	rows, err := r.db.Query(ctx, `
SELECT id,name,city,area,opens_at,closes_at,owner_id,created_at,updated_at
FROM restaurants
WHERE $1 = '' OR lower(city) = lower($1)
ORDER BY name`, city)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Restaurant
	for rows.Next() {
		var x Restaurant
		if err := rows.Scan(&x.ID, &x.Name, &x.City, &x.Area, &x.OpensAt, &x.ClosesAt, &x.OwnerID, &x.CreatedAt, &x.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
