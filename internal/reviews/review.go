// Package reviews stores diners' ratings and comments, one per user and
// restaurant, and summarises them for listings.
package reviews

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID             int64
	RestaurantID   string
	UserEmail      string
	CreationTime   string
	LastSignInTime string
	FullName       string
	Rating         int
	Comment        string
	Liked          []string
	Disliked       []string
	CanBeImproved  []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Submission is the POST /add-review payload. The tag lists are
// comma-separated.
type Submission struct {
	UserEmail      string `json:"userEmail" validate:"required,email"`
	CreationTime   string `json:"creationTime"`
	LastSignInTime string `json:"lastSignInTime"`
	FullName       string `json:"fullName" validate:"required"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=2000"`
	Liked          string `json:"liked"`
	Disliked       string `json:"disLiked"`
	CanBeImproved  string `json:"canBeImproved"`
}

func FromSubmission(restaurantID string, s Submission) Review {
	return Review{
		RestaurantID:   strings.TrimSpace(restaurantID),
		UserEmail:      strings.TrimSpace(s.UserEmail),
		CreationTime:   s.CreationTime,
		LastSignInTime: s.LastSignInTime,
		FullName:       strings.TrimSpace(s.FullName),
		Rating:         s.Rating,
		Comment:        strings.TrimSpace(s.Comment),
		Liked:          splitTags(s.Liked),
		Disliked:       splitTags(s.Disliked),
		CanBeImproved:  splitTags(s.CanBeImproved),
	}
}

func (r Review) Submission() Submission {
	return Submission{
		UserEmail:      r.UserEmail,
		CreationTime:   r.CreationTime,
		LastSignInTime: r.LastSignInTime,
		FullName:       r.FullName,
		Rating:         r.Rating,
		Comment:        r.Comment,
		Liked:          strings.Join(r.Liked, ","),
		Disliked:       strings.Join(r.Disliked, ","),
		CanBeImproved:  strings.Join(r.CanBeImproved, ","),
	}
}

func splitTags(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Summary aggregates a restaurant's reviews. Ratings counts every review;
// Reviews only those with a comment.
type Summary struct {
	Average float64
	Ratings int
	Reviews int
}

func Summarize(rs []Review) Summary {
	var s Summary
	sum := 0
	for _, r := range rs {
		sum += r.Rating
		s.Ratings++
		if r.Comment != "" {
			s.Reviews++
		}
	}
	if s.Ratings > 0 {
		s.Average = float64(sum) / float64(s.Ratings)
	}
	return s
}

// Label renders the average to one decimal, or "" when nobody has rated.
func (s Summary) Label() string {
	if s.Ratings == 0 {
		return ""
	}
	return fmt.Sprintf("%.1f", s.Average)
}
