package web

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/restaurants"
	"github.com/example/tablebook/internal/reviews"
)

// rankByRating puts the best-rated restaurants first and returns each
// rated restaurant's average label. Unrated ones keep name order at the end.
func (s *Server) rankByRating(r *http.Request, list []restaurants.Restaurant) map[string]string {
	if s.Reviews == nil || len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, rest := range list {
		ids = append(ids, rest.ID)
	}
	sums, err := s.Reviews.Summaries(r.Context(), ids)
	if err != nil {
		s.Logger.Warn("load ratings failed", zap.Error(err))
		return nil
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := sums[list[i].ID], sums[list[j].ID]
		if a.Average != b.Average {
			return a.Average > b.Average
		}
		return list[i].Name < list[j].Name
	})
	labels := make(map[string]string, len(sums))
	for id, sum := range sums {
		labels[id] = sum.Label()
	}
	return labels
}

func (s *Server) restaurantReviews(r *http.Request, id string) ([]reviews.View, string) {
	if s.Reviews == nil {
		return nil, ""
	}
	list, err := s.Reviews.List(r.Context(), reviews.Filter{RestaurantID: id})
	if err != nil {
		s.Logger.Warn("load reviews failed", zap.String("restaurant_id", id), zap.Error(err))
		return nil, ""
	}
	views := make([]reviews.View, 0, len(list))
	for _, rv := range list {
		views = append(views, reviews.ViewOf(rv))
	}
	return views, reviews.Summarize(list).Label()
}

func (s *Server) handleReviewPost(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	rest, _, ok := s.loadRestaurant(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil || rating < reviews.MinRating || rating > reviews.MaxRating {
		http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.FormValue("fullName"))
	if name == "" {
		name = sess.Email
	}
	rv := reviews.FromSubmission(rest.ID, reviews.Submission{
		UserEmail:     sess.Email,
		FullName:      name,
		Rating:        rating,
		Comment:       r.FormValue("comment"),
		Liked:         r.FormValue("liked"),
		Disliked:      r.FormValue("disLiked"),
		CanBeImproved: r.FormValue("canBeImproved"),
	})
	id, created, err := s.Reviews.Upsert(r.Context(), rv)
	if err != nil {
		s.Logger.Error("store review failed", zap.String("restaurant_id", rest.ID), zap.Error(err))
		http.Error(w, "could not store review", http.StatusInternalServerError)
		return
	}
	s.Logger.Info("review stored", zap.Int64("id", id), zap.String("restaurant_id", rest.ID), zap.Int64("user_id", sess.UserID), zap.Bool("created", created))
	http.Redirect(w, r, "/restaurants/"+rest.ID+"/book#reviews", http.StatusSeeOther)
}

func (s *Server) myReviews(r *http.Request, email string) []reviews.View {
	if s.Reviews == nil {
		return nil
	}
	list, err := s.Reviews.List(r.Context(), reviews.Filter{UserEmail: email})
	if err != nil {
		s.Logger.Warn("load user reviews failed", zap.String("user_email", email), zap.Error(err))
		return nil
	}
	views := make([]reviews.View, 0, len(list))
	for _, rv := range list {
		views = append(views, reviews.ViewOf(rv))
	}
	return views
}
