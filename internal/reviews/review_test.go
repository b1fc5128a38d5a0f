package reviews

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/example/tablebook/internal/booking"
	"github.com/example/tablebook/internal/db"
)

type memStore struct {
	mu   sync.Mutex
	next int64
	byID map[int64]Review
}

func newMemStore() *memStore { return &memStore{byID: map[int64]Review{}} }

func (m *memStore) Upsert(_ context.Context, r Review) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cur := range m.byID {
		if cur.RestaurantID == r.RestaurantID && strings.EqualFold(cur.UserEmail, r.UserEmail) {
			r.ID = id
			m.byID[id] = r
			return id, false, nil
		}
	}
	m.next++
	r.ID = m.next
	m.byID[r.ID] = r
	return r.ID, true, nil
}

func (m *memStore) List(_ context.Context, f Filter) ([]Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Review{}
	for _, r := range m.byID {
		if (f.RestaurantID == "" || r.RestaurantID == f.RestaurantID) && (f.UserEmail == "" || strings.EqualFold(r.UserEmail, f.UserEmail)) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) Summaries(ctx context.Context, ids []string) (map[string]Summary, error) {
	out := map[string]Summary{}
	for _, id := range ids {
		list, _ := m.List(ctx, Filter{RestaurantID: id})
		if len(list) > 0 {
			out[id] = Summarize(list)
		}
	}
	return out, nil
}

func (m *memStore) get(id int64) Review {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

type knownRestaurants map[string]bool

func (k knownRestaurants) Get(_ context.Context, id string) (booking.Restaurant, error) {
	if !k[id] {
		return booking.Restaurant{}, db.ErrNotFound
	}
	return booking.Restaurant{ID: id}, nil
}

func validReview() Submission {
	return Submission{
		UserEmail: "asha@example.com",
		FullName:  "Asha Rao",
		Rating:    4,
		Comment:   "Lovely biryani",
		Liked:     "Food, Ambience",
	}
}

func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url string, v any, user string) (int, messageBody) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("content-type", "application/json")
	if user != "" {
		req.Header.Set("x-test-user", user)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var body messageBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return res.StatusCode, body
}

func get(t *testing.T, url, user string) (int, []View) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if user != "" {
		req.Header.Set("x-test-user", user)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return res.StatusCode, nil
	}
	var out []View
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return res.StatusCode, out
}

func testUserHeader(r *http.Request) (string, bool) {
	email := r.Header.Get("x-test-user")
	return email, email != ""
}

func TestAddThenUpdate(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, nil)
	h.Restaurants = knownRestaurants{"r-1": true}
	srv := newTestServer(t, h)

	code, body := post(t, srv.URL+"/add-review?restaurantId=r-1", validReview(), "")
	if code != http.StatusCreated || body.Message != "Review Added successfully" {
		t.Fatalf("add = %d %q, want 201", code, body.Message)
	}
	if body.Review == nil || body.Review.Restaurant != "r-1" || body.Review.Liked != "Food,Ambience" {
		t.Fatalf("review = %+v", body.Review)
	}

	again := validReview()
	again.Rating = 2
	again.Comment = ""
	code, body = post(t, srv.URL+"/add-review?restaurantId=r-1", again, "")
	if code != http.StatusOK || body.Message != "Review Updated successfully" {
		t.Fatalf("update = %d %q, want 200", code, body.Message)
	}
	if got := store.get(1); got.Rating != 2 || got.Comment != "" {
		t.Errorf("stored = %+v", got)
	}
}

func TestAddRejects(t *testing.T) {
	h := NewHandler(newMemStore(), nil)
	h.Restaurants = knownRestaurants{"r-1": true}
	srv := newTestServer(t, h)

	bad := validReview()
	bad.FullName = ""
	bad.Rating = 0
	code, body := post(t, srv.URL+"/add-review", bad, "")
	if code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", code)
	}
	if want := "restaurantId,fullName,rating"; strings.Join(body.Fields, ",") != want {
		t.Errorf("fields = %v, want %s", body.Fields, want)
	}

	for _, rating := range []int{-1, 6} {
		r := validReview()
		r.Rating = rating
		if code, _ := post(t, srv.URL+"/add-review?restaurantId=r-1", r, ""); code != http.StatusPaymentRequired {
			t.Errorf("rating %d status = %d, want 402", rating, code)
		}
	}

	if code, body := post(t, srv.URL+"/add-review?restaurantId=r-9", validReview(), ""); code != http.StatusNotFound || body.Message != "Restaurant not Found." {
		t.Errorf("unknown restaurant = %d %q", code, body.Message)
	}
}

func TestOwnerRestrictsReviews(t *testing.T) {
	h := NewHandler(newMemStore(), nil)
	h.Owner = testUserHeader
	srv := newTestServer(t, h)

	if code, _ := post(t, srv.URL+"/add-review?restaurantId=r-1", validReview(), "ravi@example.com"); code != http.StatusForbidden {
		t.Errorf("foreign post = %d, want 403", code)
	}
	if code, _ := post(t, srv.URL+"/add-review?restaurantId=r-1", validReview(), "asha@example.com"); code != http.StatusCreated {
		t.Fatalf("own post = %d, want 201", code)
	}

	if code, list := get(t, srv.URL+"/reviews?restaurantId=r-1", ""); code != http.StatusOK || len(list) != 1 {
		t.Errorf("public restaurant list = %d, %d reviews", code, len(list))
	}
	if code, _ := get(t, srv.URL+"/reviews?userEmail=asha%40example.com", "ravi@example.com"); code != http.StatusForbidden {
		t.Errorf("foreign user list = %d, want 403", code)
	}
	if code, list := get(t, srv.URL+"/reviews?userEmail=asha%40example.com", "asha@example.com"); code != http.StatusOK || len(list) != 1 {
		t.Errorf("own user list = %d, %d reviews", code, len(list))
	}
	if code, _ := get(t, srv.URL+"/reviews", "asha@example.com"); code != http.StatusBadRequest {
		t.Errorf("unfiltered list = %d, want 400", code)
	}
}

func TestRequireAuthGuardsPost(t *testing.T) {
	h := NewHandler(newMemStore(), nil)
	h.RequireAuth = func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, messageBody{Message: "authentication required"})
		})
	}
	srv := newTestServer(t, h)

	if code, _ := post(t, srv.URL+"/add-review?restaurantId=r-1", validReview(), ""); code != http.StatusUnauthorized {
		t.Errorf("anonymous post = %d, want 401", code)
	}
	if code, _ := get(t, srv.URL+"/reviews?restaurantId=r-1", ""); code != http.StatusOK {
		t.Errorf("restaurant list = %d, want 200", code)
	}
}

func TestSummarize(t *testing.T) {
	if s := Summarize(nil); s != (Summary{}) || s.Label() != "" {
		t.Errorf("empty summary = %+v %q", s, s.Label())
	}
	s := Summarize([]Review{{Rating: 5, Comment: "great"}, {Rating: 4}, {Rating: 4, Comment: "good"}})
	if s.Ratings != 3 || s.Reviews != 2 || math.Abs(s.Average-13.0/3) > 1e-9 {
		t.Errorf("summary = %+v", s)
	}
	if s.Label() != "4.3" {
		t.Errorf("Label() = %q", s.Label())
	}
}

func TestFromSubmissionTags(t *testing.T) {
	sub := validReview()
	sub.Disliked = " , Service ,,"
	rv := FromSubmission(" r-1 ", sub)
	if rv.RestaurantID != "r-1" || len(rv.Liked) != 2 || rv.Liked[1] != "Ambience" || len(rv.Disliked) != 1 || rv.CanBeImproved != nil {
		t.Fatalf("review = %+v", rv)
	}
	if got := rv.Submission(); got.Liked != "Food,Ambience" || got.Disliked != "Service" {
		t.Errorf("Submission() = %+v", got)
	}
}
