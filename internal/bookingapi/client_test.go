package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/tablebook/internal/booking"
)

func TestSubmitMapsStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   booking.Outcome
	}{
		{"created", http.StatusOK, `{"message":"ok"}`, booking.OutcomeCreated},
		{"updated", http.StatusCreated, `{"message":"ok"}`, booking.OutcomeUpdated},
		{"rejected", http.StatusPaymentRequired, `{"message":"Marked Fields Are Mandatory"}`, booking.OutcomeRejected},
		{"empty body", http.StatusAccepted, ``, booking.OutcomeRejected},
		{"null body", http.StatusConflict, `null`, booking.OutcomeRejected},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, booking.OutcomeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got booking.Submission
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/book" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if ct := r.Header.Get("content-type"); ct != "application/json" {
					t.Errorf("content-type = %q", ct)
				}
				if a := r.Header.Get("authorization"); a != "Bearer s3cret" {
					t.Errorf("authorization = %q", a)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("decode: %v", err)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL+"/", "s3cret", nil)
			sub := booking.Submission{UserEmail: "asha@example.com", EntryTime: "7:15 PM", NumberOfPeople: 2}
			outcome, status, err := c.Submit(context.Background(), sub)
			if err != nil {
				t.Fatal(err)
			}
			if outcome != tt.want || status != tt.status {
				t.Errorf("Submit() = %v, %d; want %v, %d", outcome, status, tt.want, tt.status)
			}
			if got != sub {
				t.Errorf("server saw %+v", got)
			}
		})
	}
}

func TestSubmitTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	outcome, status, err := New(url, "", nil).Submit(context.Background(), booking.Submission{})
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != booking.OutcomeFailed || status != 0 {
		t.Errorf("Submit() = %v, %d", outcome, status)
	}
}

func TestSubmitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := New(srv.URL, "", nil).Submit(ctx, booking.Submission{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSubmitWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Errorf("unexpected authorization header %q", r.Header.Get("authorization"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	if outcome, _, err := New(srv.URL, "", nil).Submit(context.Background(), booking.Submission{}); err != nil || outcome != booking.OutcomeCreated {
		t.Errorf("Submit() = %v, %v", outcome, err)
	}
}
