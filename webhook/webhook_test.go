package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDeliver_Signed(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
		gotUA   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	ev := NewEvent(EventRaceCompleted, "race_1", map[string]string{"winner": "lightweight"})
	if err := Deliver(context.Background(), srv.URL, "s3cret", ev); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	if !Verify("s3cret", gotBody, gotSig) {
		t.Errorf("signature %q does not verify", gotSig)
	}
	if Verify("other", gotBody, gotSig) {
		t.Error("signature verified with the wrong secret")
	}
	if gotUA != "Duel-Webhook/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}

	var decoded Event
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("body is not an event: %v", err)
	}
	if decoded.Type != EventRaceCompleted || decoded.RaceID != "race_1" {
		t.Errorf("decoded event = %+v", decoded)
	}
}

func TestDeliver_UnsignedWithoutSecret(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(SignatureHeader) != "" {
			t.Error("signature sent without a secret")
		}
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", NewEvent(EventRaceCompleted, "r", nil)); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := Deliver(context.Background(), srv.URL, "", NewEvent(EventRaceCompleted, "r", nil)); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestDeliverAsync_Retries(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{0, time.Millisecond, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	select {
	case err := <-DeliverAsync(srv.URL, "", NewEvent(EventRaceCompleted, "r", nil)):
		if err != nil {
			t.Fatalf("DeliverAsync: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("delivery did not finish")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestDeliverAsync_Exhausted(t *testing.T) {
	saved := retryDelays
	retryDelays = []time.Duration{0, time.Millisecond}
	t.Cleanup(func() { retryDelays = saved })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := <-DeliverAsync(srv.URL, "", NewEvent(EventRaceCompleted, "r", nil)); err == nil {
		t.Fatal("expected the final error after exhausting retries")
	}
}
