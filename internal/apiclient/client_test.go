package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ksred/studio-payroll/internal/session"
)

func TestDecodeData(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []int
		wantErr error
	}{
		{name: "bare array", body: `[1,2,3]`, want: []int{1, 2, 3}},
		{name: "envelope", body: `{"success":true,"data":[4,5],"timestamp":"2026-03-01T00:00:00Z"}`, want: []int{4, 5}},
		{name: "data only envelope", body: `{"data":[6]}`, want: []int{6}},
		{name: "null data", body: `{"success":true,"data":null}`, want: nil},
		{name: "whitespace", body: "\n  [7]  \n", want: []int{7}},
		{name: "empty body", body: ``, wantErr: ErrMalformedResponse},
		{name: "not json", body: `<html>`, wantErr: ErrMalformedResponse},
		{name: "wrong shape", body: `{"success":true,"data":{"a":1}}`, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			err := decodeData([]byte(tt.body), &got)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDecodeDataEnvelopeFailure(t *testing.T) {
	var out []int
	err := decodeData([]byte(`{"success":false,"error":{"code":"G001","message":"boom"}}`), &out)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != "G001" || se.Message != "boom" {
		t.Fatalf("unexpected status error %+v", se)
	}
}

func TestClientSendsHeaders(t *testing.T) {
	var gotAuth, gotRequestID, gotIdempotency string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotIdempotency = r.Header.Get("Idempotency-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":9}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", session.New("tok"))

	var out struct {
		ID int `json:"id"`
	}
	if err := c.Post(context.Background(), "/members", map[string]string{"name": "Kim"}, &out); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if out.ID != 9 {
		t.Errorf("ID = %d, want 9", out.ID)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("missing X-Request-ID")
	}
	if gotIdempotency == "" {
		t.Error("missing Idempotency-Key on POST")
	}
}

func TestClientUnauthorizedInvalidatesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid token"}}`))
	}))
	defer srv.Close()

	sess := session.New("expired")
	invalidated := false
	sess.OnInvalidate(func() { invalidated = true })

	c := New(srv.URL, sess)
	err := c.Get(context.Background(), "/instructors", nil)

	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "Invalid token" {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
	if !invalidated || sess.Authenticated() {
		t.Fatal("session should be invalidated on 401")
	}
}

func TestClientNon2xxAndObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var seen []Observation
	c := New(srv.URL, nil, WithObserver(func(o Observation) {
		mu.Lock()
		seen = append(seen, o)
		mu.Unlock()
	}))

	err := c.Get(context.Background(), "/settlements/2026/3", nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError || se.Code != "INTERNAL_ERROR" {
		t.Fatalf("unexpected error %v", err)
	}
	if errors.Is(err, ErrAuthExpired) {
		t.Fatal("500 must not be reported as auth expiry")
	}

	if len(seen) != 1 || seen[0].Status != http.StatusInternalServerError || seen[0].Path != "/settlements/2026/3" {
		t.Fatalf("unexpected observations %+v", seen)
	}
}

func TestWithTimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}

	after := New("http://example.test", nil, WithHTTPClient(shared), WithTimeout(2*time.Second))
	before := New("http://example.test", nil, WithTimeout(3*time.Second), WithHTTPClient(shared))

	if shared.Timeout != time.Minute {
		t.Errorf("shared client timeout changed to %s", shared.Timeout)
	}
	if after.http.Timeout != 2*time.Second || after.http == shared {
		t.Errorf("timeout after WithHTTPClient = %s", after.http.Timeout)
	}
	if before.http.Timeout != 3*time.Second {
		t.Errorf("timeout before WithHTTPClient = %s", before.http.Timeout)
	}
}
