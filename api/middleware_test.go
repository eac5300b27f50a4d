package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestWithBody tests the JSON body parsing and validation middleware
func TestWithBody(t *testing.T) {
	type testRequest struct {
		Value int `json:"value"`
	}

	tests := []struct {
		name           string
		body           string
		validate       func(*testRequest) error
		wantStatusCode int
		wantBodyMatch  string
		wantCalls      int
		wantValue      int
	}{
		{
			name: "valid JSON without validation passes through",
			body: `{"value": 42}`,
			validate: func(req *testRequest) error {
				return nil
			},
			wantStatusCode: http.StatusOK,
			wantCalls:      1,
			wantValue:      42,
		},
		{
			name: "valid JSON with nil validation passes through",
			body: `{"value": 99}`,
			validate: func(req *testRequest) error {
				return nil
			},
			wantStatusCode: http.StatusOK,
			wantCalls:      1,
			wantValue:      99,
		},
		{
			name:           "invalid JSON returns 400 Bad Request",
			body:           `{invalid json}`,
			validate:       nil,
			wantStatusCode: http.StatusBadRequest,
			wantBodyMatch:  "invalid JSON payload",
			wantCalls:      0,
		},
		{
			name: "validation error returns 400 Bad Request",
			body: `{"value": -1}`,
			validate: func(req *testRequest) error {
				if req.Value < 0 {
					return http.ErrAbortHandler
				}
				return nil
			},
			wantStatusCode: http.StatusBadRequest,
			wantBodyMatch:  "http: abort",
			wantCalls:      0,
		},
		{
			name:           "empty body returns 400 Bad Request",
			body:           ``,
			validate:       nil,
			wantStatusCode: http.StatusBadRequest,
			wantBodyMatch:  "invalid JSON payload",
			wantCalls:      0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			var receivedValue int

			nextFunc := func(w http.ResponseWriter, r *http.Request, req *testRequest) {
				calls++
				receivedValue = req.Value
				w.WriteHeader(http.StatusOK)
			}

			handler := withBody(tt.validate, nextFunc)

			req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatusCode)
			}

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}

			if tt.wantCalls > 0 && receivedValue != tt.wantValue {
				t.Errorf("value = %d, want %d", receivedValue, tt.wantValue)
			}

			if tt.wantBodyMatch != "" {
				body := w.Body.String()
				if !strings.Contains(body, tt.wantBodyMatch) {
					t.Errorf("body = %q, want to contain %q", body, tt.wantBodyMatch)
				}
			}
		})
	}
}

func TestWithActionPassesRequestContext(t *testing.T) {
	type ctxKey struct{}
	var gotBus string
	var gotValue any

	handler := withAction(func(ctx context.Context, busName string) error {
		gotBus = busName
		gotValue = ctx.Value(ctxKey{})
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /players/{player}/play", handler)

	req := httptest.NewRequest(http.MethodPost, "/players/org.mpris.MediaPlayer2.vlc/play", nil)
	req = req.WithContext(context.WithValue(req.Context(), ctxKey{}, "marker"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if gotBus != "org.mpris.MediaPlayer2.vlc" {
		t.Errorf("busName = %q", gotBus)
	}
	if gotValue != "marker" {
		t.Errorf("action did not receive the request context")
	}
}
