package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/ipdata"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// MockProcessor is a mock implementation of the processor interface for testing
type MockProcessor struct {
	prefixes map[string][]string
	err      error
	lastCtx  context.Context
}

func (m *MockProcessor) GetPrefixes(ctx context.Context, provider string) ([]prefix.Prefix, error) {
	m.lastCtx = ctx
	if m.err != nil {
		return nil, m.err
	}
	raw, ok := m.prefixes[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ipdata.ErrUnknownProvider, provider)
	}
	out := make([]prefix.Prefix, 0, len(raw))
	for _, s := range raw {
		p, err := prefix.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func newMockProcessor() *MockProcessor {
	return &MockProcessor{prefixes: map[string][]string{
		"amazon": {"3.5.140.0/22", "2600:1f14:fff:f800::/56", "52.94.76.0/22"},
		"google": {},
	}}
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(h.getPrefixListHandler).ServeHTTP(rr, req)
	return rr
}

func TestNewHandler(t *testing.T) {
	mockProc := newMockProcessor()
	cfg := &config.Config{AuthToken: "test-token"}

	h := NewHandler(mockProc, cfg)

	if h == nil {
		t.Fatal("NewHandler returned nil")
	}
	if h.processor == nil {
		t.Error("Handler processor is nil")
	}
	if h.config.AuthToken != "test-token" {
		t.Errorf("Handler config AuthToken = %q, want %q", h.config.AuthToken, "test-token")
	}
}

func TestRegisterRoutes(t *testing.T) {
	oldMux := http.DefaultServeMux
	http.DefaultServeMux = http.NewServeMux()
	t.Cleanup(func() { http.DefaultServeMux = oldMux })

	h := NewHandler(newMockProcessor(), &config.Config{})
	h.RegisterRoutes()

	req := httptest.NewRequest(http.MethodGet, "/get?provider=amazon&family=4", nil)
	rr := httptest.NewRecorder()
	http.DefaultServeMux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "3.5.140.0/22\n52.94.76.0/22\n" {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestGetPrefixListHandler(t *testing.T) {
	testCases := []struct {
		name           string
		method         string
		target         string
		authToken      string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all families in feed order",
			method:         http.MethodGet,
			target:         "/get?provider=amazon",
			expectedStatus: http.StatusOK,
			expectedBody:   "3.5.140.0/22\n2600:1f14:fff:f800:0:0:0:0/56\n52.94.76.0/22\n",
		},
		{
			name:           "ipv6 only",
			method:         http.MethodGet,
			target:         "/get?provider=amazon&family=6",
			expectedStatus: http.StatusOK,
			expectedBody:   "2600:1f14:fff:f800:0:0:0:0/56\n",
		},
		{
			name:           "empty provider list",
			method:         http.MethodGet,
			target:         "/get?provider=google",
			expectedStatus: http.StatusOK,
			expectedBody:   "",
		},
		{
			name:           "valid auth token",
			method:         http.MethodGet,
			target:         "/get?provider=amazon&family=4&auth=test-token",
			authToken:      "test-token",
			expectedStatus: http.StatusOK,
			expectedBody:   "3.5.140.0/22\n52.94.76.0/22\n",
		},
		{
			name:           "invalid auth token",
			method:         http.MethodGet,
			target:         "/get?provider=amazon&auth=wrong-token",
			authToken:      "test-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing auth token",
			method:         http.MethodGet,
			target:         "/get?provider=amazon",
			authToken:      "test-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing provider",
			method:         http.MethodGet,
			target:         "/get",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown provider",
			method:         http.MethodGet,
			target:         "/get?provider=azure",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid family",
			method:         http.MethodGet,
			target:         "/get?provider=amazon&family=5",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong method",
			method:         http.MethodPost,
			target:         "/get?provider=amazon",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHandler(newMockProcessor(), &config.Config{AuthToken: tc.authToken})

			rr := serve(h, tc.method, tc.target)

			if rr.Code != tc.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v (body %q)", rr.Code, tc.expectedStatus, rr.Body.String())
			}
			if tc.expectedStatus == http.StatusOK {
				if rr.Body.String() != tc.expectedBody {
					t.Errorf("handler returned unexpected body: got %q want %q", rr.Body.String(), tc.expectedBody)
				}
				if ct := rr.Header().Get("Content-Type"); ct != "text/plain" {
					t.Errorf("handler returned wrong content type: got %v want %v", ct, "text/plain")
				}
			}
		})
	}
}

func TestGetPrefixListHandlerUnknownProviderListsProviders(t *testing.T) {
	h := NewHandler(newMockProcessor(), &config.Config{})

	rr := serve(h, http.MethodGet, "/get?provider=azure")

	if !strings.Contains(rr.Body.String(), "amazon, google") {
		t.Errorf("expected provider list in body, got %q", rr.Body.String())
	}
}

func TestGetPrefixListHandlerProcessorError(t *testing.T) {
	mockProc := &MockProcessor{err: errors.New("feed unavailable")}
	h := NewHandler(mockProc, &config.Config{})

	rr := serve(h, http.MethodGet, "/get?provider=amazon")

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rr.Body.String(), "feed unavailable") {
		t.Errorf("expected error message in response body, got %q", rr.Body.String())
	}
	if mockProc.lastCtx == nil {
		t.Error("expected the request context to be passed to the processor")
	}
}
