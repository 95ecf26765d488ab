package httpapi

import (
	"EventRelay/internal/core/domain"
	"EventRelay/internal/shared/mpsc"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) Append(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockJournal) ListBySubject(ctx context.Context, subject string) ([]domain.Event, error) {
	args := m.Called(ctx, subject)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Event), args.Error(1)
}

// --- Helpers ---

func newTestServer(t *testing.T, opts ...Option) (http.Handler, *mpsc.Receiver[domain.Event]) {
	t.Helper()
	nopLogger := zerolog.Nop()
	tx, rx := mpsc.New[domain.Event]()
	s := NewServer(tx, &nopLogger, opts...)
	t.Cleanup(s.Close)
	return s.Routes(), rx
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestPublish_Accepted(t *testing.T) {
	h, rx := newTestServer(t)

	rec := do(h, http.MethodPost, "/events", `{"kind":"user.registered","subject":"u1","payload":"hello"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp publishResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	evt, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, resp.ID, evt.ID.String())
	assert.Equal(t, domain.KindUserRegistered, evt.Kind)
	assert.Equal(t, "u1", evt.Subject)
	assert.Equal(t, "hello", evt.Payload)
	assert.False(t, evt.OccurredAt.IsZero())
}

func TestPublish_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"kind":`, http.StatusBadRequest},
		{"unknown field", `{"kind":"user.registered","subject":"u1","id":"x"}`, http.StatusBadRequest},
		{"unknown kind", `{"kind":"user.deleted","subject":"u1"}`, http.StatusBadRequest},
		{"missing subject", `{"kind":"verification.approved"}`, http.StatusBadRequest},
		{"reserved kind", `{"kind":"system.shutdown"}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rx := newTestServer(t)
			rec := do(h, http.MethodPost, "/events", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Zero(t, rx.Len(), "nothing may reach the bus")
		})
	}
}

func TestPublish_BusClosed(t *testing.T) {
	h, rx := newTestServer(t)
	rx.Close()

	rec := do(h, http.MethodPost, "/events", `{"kind":"user.registered","subject":"u1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListBySubject(t *testing.T) {
	journal := new(MockJournal)
	h, _ := newTestServer(t, WithJournal(journal))

	evt := domain.NewEvent(domain.KindVerificationApproved, "u1", "")
	journal.On("ListBySubject", mock.Anything, "u1").Return([]domain.Event{evt}, nil).Once()
	journal.On("ListBySubject", mock.Anything, "u2").Return(nil, nil).Once()
	journal.On("ListBySubject", mock.Anything, "u3").Return(nil, errors.New("db down")).Once()

	rec := do(h, http.MethodGet, "/subjects/u1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, evt.ID, got[0].ID)

	rec = do(h, http.MethodGet, "/subjects/u2/events", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(h, http.MethodGet, "/subjects/u3/events", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	journal.AssertExpectations(t)
}

func TestListBySubject_DisabledWithoutJournal(t *testing.T) {
	h, _ := newTestServer(t)
	rec := do(h, http.MethodGet, "/subjects/u1/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "eventrelay_test_total",
		Help: "Test counter.",
	}).Inc()

	h, _ := newTestServer(t, WithGatherer(reg))
	rec := do(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "eventrelay_test_total 1")
}
