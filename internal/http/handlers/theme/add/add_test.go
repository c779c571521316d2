package add

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/discussion-matchmaker/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Add(ctx context.Context, theme models.Theme) error {
	return m.Called(ctx, theme).Error(0)
}

func TestAddHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		body           string
		setupMock      func(*ServiceMock)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "theme added",
			body: `{"id":"t1","content":"Should cities ban cars?"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Add", mock.Anything, models.Theme{ID: "t1", Content: "Should cities ban cars?"}).Return(nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"message":"theme added"}`,
		},
		{
			name:           "missing content",
			body:           `{"id":"t1"}`,
			setupMock:      func(_ *ServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"field Content is a required field"}`,
		},
		{
			name:           "invalid json",
			body:           `nope`,
			setupMock:      func(_ *ServiceMock) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "storage error",
			body: `{"id":"t1","content":"x"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Add", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to add theme"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)
			handler := New(logger, svc)

			req := httptest.NewRequest(http.MethodPost, "/add_theme", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
