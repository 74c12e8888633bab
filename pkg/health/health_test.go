package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(name string) Checker {
	return NewCheckFunc(name, func(ctx context.Context) error { return nil })
}

func failing(name string) Checker {
	return NewCheckFunc(name, func(ctx context.Context) error { return errors.New(name + " down") })
}

func TestCheckerRegistry_Status(t *testing.T) {
	tests := []struct {
		name     string
		critical []Checker
		optional []Checker
		want     Status
	}{
		{"all healthy", []Checker{ok("mongodb"), ok("redis")}, nil, StatusHealthy},
		{"optional failing", []Checker{ok("mongodb")}, []Checker{failing("kafka")}, StatusDegraded},
		{"critical failing", []Checker{failing("mongodb")}, []Checker{failing("kafka")}, StatusUnhealthy},
		{"nothing registered", nil, nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewCheckerRegistry()
			for _, c := range tt.critical {
				r.Register(c)
			}
			for _, c := range tt.optional {
				r.RegisterOptional(c)
			}
			h := r.Check(context.Background())
			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, len(tt.critical)+len(tt.optional))
		})
	}
}

func TestCheckerRegistry_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewCheckerRegistry()
	r.Register(failing("mongodb"))
	router := gin.New()
	router.GET("/health", r.Handler())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var h Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	assert.Equal(t, "mongodb down", h.Checks["mongodb"].Message)
}

func TestKafkaChecker_NoBrokers(t *testing.T) {
	err := NewKafkaChecker(nil).Check(context.Background())
	assert.ErrorContains(t, err, "no kafka brokers")
}
