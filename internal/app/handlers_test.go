package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	a := &App{}
	router := gin.New()
	router.POST("/api/check", a.CheckRuleHandler)
	return router
}

func postCheck(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckRuleHandler(t *testing.T) {
	router := checkRouter()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			"available",
			`{"rule":"every fri time: 8:00 AM-5:00 PM","at":"2014-01-10T15:00:00Z"}`,
			http.StatusOK,
			`"available":true`,
		},
		{
			"not available",
			`{"rule":"every weekend","at":"2014-01-10T15:00:00Z"}`,
			http.StatusOK,
			`"available":false`,
		},
		{
			"unconstrained rule",
			`{"rule":"anytime works","at":"2014-01-10T15:00:00Z"}`,
			http.StatusOK,
			`"available":true`,
		},
		{
			"malformed time clause",
			`{"rule":"every day time: 8:00 AM-15:00 PM","at":"2014-01-10T15:00:00Z"}`,
			http.StatusUnprocessableEntity,
			`"error"`,
		},
		{
			"bad instant",
			`{"rule":"every fri","at":"not-a-time"}`,
			http.StatusBadRequest,
			`"error"`,
		},
		{
			"missing rule",
			`{"at":"2014-01-10T15:00:00Z"}`,
			http.StatusBadRequest,
			`"error"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCheck(t, router, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestValidateRule(t *testing.T) {
	require.NoError(t, validateRule("every fri time: 8:00 AM-5:00 PM"))
	require.NoError(t, validateRule("date: 1/1/2014-15/1/2014"))
	require.NoError(t, validateRule("no clauses at all"))

	// validateRule drives each matcher directly, so a malformed clause is
	// caught even behind a period clause that would short-circuit.
	require.Error(t, validateRule("every sat time: 8:00 AM-15:00 PM"))
	require.Error(t, validateRule("date: 32/1/2014"))
}
