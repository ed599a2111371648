package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crawdwall/capital-review-api/internal/middleware"
	"github.com/crawdwall/capital-review-api/internal/models"
	"github.com/crawdwall/capital-review-api/pkg/response"
)

func TestInvestorHandlerOpportunitiesUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewInvestorHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/investor/opportunities", nil)
	c.Request = req

	h.Opportunities(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvestorHandlerInvestInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewInvestorHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/investor/investments", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-9", Role: models.RoleInvestor})

	h.Invest(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}
