package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

type recordPaymentRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	AmountTnd decimal.Decimal `json:"amount_tnd"`
	Month     string          `json:"month" binding:"required"`
	Note      string          `json:"note" binding:"max=500"`
	PaidAt    string          `json:"paid_at"`
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	paidAt, err := parseOptionalTime(req.PaidAt, false)
	if err != nil {
		AbortWithError(c, newValidationError("paid_at", "invalid_paid_at", "invalid paid_at"))
		return
	}

	payment, err := s.userSvc.RecordPayment(c.Request.Context(), userdomain.RecordPaymentRequest{
		UserID:          strings.TrimSpace(req.UserID),
		AdminExternalID: callerExternalID(c),
		AmountTnd:       req.AmountTnd,
		Month:           strings.TrimSpace(req.Month),
		Note:            strings.TrimSpace(req.Note),
		PaidAt:          paidAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment})
}

func (s *Server) ListPayments(c *gin.Context) {
	resp, err := s.overviewSvc.Payments(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
