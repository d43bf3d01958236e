package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/creditdesk/internal/ledger/domain"
	subscriptiondomain "github.com/smallbiznis/creditdesk/internal/subscription/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

type createUserRequest struct {
	Email              string           `json:"email" binding:"required,email"`
	FullName           string           `json:"full_name" binding:"required"`
	ExternalID         string           `json:"external_id"`
	InitialCredits     int64            `json:"initial_credits" binding:"gte=0"`
	SubscriptionStatus string           `json:"subscription_status"`
	PaymentAmount      *decimal.Decimal `json:"payment_amount"`
	PaymentMonth       string           `json:"payment_month"`
	ExpiresAt          string           `json:"expires_at"`
}

type updateUserRequest struct {
	FullName           *string `json:"full_name"`
	Email              *string `json:"email" binding:"omitempty,email"`
	SubscriptionStatus *string `json:"subscription_status"`
}

type activateUserRequest struct {
	InitialCredits int64            `json:"initial_credits" binding:"gte=0"`
	PaymentAmount  *decimal.Decimal `json:"payment_amount"`
	PaymentMonth   string           `json:"payment_month"`
	ExpiresAt      string           `json:"expires_at"`
}

type userCreditsResponse struct {
	Balance int64                    `json:"balance"`
	History []ledgerdomain.EntryView `json:"history"`
}

func (s *Server) ListUsers(c *gin.Context) {
	items, err := s.userSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetUser(c *gin.Context) {
	detail, err := s.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	expiresAt, err := parseOptionalTime(req.ExpiresAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("expires_at", "invalid_expires_at", "invalid expires_at"))
		return
	}

	detail, err := s.userSvc.Create(c.Request.Context(), userdomain.CreateUserRequest{
		AdminExternalID:    callerExternalID(c),
		ExternalID:         strings.TrimSpace(req.ExternalID),
		Email:              req.Email,
		FullName:           req.FullName,
		InitialCredits:     req.InitialCredits,
		SubscriptionStatus: req.SubscriptionStatus,
		PaymentAmount:      req.PaymentAmount,
		PaymentMonth:       strings.TrimSpace(req.PaymentMonth),
		ExpiresAt:          expiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": detail})
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	detail, err := s.userSvc.Update(c.Request.Context(), userdomain.UpdateUserRequest{
		ID:                 c.Param("id"),
		FullName:           req.FullName,
		Email:              req.Email,
		SubscriptionStatus: req.SubscriptionStatus,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

// ActivateUser accepts an empty body; every field is optional.
func (s *Server) ActivateUser(c *gin.Context) {
	userID, err := s.userSvc.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req activateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, bindError(err))
		return
	}

	expiresAt, err := parseOptionalTime(req.ExpiresAt, true)
	if err != nil {
		AbortWithError(c, newValidationError("expires_at", "invalid_expires_at", "invalid expires_at"))
		return
	}

	result, err := s.subscriptionSvc.Activate(c.Request.Context(), subscriptiondomain.ActivateRequest{
		UserID:          userID,
		AdminExternalID: callerExternalID(c),
		InitialCredits:  req.InitialCredits,
		PaymentAmount:   req.PaymentAmount,
		PaymentMonth:    strings.TrimSpace(req.PaymentMonth),
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetUserCredits(c *gin.Context) {
	detail, err := s.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": userCreditsResponse{
		Balance: detail.Balance,
		History: detail.Credits,
	}})
}

type adjustCreditRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note" binding:"max=500"`
}

func (s *Server) AdjustCredit(c *gin.Context) {
	var req adjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	resp, err := s.userSvc.AdjustCredit(c.Request.Context(), userdomain.AdjustCreditRequest{
		UserID:          c.Param("id"),
		AdminExternalID: callerExternalID(c),
		Delta:           req.Delta,
		Note:            strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) SyncUsers(c *gin.Context) {
	result, err := s.identitySvc.Sync(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
