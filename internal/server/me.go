package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	overviewdomain "github.com/smallbiznis/creditdesk/internal/overview/domain"
	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

func (s *Server) GetMe(c *gin.Context) {
	resp, err := s.overviewSvc.Dashboard(c.Request.Context(), callerExternalID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMyHistory(c *gin.Context) {
	resp, err := s.overviewSvc.History(c.Request.Context(), callerExternalID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMyStatement(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.userSvc.GetByExternalID(ctx, callerExternalID(c))
	if err != nil {
		if errors.Is(err, userdomain.ErrNotFound) || errors.Is(err, userdomain.ErrInvalidExternalID) {
			err = overviewdomain.ErrNotProvisioned
		}
		AbortWithError(c, err)
		return
	}

	s.writeStatement(c, user.ID.String())
}
