package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/creditdesk/internal/providers/pdf"
	"go.uber.org/zap"
)

const contentTypePDF = "application/pdf"

func (s *Server) GetUserStatement(c *gin.Context) {
	s.writeStatement(c, c.Param("id"))
}

// writeStatement renders the account statement of userID as a PDF download.
func (s *Server) writeStatement(c *gin.Context, userID string) {
	ctx := c.Request.Context()
	detail, err := s.userSvc.Get(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.pdf.GenerateStatement(ctx, pdf.StatementFromDetail(detail, s.clock.Now()))
	if err != nil {
		s.log.Error("statement rendering failed", zap.String("user_id", detail.User.ID.String()), zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	filename := pdf.StatementFilename(detail.User.FullName, detail.User.ExternalID)
	c.DataFromReader(http.StatusOK, -1, contentTypePDF, doc, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
	})
}
