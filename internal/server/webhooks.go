package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/creditdesk/internal/audit/domain"
	obscontext "github.com/smallbiznis/creditdesk/internal/observability/context"
)

// maxWebhookBody bounds directory payloads; user events are a few KB.
const maxWebhookBody = 1 << 20

// HandleDirectoryWebhook applies a signed directory event. The signature is the
// only credential; no session is read.
func (s *Server) HandleDirectoryWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.webhooks.Verify(c.Request.Header, payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := obscontext.WithActor(c.Request.Context(), string(auditdomain.ActorTypeDirectory), "")
	if err := s.identitySvc.HandleEvent(ctx, event); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
