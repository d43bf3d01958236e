// Package authorization decides whether a signed-in caller may perform an action.
// Callers are either admins, who may do everything, or users, who may only view
// their own account.
package authorization

import (
	"errors"
	"fmt"
	"strings"

	userdomain "github.com/smallbiznis/creditdesk/internal/user/domain"
)

const (
	ObjectUser         = "user"
	ObjectSubscription = "subscription"
	ObjectCredit       = "credit"
	ObjectPayment      = "payment"
	ObjectDirectory    = "directory"
	ObjectOverview     = "overview"
	ObjectAuditLog     = "audit_log"
	ObjectStatement    = "statement"
	ObjectSelf         = "self"
)

const (
	ActionView     = "view"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionActivate = "activate"
	ActionAdjust   = "adjust"
	ActionSync     = "sync"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidActor = errors.New("invalid_actor")
)

func roleSubject(role userdomain.Role) string {
	return fmt.Sprintf("role:%s", strings.ToLower(string(role)))
}
