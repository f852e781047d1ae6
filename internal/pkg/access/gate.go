package access

import (
	"fmt"

	"github.com/ManuelReschke/OddsRaiders/internal/pkg/apperror"
	"github.com/ManuelReschke/OddsRaiders/internal/pkg/usercontext"
)

// AuthorizeSelf allows subscription-scoped operations only on the caller's own
// user id. A valid token for another user is still denied.
func AuthorizeSelf(caller usercontext.UserContext, targetUserID uint) error {
	if !caller.IsLoggedIn || caller.UserID == 0 {
		return apperror.Unauthorized("login required")
	}
	if targetUserID == 0 {
		return apperror.Validation("invalid user id", nil)
	}
	if caller.UserID != targetUserID {
		return apperror.Forbidden(fmt.Sprintf("user %d may not access subscriptions of user %d", caller.UserID, targetUserID))
	}
	return nil
}
