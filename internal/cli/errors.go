package cli

import (
	"errors"

	"github.com/dmitrijs2005/modhub/internal/common"
)

var (
	errNotLoggedIn = errors.New("not logged in")
	errUsage       = errors.New("usage")
)

// describe turns a facade error into a line for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrAuthenticationFailed):
		return "wrong email or password"
	case errors.Is(err, common.ErrInvalidSession):
		return "your session has expired, please log in again"
	case errors.Is(err, common.ErrForbidden):
		return "only the author can do that"
	case common.IsRetryable(err):
		return "the catalog is temporarily unavailable, try again later"
	default:
		return err.Error()
	}
}
