package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/services"
)

func (a *App) Register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.facade.Register(ctx, services.RegisterRequest{
		Username: username,
		Email:    email,
		Password: string(password),
	})
	if err != nil {
		return err
	}

	a.println(fmt.Sprintf("Registered %s (id %d). You can log in now.", u.Username, u.ID))
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.facade.Login(ctx, services.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		return err
	}

	if a.isLoggedIn() {
		if err := a.facade.Logout(ctx, a.token); err != nil {
			a.println("warning: previous session was not closed:", describe(err))
		}
	}
	a.token = res.Token
	a.user = &res.User
	a.println(fmt.Sprintf("Welcome, %s. Session valid until %s.", res.User.Username, res.ExpiresAt.Local().Format("2006-01-02 15:04")))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	// On failure the session is still live, keep it so logout can be retried.
	if err := a.facade.Logout(ctx, a.token); err != nil {
		return err
	}
	a.token = ""
	a.user = nil
	a.println("Logged out")
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	u, err := a.facade.CurrentUser(ctx, a.token)
	if err != nil {
		a.dropSessionOn(err)
		return err
	}
	a.println(fmt.Sprintf("%s <%s> (id %d)", u.Username, u.Email, u.ID))
	return nil
}

func (a *App) Purge(ctx context.Context) error {
	n, err := a.facade.PurgeExpiredSessions(ctx)
	if err != nil {
		return err
	}
	a.println(fmt.Sprintf("Removed %d expired session(s)", n))
	return nil
}

// dropSessionOn forgets the local token once the server says it is no longer
// valid.
func (a *App) dropSessionOn(err error) {
	if errors.Is(err, common.ErrInvalidSession) {
		a.token = ""
		a.user = nil
	}
}
