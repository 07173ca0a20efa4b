package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/stockpile/internal/client/client"
	"github.com/dmitrijs2005/stockpile/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

type credentialsFunc func(ctx context.Context, email string, password []byte) error

func (a *App) withCredentials(ctx context.Context, call credentialsFunc) (string, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(password)

	return email, call(ctx, email, password)
}

// report prints a user-facing line for err and returns it unchanged.
func (a *App) report(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable, try again later")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(a.out, "Unauthorized")
	case errors.Is(err, client.ErrAlreadyExists):
		fmt.Fprintln(a.out, "This email is already registered")
	case errors.Is(err, client.ErrNotSignedIn):
		fmt.Fprintln(a.out, "Not signed in")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}

	if !a.client.IsSignedIn() {
		a.setEmail("")
	}
	return err
}

// SignUp creates an account and signs in with it.
func (a *App) SignUp(ctx context.Context) error {
	email, err := a.withCredentials(ctx, a.client.SignUp)
	if err != nil {
		return a.report(err)
	}

	a.setEmail(common.NormalizeEmail(email))
	fmt.Fprintln(a.out, "Success!")
	return nil
}

func (a *App) SignIn(ctx context.Context) error {
	email, err := a.withCredentials(ctx, a.client.SignIn)
	if err != nil {
		return a.report(err)
	}

	a.setEmail(common.NormalizeEmail(email))
	fmt.Fprintln(a.out, "Signed in")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	me, err := a.client.WhoAmI(ctx)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "user #%d %s\nsession %s\nregistered %s\n",
		me.UserID, me.Email, me.SessionID, me.CreatedAt.Format(time.RFC3339))
	return nil
}

// Refresh rotates the token pair of the current session.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.client.Refresh(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Tokens refreshed")
	return nil
}

// SignOut revokes the current session on the server.
func (a *App) SignOut(ctx context.Context) error {
	if err := a.client.SignOut(ctx); err != nil {
		return a.report(err)
	}
	a.setEmail("")
	fmt.Fprintln(a.out, "Signed out")
	return nil
}
