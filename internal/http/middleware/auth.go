package middleware

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"archowum/internal/model"
)

const (
	// UserLocalKey is the key under which the authenticated account is stored in
	// Fiber's context locals.
	UserLocalKey = "current_user"

	sessionUserKey = "user_id"
)

// AccountResolver resolves a session's user ID to a full account. Satisfied by
// service.AccountService.
type AccountResolver interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// Authenticate loads the session's account into context locals. The account —
// including its role — is resolved exactly once per request here; downstream
// guards and handlers only read locals. A session pointing at a deleted account
// is destroyed and the request continues as anonymous.
func Authenticate(store *session.Store, accounts AccountResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return c.Next()
		}
		uid, ok := sess.Get(sessionUserKey).(int64)
		if !ok {
			return c.Next()
		}
		u, err := accounts.GetUser(c.UserContext(), uid)
		if err != nil {
			_ = sess.Destroy()
			return c.Next()
		}
		c.Locals(UserLocalKey, u)
		return c.Next()
	}
}

// UserFromCtx returns the authenticated account, or nil for anonymous requests.
func UserFromCtx(c *fiber.Ctx) *model.User {
	if u, ok := c.Locals(UserLocalKey).(*model.User); ok {
		return u
	}
	return nil
}

// redirectToLogin sends the request to the login form, carrying the originally
// requested URL in the next parameter. The value is query-escaped so a query
// string in the original URL cannot leak extra parameters.
func redirectToLogin(c *fiber.Ctx) error {
	return c.Redirect("/login/?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusSeeOther)
}

// RequireAuth redirects anonymous requests to the login page, preserving the
// originally requested path in the next parameter.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserFromCtx(c) == nil {
			return redirectToLogin(c)
		}
		return c.Next()
	}
}

// RequireManager rejects authenticated non-managers with 403 Forbidden —
// distinct from the anonymous redirect, which RequireAuth must handle first.
func RequireManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := UserFromCtx(c)
		if u == nil {
			return redirectToLogin(c)
		}
		if !u.IsManager() {
			return fiber.NewError(fiber.StatusForbidden, "manager role required")
		}
		return c.Next()
	}
}

// SignIn binds the session to the account.
func SignIn(c *fiber.Ctx, store *session.Store, userID int64) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	sess.Set(sessionUserKey, userID)
	return sess.Save()
}

// SignOut destroys the session.
func SignOut(c *fiber.Ctx, store *session.Store) error {
	sess, err := store.Get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
