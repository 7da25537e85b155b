package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"archowum/internal/http/middleware"
	"archowum/internal/service"
)

// RegisterForm redirects already-authenticated users away from registration.
func RegisterForm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.UserFromCtx(c) != nil {
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.JSON(fiber.Map{"form": "register"})
	}
}

// Register creates an account, signs it in and redirects to the main page.
func Register(accounts service.AccountService, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := credentialsForm{
			Username:  c.FormValue("username"),
			Password:  c.FormValue("password"),
			Password2: c.FormValue("password2"),
		}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}
		if form.Password != form.Password2 {
			return writeValidationError(c, map[string]any{"password2": "Hasła nie są zgodne."})
		}

		u, err := accounts.Register(c.UserContext(), form.Username, form.Password)
		if err != nil {
			if errors.Is(err, service.ErrUsernameTaken) {
				return writeValidationError(c, map[string]any{"username": "Ta nazwa użytkownika jest już zajęta."})
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if err := middleware.SignIn(c, store, u.ID); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}
}

// LoginForm redirects already-authenticated users to the main page.
func LoginForm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.UserFromCtx(c) != nil {
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		return c.JSON(fiber.Map{"form": "login", "next": c.Query("next", "/")})
	}
}

// Login checks credentials, binds the session and redirects to the originally
// requested path carried in the next parameter.
func Login(accounts service.AccountService, store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := credentialsForm{
			Username: c.FormValue("username"),
			Password: c.FormValue("password"),
		}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}

		u, err := accounts.Authenticate(c.UserContext(), form.Username, form.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				return writeValidationError(c, map[string]any{"username": "Nieprawidłowa nazwa użytkownika lub hasło."})
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		if err := middleware.SignIn(c, store, u.ID); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Redirect(c.Query("next", "/"), fiber.StatusSeeOther)
	}
}

// Logout destroys the session and redirects to the main page.
func Logout(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := middleware.SignOut(c, store); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}
}
