package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"archowum/internal/http/middleware"
	"archowum/internal/service"
)

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app. Handlers
// stay free of role checks: the session account is resolved once by the
// Authenticate middleware and the auth/manager guards act on it.
func RegisterRoutes(
	app *fiber.App,
	db *sql.DB,
	store *session.Store,
	accounts service.AccountService,
	docs service.DocumentService,
	catalog service.CatalogService,
) {
	app.Use(middleware.Authenticate(store, accounts))

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/register/", RegisterForm())
	app.Post("/register/", Register(accounts, store))
	app.Get("/login/", LoginForm())
	app.Post("/login/", Login(accounts, store))
	app.Get("/logout/", Logout(store))

	auth := middleware.RequireAuth()
	manager := middleware.RequireManager()

	app.Get("/", auth, MainPage(docs))
	app.Get("/download/:id", auth, DownloadDocument(docs))

	app.Get("/manage/", manager, ManagePage(catalog))

	app.Get("/product/add", manager, ProductFormData(catalog))
	app.Post("/product/add", manager, AddProduct(catalog))
	app.Get("/product/edit/:id", manager, ProductFormData(catalog))
	app.Post("/product/edit/:id", manager, EditProduct(catalog))
	app.Post("/product/delete/:id", manager, DeleteProduct(catalog))

	app.Get("/category/add", manager, CategoryFormData(catalog))
	app.Post("/category/add", manager, AddCategory(catalog))
	app.Get("/category/edit/:id", manager, CategoryFormData(catalog))
	app.Post("/category/edit/:id", manager, EditCategory(catalog))
	app.Post("/category/delete/:id", manager, DeleteCategory(catalog))

	// The static /document/add segment must register before the :id routes.
	app.Get("/document/add", manager, DocumentFormData(docs, catalog))
	app.Post("/document/add", manager, AddDocument(docs))
	app.Get("/document/edit/:id", manager, DocumentFormData(docs, catalog))
	app.Post("/document/edit/:id", manager, EditDocument(docs))
	app.Post("/document/delete/:id", manager, DeleteDocument(docs))
	app.Get("/document/:id", auth, DocumentDetail(docs))
}
