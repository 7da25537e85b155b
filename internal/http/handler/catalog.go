package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"archowum/internal/model"
	"archowum/internal/service"
)

// ManagePage lists all products and categories for the management screen.
func ManagePage(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := catalog.ListProducts(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		categories, err := catalog.ListCategories(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"products": products, "categories": categories})
	}
}

// ProductFormData returns the current product when editing, or an empty form.
func ProductFormData(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params("id") == "" {
			return c.JSON(fiber.Map{"product": model.Product{}})
		}
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		p, err := catalog.GetProduct(c.UserContext(), id)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(fiber.Map{"product": p})
	}
}

// AddProduct creates a product.
func AddProduct(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := productForm{
			Name:        c.FormValue("name"),
			Model:       c.FormValue("model"),
			Description: c.FormValue("description"),
		}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}
		p, err := catalog.CreateProduct(c.UserContext(), &model.Product{
			Name:        form.Name,
			Model:       form.Model,
			Description: form.Description,
		})
		if err != nil {
			return catalogError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"product": p})
	}
}

// EditProduct overwrites a product's fields.
func EditProduct(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		form := productForm{
			Name:        c.FormValue("name"),
			Model:       c.FormValue("model"),
			Description: c.FormValue("description"),
		}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}
		p := &model.Product{
			ID:          id,
			Name:        form.Name,
			Model:       form.Model,
			Description: form.Description,
		}
		if err := catalog.UpdateProduct(c.UserContext(), p); err != nil {
			return catalogError(c, err)
		}
		return c.JSON(fiber.Map{"product": p})
	}
}

// DeleteProduct removes a product, its documents and their stored files.
func DeleteProduct(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		if err := catalog.DeleteProduct(c.UserContext(), id); err != nil {
			return catalogError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// CategoryFormData returns the current category when editing, or an empty form.
func CategoryFormData(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Params("id") == "" {
			return c.JSON(fiber.Map{"category": model.Category{}})
		}
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		cat, err := catalog.GetCategory(c.UserContext(), id)
		if err != nil {
			return catalogError(c, err)
		}
		return c.JSON(fiber.Map{"category": cat})
	}
}

// AddCategory creates a category.
func AddCategory(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form := categoryForm{Name: c.FormValue("name")}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}
		cat, err := catalog.CreateCategory(c.UserContext(), &model.Category{Name: form.Name})
		if err != nil {
			return catalogError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"category": cat})
	}
}

// EditCategory renames a category.
func EditCategory(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		form := categoryForm{Name: c.FormValue("name")}
		if err := form.Validate(); err != nil {
			return writeValidationError(c, validationFields(err))
		}
		cat := &model.Category{ID: id, Name: form.Name}
		if err := catalog.UpdateCategory(c.UserContext(), cat); err != nil {
			return catalogError(c, err)
		}
		return c.JSON(fiber.Map{"category": cat})
	}
}

// DeleteCategory removes a category, its documents and their stored files.
func DeleteCategory(catalog service.CatalogService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return invalidID(c)
		}
		if err := catalog.DeleteCategory(c.UserContext(), id); err != nil {
			return catalogError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func catalogError(c *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
