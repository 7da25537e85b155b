package handler

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"archowum/internal/model"
)

// Submitted form values arrive as strings and are validated before conversion.
// Validation failures surface as field-keyed inline errors, not exceptions.

type documentForm struct {
	Product       string `form:"product" json:"product"`
	Category      string `form:"category" json:"category"`
	ValidityStart string `form:"validity_start" json:"validity_start"`
}

func (f documentForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Product, validation.Required, is.Digit),
		validation.Field(&f.Category, validation.Required, is.Digit),
		validation.Field(&f.ValidityStart, validation.Required, validation.Date(model.DateLayout)),
	)
}

type productForm struct {
	Name        string `form:"name" json:"name"`
	Model       string `form:"model" json:"model"`
	Description string `form:"description" json:"description"`
}

func (f productForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&f.Model, validation.Required, validation.RuneLength(1, 30)),
	)
}

type categoryForm struct {
	Name string `form:"name" json:"name"`
}

func (f categoryForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required, validation.RuneLength(1, 100)),
	)
}

type credentialsForm struct {
	Username  string `form:"username" json:"username"`
	Password  string `form:"password" json:"password"`
	Password2 string `form:"password2" json:"password2"`
}

func (f credentialsForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required, validation.RuneLength(1, 36)),
		validation.Field(&f.Password, validation.Required),
	)
}

// validationFields flattens an ozzo validation.Errors into the error envelope's
// field map.
func validationFields(err error) map[string]any {
	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for name, ferr := range verrs {
			fields[name] = ferr.Error()
		}
		return fields
	}
	fields["__all__"] = err.Error()
	return fields
}
