package model

import "fmt"

// Product is an insurance product. Model is the short tariff code that
// distinguishes variants sharing a name.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Model       string `json:"model"`
	Description string `json:"description,omitempty"`
}

// String renders the product for history rows and form option labels.
func (p Product) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Model)
}

// Category is a document category.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (c Category) String() string {
	return c.Name
}
