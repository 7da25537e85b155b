package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"archowum/internal/model"
	"archowum/internal/repository"
	"archowum/internal/service"
)

// Deps carries everything the seeder needs. Documents go through the real
// lifecycle path so stored files, collision handling and history behave exactly
// as they do for interactive uploads.
type Deps struct {
	Users    repository.UserRepository
	Catalog  service.CatalogService
	Docs     service.DocumentService
	Location *time.Location
}

type sampleProduct struct {
	name, productModel, description string
}

type sampleDocument struct {
	product, category string
	validityStart     string
	filename          string
}

var sampleProducts = []sampleProduct{
	{"OC komunikacyjne", "OC-STD", "Obowiązkowe ubezpieczenie odpowiedzialności cywilnej"},
	{"AC komunikacyjne", "AC-PLUS", "Dobrowolne ubezpieczenie autocasco"},
	{"Ubezpieczenie mieszkania", "DOM-24", "Ochrona mieszkania i ruchomości domowych"},
	{"Ubezpieczenie na życie", "ZYCIE-GOLD", "Terminowe ubezpieczenie na życie"},
}

var sampleCategories = []string{
	"Ogólne warunki ubezpieczenia",
	"Taryfa składek",
	"Wniosek o zawarcie umowy",
	"Aneks do umowy",
}

var sampleDocuments = []sampleDocument{
	{"OC komunikacyjne", "Ogólne warunki ubezpieczenia", "2026-01-01", "owu_oc_2026.pdf"},
	{"OC komunikacyjne", "Taryfa składek", "2026-01-01", "taryfa oc 2026.pdf"},
	{"AC komunikacyjne", "Ogólne warunki ubezpieczenia", "2026-01-01", "owu_ac_2026.pdf"},
	{"Ubezpieczenie mieszkania", "Wniosek o zawarcie umowy", "2026-03-15", "wniosek_dom24.pdf"},
	{"Ubezpieczenie na życie", "Aneks do umowy", "2026-06-01", "aneks_zycie_gold.pdf"},
}

// Run populates an empty database with a manager account, sample products,
// categories and documents. It is idempotent in the practical sense: duplicate
// rows are skipped, not treated as failures.
func Run(ctx context.Context, d Deps, managerUsername, managerPassword string) error {
	start := time.Now()

	manager, err := ensureManager(ctx, d, managerUsername, managerPassword)
	if err != nil {
		return fmt.Errorf("seed manager account: %w", err)
	}

	products := map[string]*model.Product{}
	for _, sp := range sampleProducts {
		p, err := d.Catalog.CreateProduct(ctx, &model.Product{
			Name:        sp.name,
			Model:       sp.productModel,
			Description: sp.description,
		})
		if err != nil {
			return fmt.Errorf("seed product %q: %w", sp.name, err)
		}
		products[sp.name] = p
	}

	categories := map[string]*model.Category{}
	for _, name := range sampleCategories {
		c, err := d.Catalog.CreateCategory(ctx, &model.Category{Name: name})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		categories[name] = c
	}

	var created int
	for _, sd := range sampleDocuments {
		validity, err := time.Parse(model.DateLayout, sd.validityStart)
		if err != nil {
			return fmt.Errorf("seed document %q: %w", sd.filename, err)
		}
		content := placeholderPDF(sd.filename)
		in := service.DocumentInput{
			ProductID:     products[sd.product].ID,
			CategoryID:    categories[sd.category].ID,
			ValidityStart: validity,
			File: &service.FileUpload{
				Reader:      bytes.NewReader(content),
				Filename:    sd.filename,
				Size:        int64(len(content)),
				ContentType: "application/pdf",
			},
		}
		if _, _, err := d.Docs.Create(ctx, in, manager); err != nil {
			if errors.Is(err, service.ErrDuplicateDocument) {
				continue
			}
			return fmt.Errorf("seed document %q: %w", sd.filename, err)
		}
		created++
	}

	logJSON(d.Location, map[string]any{
		"component":   "seed",
		"event":       "seed_complete",
		"status":      "success",
		"products":    len(products),
		"categories":  len(categories),
		"documents":   created,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func ensureManager(ctx context.Context, d Deps, username, password string) (*model.User, error) {
	if existing, err := d.Users.FindByUsername(ctx, username); err == nil {
		return existing, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return d.Users.Create(ctx, &model.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         model.RoleManager,
	})
}

// placeholderPDF produces a minimal single-page PDF body so seeded downloads
// open in a browser.
func placeholderPDF(title string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	b.WriteString("1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n")
	b.WriteString("2 0 obj << /Type /Pages /Kids [3 0 R] /Count 1 >> endobj\n")
	b.WriteString("3 0 obj << /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >> endobj\n")
	fmt.Fprintf(&b, "%% %s\n", title)
	b.WriteString("trailer << /Root 1 0 R >>\n%%EOF\n")
	return b.Bytes()
}

func logJSON(loc *time.Location, entry map[string]any) {
	entry["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := entry["level"]; !ok {
		entry["level"] = "info"
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
