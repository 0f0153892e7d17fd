package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog products from a YAML file",
	Long: `Create the products listed in a YAML file, owned by an existing admin account.

Example file:

  products:
    - name: Trail Runner
      description: Lightweight running shoe
      price: "89.90"
      stock: 25
      category: shoes
      image_url: https://cdn.example.com/trail-runner.png`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("file", "products.yaml", "path to the products YAML file")
	seedCmd.Flags().String("owner", "", "email of the admin account that will own the products")
	_ = seedCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	ownerEmail, _ := cmd.Flags().GetString("owner")

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	requests, err := parseSeedProducts(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	db, err := openDatabaseFromEnv()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	owner, err := repository.NewUserRepository(db).FindByCanonicalEmail(ctx, service.CanonicalizeEmail(ownerEmail))
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("no account registered with email %q", ownerEmail)
	}
	if owner.Role != entity.RoleAdmin {
		return fmt.Errorf("account %q is not an admin", ownerEmail)
	}

	catalogService := service.NewCatalogService(repository.NewProductRepository(db), nil)
	for i, req := range requests {
		product, err := catalogService.Create(ctx, owner.ID, req)
		if err != nil {
			return fmt.Errorf("product #%d (%s): %w", i+1, req.Name, err)
		}
		logrus.WithFields(logrus.Fields{
			"product_id": product.ID,
			"name":       product.Name,
		}).Info("Product seeded")
	}

	fmt.Printf("seeded %d product(s) for %s\n", len(requests), owner.Email)
	return nil
}

// parseSeedProducts decodes and validates every product before anything is
// written, so a bad entry leaves the catalog untouched.
func parseSeedProducts(r io.Reader) ([]*types.ProductRequest, error) {
	var file seedFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("no products found")
		}
		return nil, err
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("no products found")
	}

	requests := make([]*types.ProductRequest, 0, len(file.Products))
	for i, p := range file.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("product #%d: invalid price %q", i+1, p.Price)
		}

		stock := p.Stock
		req := &types.ProductRequest{
			Name:        p.Name,
			Description: p.Description,
			Price:       price,
			Stock:       &stock,
			Category:    p.Category,
			ImageURL:    p.ImageURL,
		}
		if err = req.Validate(); err != nil {
			return nil, fmt.Errorf("product #%d: %w", i+1, err)
		}
		requests = append(requests, req)
	}
	return requests, nil
}
