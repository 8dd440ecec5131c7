package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/adcatlas/curation-backend/pkg/config"
	"github.com/adcatlas/curation-backend/pkg/retry"
)

const (
	// CatalogCollection holds approved components and final records
	CatalogCollection = "catalog"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	return newClient(cfg, retry.DefaultConfig())
}

func newClient(cfg *config.TypesenseConfig, retryConfig retry.Config) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.DoWithLog(
		context.Background(),
		retryConfig,
		"Typesense",
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			ok, err := client.Health(ctx, 2*time.Second)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("typesense reports unhealthy")
			}
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Typesense connection attempt failed, retrying")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// CatalogSchema is the collection layout shared by components and records
func CatalogSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: CatalogCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "entity", Type: "string", Facet: pointer.True()},
			{Name: "kind", Type: "string", Facet: pointer.True()},
			{Name: "name", Type: "string"},
			{Name: "quality_grade", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "source_connector", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "target_symbol", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "attributes", Type: "string[]", Optional: pointer.True()},
			{Name: "evidence_count", Type: "int32", Optional: pointer.True()},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("updated_at"),
	}
}

// InitSchema ensures the catalog collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(CatalogCollection).Retrieve(ctx); err == nil {
		log.Debug().Str("collection", CatalogCollection).Msg("Typesense collection already exists")
		return nil
	}

	if _, err := c.client.Collections().Create(ctx, CatalogSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", CatalogCollection).Msg("Created Typesense collection")
	return nil
}

// UpsertDocument writes one catalog document
func (c *Client) UpsertDocument(ctx context.Context, document map[string]any) error {
	_, err := c.client.Collection(CatalogCollection).Documents().Upsert(ctx, document, &api.DocumentIndexParameters{})
	return err
}

// DeleteDocument removes one catalog document
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.client.Collection(CatalogCollection).Document(id).Delete(ctx)
	return err
}

// DropCatalog deletes the catalog collection; InitSchema recreates it
func (c *Client) DropCatalog(ctx context.Context) error {
	_, err := c.client.Collection(CatalogCollection).Delete(ctx)
	return err
}
