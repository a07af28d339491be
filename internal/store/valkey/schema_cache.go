package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/sqlshape/internal/parser"
)

const schemaKeyPrefix = "sqlshape:schema:"

// SchemaLoader loads the schema index of one database.
type SchemaLoader interface {
	LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error)
}

// SchemaCache keeps schema mappings in Valkey, keyed by
// sqlshape:schema:{db_id}, in front of a slower loader. Cache failures are
// logged and fall through to the loader.
type SchemaCache struct {
	client valkey.Client
	loader SchemaLoader
	ttl    time.Duration
	logger *slog.Logger
}

// NewSchemaCache wraps loader. A nil client or a zero ttl disables caching.
func NewSchemaCache(client valkey.Client, loader SchemaLoader, ttl time.Duration, logger *slog.Logger) *SchemaCache {
	return &SchemaCache{client: client, loader: loader, ttl: ttl, logger: logger}
}

func (c *SchemaCache) enabled() bool {
	return c.client != nil && c.ttl > 0
}

func (c *SchemaCache) LoadSchema(ctx context.Context, dbID string) (*parser.Schema, error) {
	if !c.enabled() {
		return c.loader.LoadSchema(ctx, dbID)
	}

	key := schemaKeyPrefix + dbID
	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		var mapping map[string][]string
		if err := json.Unmarshal(data, &mapping); err == nil {
			return parser.NewSchema(mapping), nil
		}
		c.logger.Warn("discarding corrupt cached schema", slog.String("db_id", dbID))
	case !valkey.IsValkeyNil(err):
		c.logger.Warn("schema cache read failed", slog.String("db_id", dbID), slog.String("error", err.Error()))
	}

	schema, err := c.loader.LoadSchema(ctx, dbID)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, key, schema); err != nil {
		c.logger.Warn("schema cache write failed", slog.String("db_id", dbID), slog.String("error", err.Error()))
	}
	return schema, nil
}

func (c *SchemaCache) store(ctx context.Context, key string, schema *parser.Schema) error {
	data, err := json.Marshal(schema.Mapping())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	resp := c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(c.ttl).Build())
	return resp.Error()
}

// Invalidate drops the cached schema of dbID.
func (c *SchemaCache) Invalidate(ctx context.Context, dbID string) error {
	if !c.enabled() {
		return nil
	}
	if err := c.client.Do(ctx, c.client.B().Del().Key(schemaKeyPrefix+dbID).Build()).Error(); err != nil {
		return fmt.Errorf("invalidate schema %s: %w", dbID, err)
	}
	return nil
}
