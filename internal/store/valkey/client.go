package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/sqlshape/internal/config"
)

const (
	clientName  = "sqlshape"
	pingTimeout = 3 * time.Second
)

// clientOptions maps config onto valkey-go options. Server-assisted client
// caching stays off: cached schemas are whole JSON blobs read once per miss.
func clientOptions(cfg config.ValkeyConfig) valkey.ClientOption {
	return valkey.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
	}
}

// NewClient connects to Valkey and checks the connection before returning.
// The schema cache is optional, so callers treat an error as "run uncached".
func NewClient(ctx context.Context, cfg config.ValkeyConfig) (valkey.Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("valkey: no address configured")
	}
	client, err := valkey.NewClient(clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("valkey %s: connect: %w", cfg.Addr, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey %s: ping: %w", cfg.Addr, err)
	}
	return client, nil
}
