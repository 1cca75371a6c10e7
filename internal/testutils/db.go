package testutils

import (
	"context"
	"testing"

	"github.com/nfrund/amruno/internal/config"
	"github.com/nfrund/amruno/internal/database"
)

// OpenStores opens and migrates the stores selected by cfg and closes them
// when the test ends.
func OpenStores(t *testing.T, cfg *config.Config) *database.Stores {
	t.Helper()
	ctx := context.Background()
	stores, err := database.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open stores: %v", err)
	}
	t.Cleanup(func() { _ = stores.Close(context.Background()) })
	if err := stores.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return stores
}
