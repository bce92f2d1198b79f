package vectorstore

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// pointProperties describes the fixed payload schema shared by every
// knowledge-base class: job_id/chunk_index/content/... plus the serialized
// sparse and late-interaction representations the weaviate-go-client's
// WithVector only accepts as a single dense vector for.
var pointProperties = []*models.Property{
	{Name: "job_id", DataType: []string{"text"}},
	{Name: "chunk_index", DataType: []string{"int"}},
	{Name: "content", DataType: []string{"text"}},
	{Name: "content_preview", DataType: []string{"text"}},
	{Name: "sensitivity", DataType: []string{"text"}},
	{Name: "tags", DataType: []string{"text[]"}},
	{Name: "source", DataType: []string{"text"}},
	{Name: "source_id", DataType: []string{"text"}},
	{Name: "owner", DataType: []string{"text"}},
	{Name: "sparse_indices", DataType: []string{"int[]"}},
	{Name: "sparse_values", DataType: []string{"number[]"}},
	{Name: "late_interaction", DataType: []string{"text"}},
	{Name: "status", DataType: []string{"text"}},
	{Name: "type", DataType: []string{"text"}},
}

// EnsureCollectionTTL bounds how often ensure-collection re-checks existence
// (§4.4: "cached existence check with TTL of 5 minutes to avoid metadata
// round-trips").
const EnsureCollectionTTL = 5 * time.Minute

// ensureClass creates class with multi-tenancy enabled if it does not
// already exist with multi-tenancy enabled, following the teacher's
// ensureMTClass (BootstrapWeaviate) pattern: drop and recreate a
// non-multi-tenant class rather than silently operating single-tenant.
func ensureClass(ctx context.Context, cl *weaviate.Client, className string) error {
	existing, err := cl.Schema().ClassGetter().WithClassName(className).Do(ctx)
	if err == nil && existing != nil {
		if existing.MultiTenancyConfig != nil && existing.MultiTenancyConfig.Enabled {
			return nil
		}
		if err := cl.Schema().ClassDeleter().WithClassName(className).Do(ctx); err != nil {
			return fmt.Errorf("delete class %s: %w", className, err)
		}
	}

	desired := &models.Class{
		Class:              className,
		Vectorizer:         "none",
		Properties:         pointProperties,
		MultiTenancyConfig: &models.MultiTenancyConfig{Enabled: true},
	}
	if err := cl.Schema().ClassCreator().WithClass(desired).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", className, err)
	}
	return nil
}

// ensureTenant creates the tenant for className if it does not already
// exist, checking first to avoid the 409 Weaviate returns on duplicate
// tenant creation.
func ensureTenant(ctx context.Context, cl *weaviate.Client, className, tenant string) error {
	if tenant == "" {
		return nil
	}
	existing, err := cl.Schema().TenantsGetter().WithClassName(className).Do(ctx)
	if err == nil {
		for _, t := range existing {
			if t.Name == tenant {
				return nil
			}
		}
	}
	return cl.Schema().TenantsCreator().WithClassName(className).WithTenants(models.Tenant{Name: tenant}).Do(ctx)
}
