// Package vectorstore implements the Vector Store Adapter (§4.4): per-tenant
// collection lifecycle, multi-vector point upsert, and search, over
// Weaviate's multi-tenancy model. Grounded on the teacher's
// internal/searchindex/waviate_native.go adapter, generalized from a fixed
// memory-entry schema to the spec's job/knowledge-base collections.
package vectorstore

import "strings"

// CollectionName renders the class name for a tenant's per-purpose
// collection, normalizing the owner string in one place per the
// multi-tenant naming design note (§9): replace characters illegal in
// Weaviate class names ('@', '.', '-') with underscores, then title the
// first letter since Weaviate requires class names start uppercase.
func CollectionName(owner, purpose string) string {
	normalized := normalize(owner)
	name := normalized + "_" + purpose
	return capitalize(name)
}

// KnowledgeBaseClass returns the "{owner}_knowledge_base" collection that
// holds embedded points (§6 persisted state layout).
func KnowledgeBaseClass(owner string) string {
	return CollectionName(owner, "knowledge_base")
}

// SourceInventoryClass returns the "{owner}{source}_knowledge" collection
// that holds the ingest-pending inventory for one source.
func SourceInventoryClass(owner, source string) string {
	return capitalize(normalize(owner) + normalize(source) + "_knowledge")
}

func normalize(s string) string {
	r := strings.NewReplacer("@", "_", ".", "_", "-", "_", " ", "_")
	return r.Replace(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
