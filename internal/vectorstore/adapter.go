package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/pipeworks/taskmesh/internal/model"
)

// Adapter is the Vector Store Adapter (§4.4), a singleton client per
// process with internal connection reuse and a cached existence check for
// collection creation, matching the teacher's per-process Weaviate client
// pattern.
type Adapter struct {
	client *weaviate.Client

	mu        sync.Mutex
	ensuredAt map[string]time.Time
}

// New constructs an Adapter against a Weaviate instance at baseURL
// (host:port, no scheme).
func New(baseURL string) (*Adapter, error) {
	cl, err := weaviate.NewClient(weaviate.Config{Scheme: "http", Host: baseURL})
	if err != nil {
		return nil, fmt.Errorf("vectorstore client: %w", err)
	}
	return &Adapter{client: cl, ensuredAt: make(map[string]time.Time)}, nil
}

// EnsureCollection creates className with multi-tenancy enabled (if absent)
// and the tenant for owner, memoizing success for EnsureCollectionTTL so
// repeated upserts for the same owner don't round-trip to the schema API
// every call.
func (a *Adapter) EnsureCollection(ctx context.Context, className, owner string) error {
	cacheKey := className + "/" + owner
	a.mu.Lock()
	if t, ok := a.ensuredAt[cacheKey]; ok && time.Since(t) < EnsureCollectionTTL {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	if err := ensureClass(ctx, a.client, className); err != nil {
		return err
	}
	if err := ensureTenant(ctx, a.client, className, owner); err != nil {
		return fmt.Errorf("ensure tenant %s/%s: %w", className, owner, err)
	}

	a.mu.Lock()
	a.ensuredAt[cacheKey] = time.Now()
	a.mu.Unlock()
	return nil
}

// UpsertPoint writes one multi-vector point into className under owner's
// tenant. The dense vector is passed to Weaviate's native vector field; the
// sparse and late-interaction representations are JSON-encoded into
// payload properties, since the client version in this stack exposes only
// a single dense WithVector (see DESIGN.md for the rationale).
func (a *Adapter) UpsertPoint(ctx context.Context, className, owner string, p model.Point) error {
	if err := a.EnsureCollection(ctx, className, owner); err != nil {
		return err
	}

	props := make(map[string]interface{}, len(p.Payload)+3)
	for k, v := range p.Payload {
		props[k] = v
	}
	props["sparse_indices"] = p.Vectors.Sparse.Indices
	props["sparse_values"] = p.Vectors.Sparse.Values
	if li, err := json.Marshal(p.Vectors.LateInteraction); err == nil {
		props["late_interaction"] = string(li)
	}

	_, err := a.client.Data().Creator().
		WithClassName(className).
		WithTenant(owner).
		WithID(p.ID).
		WithProperties(props).
		WithVector(p.Vectors.Dense).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("upsert point %s/%s/%s: %w", className, owner, p.ID, err)
	}
	return nil
}

// SetPayload merges new payload fields into an existing point without
// touching its vectors (§4.4 "payload set").
func (a *Adapter) SetPayload(ctx context.Context, className, owner, pointID string, payload map[string]interface{}) error {
	_, err := a.client.Data().Updater().
		WithMerge().
		WithClassName(className).
		WithTenant(owner).
		WithID(pointID).
		WithProperties(payload).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("set payload %s/%s/%s: %w", className, owner, pointID, err)
	}
	return nil
}

// RetrieveByID fetches a single point's properties by ID.
func (a *Adapter) RetrieveByID(ctx context.Context, className, owner, pointID string) (map[string]interface{}, error) {
	obj, err := a.client.Data().ObjectsGetter().
		WithClassName(className).
		WithTenant(owner).
		WithID(pointID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s/%s/%s: %w", className, owner, pointID, err)
	}
	if len(obj) == 0 {
		return nil, model.ErrNotFound
	}
	props, _ := obj[0].Properties.(map[string]interface{})
	return props, nil
}

// ScrollResult is one page of a filtered scroll.
type ScrollResult struct {
	Points     []map[string]interface{}
	NextOffset int
}

// Scroll pages through className's points for owner matching an equality
// filter on filterField, starting at offset and returning at most limit
// results.
func (a *Adapter) Scroll(ctx context.Context, className, owner, filterField, filterValue string, offset, limit int) (ScrollResult, error) {
	where := filters.Where().WithPath([]string{filterField}).WithOperator(filters.Equal).WithValueText(filterValue)

	req := a.client.GraphQL().Get().
		WithClassName(className).
		WithTenant(owner).
		WithWhere(where).
		WithLimit(limit).
		WithOffset(offset).
		WithFields(scrollFields()...)

	resp, err := req.Do(ctx)
	if err != nil {
		return ScrollResult{}, fmt.Errorf("scroll %s: %w", className, err)
	}
	if len(resp.Errors) > 0 {
		return ScrollResult{}, fmt.Errorf("scroll %s graphql errors: %v", className, resp.Errors)
	}

	points := extractGetResults(resp, className)
	return ScrollResult{Points: points, NextOffset: offset + len(points)}, nil
}

// SearchHit is one ANN search result.
type SearchHit struct {
	ID       string
	Distance float64
	Payload  map[string]interface{}
}

// Search runs a single-vector ANN search with an optional equality filter,
// returning id, distance, and payload per hit.
func (a *Adapter) Search(ctx context.Context, className, owner string, vec []float32, topK int, filterField, filterValue string) ([]SearchHit, error) {
	req := a.client.GraphQL().Get().
		WithClassName(className).
		WithTenant(owner).
		WithNearVector((&gql.NearVectorArgumentBuilder{}).WithVector(vec)).
		WithLimit(topK).
		WithFields(append(scrollFields(), gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "id"}, {Name: "distance"}}})...)

	if filterField != "" {
		where := filters.Where().WithPath([]string{filterField}).WithOperator(filters.Equal).WithValueText(filterValue)
		req = req.WithWhere(where)
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", className, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("search %s graphql errors: %v", className, resp.Errors)
	}

	rawPoints := extractRawGetResults(resp, className)
	hits := make([]SearchHit, 0, len(rawPoints))
	for _, m := range rawPoints {
		hit := SearchHit{Payload: m}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			if id, ok := add["id"].(string); ok {
				hit.ID = id
			}
			if d, ok := add["distance"].(float64); ok {
				hit.Distance = d
			}
		}
		delete(hit.Payload, "_additional")
		hits = append(hits, hit)
	}
	return hits, nil
}

func scrollFields() []gql.Field {
	names := []string{"job_id", "chunk_index", "content", "content_preview", "sensitivity", "tags", "source", "source_id", "owner", "status", "type"}
	fields := make([]gql.Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, gql.Field{Name: n})
	}
	return fields
}

func extractGetResults(resp *gql.GraphQLResponse, className string) []map[string]interface{} {
	raw := extractRawGetResults(resp, className)
	return raw
}

func extractRawGetResults(resp *gql.GraphQLResponse, className string) []map[string]interface{} {
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	val := getData[className]
	if val == nil {
		return nil
	}
	arr, ok := val.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// Delete removes a point by ID.
func (a *Adapter) Delete(ctx context.Context, className, owner, pointID string) error {
	return a.client.Data().Deleter().WithClassName(className).WithTenant(owner).WithID(pointID).Do(ctx)
}

// Ping reports whether the Weaviate instance is reachable and ready.
func (a *Adapter) Ping(ctx context.Context) error {
	ready, err := a.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("vectorstore ping: %w", err)
	}
	if !ready {
		return fmt.Errorf("vectorstore not ready")
	}
	return nil
}
