//go:build integration

package vectorstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pipeworks/taskmesh/internal/model"
)

// startWeaviate spins up a disposable Weaviate instance for integration
// tests, the testcontainers-go pattern used for this platform's backend
// integration tests.
func startWeaviate(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "semitechnologies/weaviate:1.25.1",
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
			"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
			"DEFAULT_VECTORIZER_MODULE":                "none",
		},
		WaitingFor: wait.ForHTTP("/v1/.well-known/ready").WithPort("8080/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestAdapter_UpsertAndRetrieve(t *testing.T) {
	baseURL := startWeaviate(t)
	adapter, err := New(baseURL)
	require.NoError(t, err)

	ctx := context.Background()
	owner := "acme"
	class := KnowledgeBaseClass(owner)

	point := model.Point{
		ID: uuid.NewString(),
		Vectors: model.Vectors{
			Dense:  []float32{0.1, 0.2, 0.3},
			Sparse: model.SparseVector{Indices: []int{1, 5}, Values: []float32{0.4, 0.9}},
		},
		Payload: map[string]interface{}{
			model.PayloadJobID:      "job-1",
			model.PayloadChunkIndex: 0,
			model.PayloadContent:    "hello world",
			model.PayloadOwner:      owner,
		},
	}

	require.NoError(t, adapter.UpsertPoint(ctx, class, owner, point))

	got, err := adapter.RetrieveByID(ctx, class, owner, point.ID)
	require.NoError(t, err)
	require.Equal(t, "hello world", got["content"])
}

func TestAdapter_Search_FiltersByJobID(t *testing.T) {
	baseURL := startWeaviate(t)
	adapter, err := New(baseURL)
	require.NoError(t, err)

	ctx := context.Background()
	owner := "acme"
	class := KnowledgeBaseClass(owner)

	for i := 0; i < 3; i++ {
		p := model.Point{
			ID:      uuid.NewString(),
			Vectors: model.Vectors{Dense: []float32{float32(i), 0, 0}},
			Payload: map[string]interface{}{
				model.PayloadJobID:      "job-search",
				model.PayloadChunkIndex: i,
				model.PayloadContent:    fmt.Sprintf("chunk %d", i),
				model.PayloadOwner:      owner,
			},
		}
		require.NoError(t, adapter.UpsertPoint(ctx, class, owner, p))
	}

	hits, err := adapter.Search(ctx, class, owner, []float32{0, 0, 0}, 5, "job_id", "job-search")
	require.NoError(t, err)
	require.Len(t, hits, 3)
}
