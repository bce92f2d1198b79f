// Package factory selects concrete storage/search/LLM backends from
// config, grounded on the teacher's internal/platform/factory package
// (NewStorage/NewVectorStore switching on cfg.DBDriver/cfg.VectorStore).
package factory

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pipeworks/taskmesh/internal/cache"
	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/embedding"
	"github.com/pipeworks/taskmesh/internal/llm"
	"github.com/pipeworks/taskmesh/internal/storage"
	"github.com/pipeworks/taskmesh/internal/storage/kv"
	"github.com/pipeworks/taskmesh/internal/storage/relational"
	"github.com/pipeworks/taskmesh/internal/vectorstore"
)

// NewRedisClient builds the shared Redis client used by the Cache Layer,
// the Broker, and (when DBDriver=="kv") the Job Repository.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
	})
}

// NewSQLDB opens the relational database cfg.DBDriver points at ("postgres"
// or "sqlite"), applying the matching DDL so a fresh deployment boots with
// its schema in place.
func NewSQLDB(cfg *config.Config) (*sql.DB, relational.Dialect, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			return nil, 0, fmt.Errorf("factory: open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, 0, fmt.Errorf("factory: ping postgres: %w", err)
		}
		if _, err := db.Exec(relational.DDLPostgres); err != nil {
			return nil, 0, fmt.Errorf("factory: apply postgres ddl: %w", err)
		}
		if _, err := db.Exec(cache.DDLPostgres); err != nil {
			return nil, 0, fmt.Errorf("factory: apply cache ddl: %w", err)
		}
		return db, relational.DialectPostgres, nil
	case "sqlite", "kv":
		path := cfg.SQLitePath
		if path == "" {
			path = ":memory:"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, 0, fmt.Errorf("factory: open sqlite: %w", err)
		}
		if _, err := db.Exec(relational.DDLSQLite); err != nil {
			return nil, 0, fmt.Errorf("factory: apply sqlite ddl: %w", err)
		}
		if _, err := db.Exec(cache.DDLSQLite); err != nil {
			return nil, 0, fmt.Errorf("factory: apply cache ddl: %w", err)
		}
		return db, relational.DialectSQLite, nil
	default:
		return nil, 0, fmt.Errorf("factory: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// NewRepository selects the Job Repository backend matching cfg.DBDriver
// (§4.2: the Job Repository is polymorphic over KV or relational storage).
func NewRepository(cfg *config.Config, redisClient *redis.Client, db *sql.DB, dialect relational.Dialect) (storage.Repository, error) {
	switch cfg.DBDriver {
	case "kv":
		return kv.New(redisClient), nil
	case "postgres", "sqlite":
		return relational.New(db, dialect), nil
	default:
		return nil, fmt.Errorf("factory: unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// NewCache builds the two-tier Cache Layer (fast Redis tier, durable SQL
// tier) shared by auth (API keys, rate limiting) and the job state cache.
func NewCache(redisClient *redis.Client, db *sql.DB, dialect relational.Dialect) *cache.Cache {
	sqlDialect := cache.DialectPostgres
	if dialect == relational.DialectSQLite {
		sqlDialect = cache.DialectSQLite
	}
	return cache.New(cache.NewRedisTier(redisClient), cache.NewSQLTier(db, sqlDialect))
}

// NewVectorStore constructs the Vector Store Adapter against cfg.WaviateURL
// (§4.4; "vector_store" in config names Weaviate as the sole backend).
func NewVectorStore(cfg *config.Config) (*vectorstore.Adapter, error) {
	return vectorstore.New(cfg.WaviateURL)
}

// NewEmbeddingPipeline wires the dense embedding provider (Ollama) and the
// Vector Store Adapter into the Embedding Pipeline (§4.5).
func NewEmbeddingPipeline(cfg *config.Config, store embedding.PointStore, log zerolog.Logger) *embedding.Pipeline {
	dense := embedding.NewOllamaProvider("", cfg.EmbedModel)
	return embedding.NewPipeline(dense, store, log)
}

// NewLLMProvider builds the Provider used by the analysis processors
// (§6 openai.*), preferring the first configured model choice and falling
// back to cfg.OpenAI.FallbackModel when none is set.
func NewLLMProvider(cfg *config.Config, apiKey string) llm.Provider {
	model := cfg.OpenAI.FallbackModel
	if len(cfg.OpenAI.ModelChoices) > 0 {
		model = cfg.OpenAI.ModelChoices[0]
	}
	return llm.NewOpenAIProvider(llm.StaticKeyManager{Key: apiKey}, model, cfg.OpenAI.MaxTokensPerRequest)
}
