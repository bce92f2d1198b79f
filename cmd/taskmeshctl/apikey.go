package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pipeworks/taskmesh/internal/config"
	"github.com/pipeworks/taskmesh/internal/model"
	"github.com/pipeworks/taskmesh/internal/platform/factory"
)

// newAPIKeyCmd is the offline administrative counterpart to the HTTP
// ingest surface: it writes a model.APIKeyRecord directly into the Cache
// Layer rather than going through an HTTP route, matching how API keys
// are provisioned out-of-band from the services that consume them (§3
// "API Key record"; supplemented feature).
func newAPIKeyCmd() *cobra.Command {
	apikeyCmd := &cobra.Command{Use: "apikey", Short: "Administer API keys"}

	var clientID, tier, permissionsCSV string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a new API key and store its record in the Cache Layer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clientID == "" {
				return fmt.Errorf("--client required")
			}

			record := &model.APIKeyRecord{
				ClientID:    clientID,
				Tier:        model.Tier(tier),
				CreatedAt:   time.Now().UTC(),
				ExpiresAt:   time.Now().UTC().Add(model.APIKeyTTL),
				Permissions: splitCSV(permissionsCSV),
			}

			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			redisClient := factory.NewRedisClient(cfg)
			db, dialect, err := factory.NewSQLDB(cfg)
			if err != nil {
				return fmt.Errorf("storage unavailable: %w", err)
			}
			c := factory.NewCache(redisClient, db, dialect)

			key, err := generateAPIKey()
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}

			encoded, err := json.Marshal(record)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.Set(ctx, "api_keys:"+key, string(encoded), model.APIKeyTTL); err != nil {
				return fmt.Errorf("store api key record: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "%s\n", key)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&clientID, "client", "c", "", "Client ID the key is issued to (required)")
	createCmd.Flags().StringVarP(&tier, "tier", "t", string(model.TierFree), "Tier: free, pro, enterprise, admin")
	createCmd.Flags().StringVarP(&permissionsCSV, "permissions", "p", "analyze,status,results", "Comma-separated permission list (\"*\" for all)")
	apikeyCmd.AddCommand(createCmd)

	return apikeyCmd
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "tm_" + hex.EncodeToString(buf), nil
}
