package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rawblock/hui-federated/internal/config"
	federatedclient "github.com/rawblock/hui-federated/internal/federated/client"
	"github.com/rawblock/hui-federated/internal/identity"
	"github.com/rawblock/hui-federated/internal/source"
)

func main() {
	log.Println("Starting HUI Federated Client...")

	cfg := config.LoadClientConfig()

	var id *identity.Identity
	if cfg.PrivateKeyPath != "" {
		keyBytes, err := os.ReadFile(cfg.PrivateKeyPath)
		if err == nil {
			id, err = identity.FromPrivateKeyBytes(keyBytes)
			if err != nil {
				log.Printf("Warning: failed to load identity from %s, generating a new one: %v", cfg.PrivateKeyPath, err)
				id = nil
			}
		}
	}

	src := source.TextSource{
		Open: func() (io.ReadCloser, error) {
			return os.Open(cfg.DataPath)
		},
	}

	client, err := federatedclient.New(cfg.ServerAddr, src, cfg.MiningConfig, id)
	if err != nil {
		log.Fatalf("failed to build client: %v", err)
	}

	if cfg.PrivateKeyPath != "" {
		if err := os.WriteFile(cfg.PrivateKeyPath, client.Identity.PrivateKeyBytes(), 0o600); err != nil {
			log.Printf("Warning: failed to persist private key to %s: %v", cfg.PrivateKeyPath, err)
		}
	}

	log.Printf("Client identity: %s", client.Identity.ClientID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := client.Run(ctx); err != nil {
		log.Printf("client stopped: %v", err)
	}
}
