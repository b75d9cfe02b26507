// Command worker delivers verification mail queued by a server running with
// mail_mode "queue".
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/fileshare/internal/server"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := server.RunWorker(context.Background(), cfg); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
