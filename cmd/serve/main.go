package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmartin/fingerprint-patterns/go-detector/internal/detector"
	"github.com/dmartin/fingerprint-patterns/go-detector/internal/ingest"
)

// #region main

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := detector.DefaultConfig()
	if *configPath != "" {
		loaded, err := detector.LoadConfigFile(*configPath, cfg)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	server, err := ingest.NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := server.Run(*addr); err != nil {
		log.Fatal(err)
	}
}

// #endregion main
