package main

import (
	"flag"
	"log"

	"rangeann/pkg/api"
	"rangeann/pkg/config"
	"rangeann/pkg/core"
	"rangeann/pkg/network"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[RangeANN] Failed to load config: %v", err)
	}

	index, err := core.NewHybridIndex(cfg)
	if err != nil {
		log.Fatalf("[RangeANN] Failed to build index: %v", err)
	}
	defer index.Close()

	log.Printf("[RangeANN] Index ready (%d records).", index.Len())

	go func() {
		srv := network.NewTCPServer(index, cfg.Index.DefaultAlpha)
		if err := srv.Start(cfg.Server.TCPAddr); err != nil {
			log.Fatalf("[TCP] Server failed: %v", err)
		}
	}()

	httpSrv := api.NewServer(index, cfg.Index.DefaultAlpha)
	if err := httpSrv.Start(cfg.Server.Addr); err != nil {
		log.Fatalf("[API] Server failed: %v", err)
	}
}
