package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jacobrobertsbaca/blockybird/internal/observability"
	"github.com/jacobrobertsbaca/blockybird/internal/server"
)

const defaultConfigPath = "cmd/blockybird/config.toml"

func main() {
	path := flag.String("config", "", "config file (defaults to "+defaultConfigPath+" when present)")
	flag.Parse()

	observability.InitLogger("blockybird")

	cfg, err := resolveConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blockybird: %v\n", err)
		os.Exit(1)
	}
	svc, err := server.NewService(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "blockybird: %v\n", err)
		os.Exit(1)
	}
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "blockybird: %v\n", err)
		os.Exit(1)
	}
}
