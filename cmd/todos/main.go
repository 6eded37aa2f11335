package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"serverless-todo/backend/internal/client"
	"serverless-todo/backend/internal/config"
	"serverless-todo/backend/internal/ui"
)

func main() {
	configPath := flag.String("config", config.DefaultClientConfigPath(), "path to the client config (TOML)")
	endpoint := flag.String("endpoint", "", "API endpoint (overrides api_endpoint)")
	token := flag.String("token", "", "ID token (overrides id_token, or TODOS_ID_TOKEN)")
	pageSize := flag.Int("page-size", 0, "todos per page (overrides page_size)")
	flag.Parse()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *endpoint != "" {
		cfg.APIEndpoint = *endpoint
	}
	if env := os.Getenv("TODOS_ID_TOKEN"); env != "" {
		cfg.IDToken = env
	}
	if *token != "" {
		cfg.IDToken = *token
	}
	if *pageSize > 0 {
		cfg.PageSize = *pageSize
	}
	if cfg.IDToken == "" {
		fmt.Fprintln(os.Stderr, "no ID token: set id_token in", *configPath, "or pass -token")
		os.Exit(2)
	}

	api := client.New(cfg.APIEndpoint, cfg.IDToken)
	if _, err := tea.NewProgram(ui.New(api, cfg.PageSize), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error running program:", err)
		os.Exit(1)
	}
}
