package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JuanCS-Dev/Noesis/internal/app"
	"github.com/JuanCS-Dev/Noesis/internal/client"
	"github.com/JuanCS-Dev/Noesis/internal/config"
	"github.com/JuanCS-Dev/Noesis/internal/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	baseURL := flag.String("url", "", "Override pipeline base URL")
	depth := flag.Int("depth", 0, "Override recursion depth")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *baseURL != "" {
		cfg.Stream.BaseURL = *baseURL
	}
	if *depth > 0 {
		cfg.Stream.Depth = *depth
	}

	coord := stream.New(stream.Options{
		BaseURL:   cfg.Stream.BaseURL,
		Namespace: cfg.Stream.Namespace,
		Baseline:  cfg.Stream.Baseline,
		Increment: cfg.Stream.Increment,
	})
	journal := client.NewJournalClient(cfg.Stream.BaseURL, cfg.Stream.Namespace)

	m := app.New(coord, journal, cfg.Stream.Depth)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
