package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	PlayerName string
}

func main() {
	_ = godotenv.Load()

	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    60 * time.Second,
	}
	flag.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "API base URL")
	flag.StringVar(&cfg.PlayerName, "name", getEnv("PLAYER_NAME", ""), "your name in the date")
	flag.Parse()

	api := &apiClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.APIBaseURL,
	}

	if !api.testConnection() {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, api),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
