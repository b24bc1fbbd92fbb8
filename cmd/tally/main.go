package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tally/internal/board"
	"tally/internal/client"
	"tally/internal/tui"
)

func main() {
	var (
		server   = flag.String("server", envOr("TALLY_SERVER", "http://localhost:3001"), "tally server base URL")
		password = flag.String("password", os.Getenv("TALLY_PASSWORD"), "board password")
		claimer  = flag.String("claimer", envOr("TALLY_CLAIMER", defaultClaimer()), "name used for claims")
	)
	flag.Parse()

	if *password == "" {
		fmt.Fprintln(os.Stderr, "a password is required (-password or TALLY_PASSWORD)")
		os.Exit(1)
	}

	api, err := client.New(*server)
	if err != nil {
		log.Fatalf("client setup failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := api.Login(ctx, *password); err != nil {
		log.Fatalf("login failed: %v", err)
	}
	items, err := api.Items(ctx)
	if err != nil {
		log.Fatalf("initial fetch failed: %v", err)
	}

	var orderFile *board.OrderFile
	if path, err := board.DefaultOrderPath(); err == nil {
		orderFile = board.NewOrderFile(path)
	} else {
		log.Printf("order persistence disabled: %v", err)
	}

	events, err := api.Events(ctx)
	if err != nil {
		log.Fatalf("event stream failed: %v", err)
	}

	program := tea.NewProgram(
		tui.NewModel(api, *claimer, items, orderFile),
		tea.WithAltScreen(),
	)

	go func() {
		for snapshot := range events {
			program.Send(tui.SnapshotMsg{Items: snapshot})
		}
		program.Send(tui.StreamClosedMsg{})
	}()

	if _, err := program.Run(); err != nil {
		log.Fatalf("tui failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultClaimer() string {
	if hostname, err := os.Hostname(); err == nil {
		return hostname
	}
	return "anonymous"
}
