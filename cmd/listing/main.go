// Command listing drives the website listing and ownership verification
// workflow against a guestpost API from the terminal.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestpost/internal/apiclient"
	"guestpost/internal/clientstate"
)

const defaultAPI = "http://localhost:8080"

type command struct {
	usage string
	run   func(ctx context.Context, app *cli, args []string) error
}

var commands = map[string]command{
	"login":   {"login --email <email> --password <password> [--api <url>]", runLogin},
	"add":     {"add <domain>", runAdd},
	"list":    {"list [--status <status>]", runList},
	"methods": {"methods <website_id>", runMethods},
	"verify":  {"verify <website_id> <method> [--reason <text>] [--yes]", runVerify},
	"return":  {"return <redirect_url>", runReturn},
	"price":   {"price <website_id> --publishing <amount> [--categories a,b,c] [--additional-countries ...] [--submit]", runPrice},
	"watch":   {"watch", runWatch},
	"queue":   {"queue [--status <status>]", runQueue},
	"review":  {"review <website_id>", adminAction("review")},
	"approve": {"approve <website_id>", adminAction("approve")},
	"reject":  {"reject <website_id> --reason <text>", runReject},
	"pause":   {"pause <website_id>", adminAction("pause")},
	"resume":  {"resume <website_id>", adminAction("resume")},
	"delete":  {"delete <website_id>", adminAction("delete")},
}

var order = []string{"login", "add", "list", "methods", "verify", "return", "price", "watch",
	"queue", "review", "approve", "reject", "pause", "resume", "delete"}

type cli struct {
	api   *apiclient.Client
	store *clientstate.FileStore
}

func usage() {
	fmt.Println("Usage:")
	for _, name := range order {
		fmt.Printf("  listing %s\n", commands[name].usage)
	}
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}

	path, err := clientstate.DefaultPath()
	if err != nil {
		log.Fatal(err)
	}
	store, err := clientstate.NewFileStore(path)
	if err != nil {
		log.Fatal(err)
	}

	apiURL, token := store.Session()
	if env := os.Getenv("GUESTPOST_API"); env != "" {
		apiURL = env
	}
	if apiURL == "" {
		apiURL = defaultAPI
	}

	app := &cli{
		api:   apiclient.New(apiURL, apiclient.WithToken(token), apiclient.WithTimeout(30*time.Second)),
		store: store,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.run(ctx, app, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", apiclient.FormatError(err))
		os.Exit(1)
	}
}
