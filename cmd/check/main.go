// Package main provides a diagnostic tool that fetches one article and
// prints it, for verifying connectivity, consent handling and parsing
// against a live board.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pttgrab/internal/board"
	"pttgrab/internal/board/pttweb"
	"pttgrab/internal/config"
	"pttgrab/internal/logger"
	"pttgrab/internal/models"
	"pttgrab/pkg/textutil"
)

const (
	previewLines = 5
	previewWidth = 72
)

func main() {
	cfg := config.DefaultConfig()

	boardName := flag.String("board", "", "Board name to check")
	index := flag.Int("index", 0, "Article index to fetch (0 prints the newest index only)")
	baseURL := flag.String("url", cfg.Session.BaseURL, "Board host base URL")
	delay := flag.Float64("delay", cfg.Options.DelayBetweenRequests, "Politeness delay in seconds")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn or error")

	flag.Parse()

	if *boardName == "" {
		fmt.Println("❌ Please provide -board")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg.Session.BaseURL = *baseURL
	cfg.Options.DelayBetweenRequests = *delay

	log := logger.NewLogger(*logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := pttweb.Dial(ctx, cfg, nil, log)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Session failed: %v", err))
		os.Exit(1)
	}

	gate := board.NewThrottled(client, cfg.Options.GetDelay(), cfg.Options.MaxRetries, log)

	latest, err := gate.LatestIndex(ctx, *boardName)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Could not read board %s: %v", *boardName, err))
		os.Exit(1)
	}

	fmt.Printf("📋 Board %s: newest index %d\n", *boardName, latest)

	if *index < 1 {
		return
	}

	art, err := gate.FetchArticle(ctx, *boardName, *index)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Fetch failed: %v", err))
		os.Exit(1)
	}

	printArticle(art)
}

func printArticle(art *models.Article) {
	fmt.Printf("\n📄 %s #%d (%s)\n", art.Board, art.Index, art.AID)
	fmt.Printf("Author: %s\n", art.Author)
	fmt.Printf("Title:  %s\n", art.Title)
	fmt.Printf("Date:   %s\n", art.Date)

	if art.IP != nil {
		fmt.Printf("IP:     %s\n", *art.IP)
	}

	fmt.Println("\n--- Body preview ---")

	lines := strings.Split(art.Content, "\n")
	for i, line := range lines {
		if i == previewLines {
			fmt.Printf("... (%d more lines)\n", len(lines)-previewLines)

			break
		}

		fmt.Println(textutil.TruncateWidth(line, previewWidth, "..."))
	}

	if len(art.Comments) == 0 {
		fmt.Println("\n💬 No comments")

		return
	}

	headers := []string{"TYPE", "AUTHOR", "TIME", "CONTENT"}
	rows := make([][]string, 0, len(art.Comments))

	for _, c := range art.Comments {
		rows = append(rows, []string{
			string(c.Kind),
			c.Author,
			c.Time,
			textutil.TruncateWidth(c.Content, 40, "..."),
		})
	}

	fmt.Printf("\n💬 %d comments\n", len(art.Comments))
	fmt.Print(textutil.Table(headers, rows))
}
