// Package main provides the remote control CLI for testing.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/walkbox/internal/app/control"
	"github.com/osa030/walkbox/internal/app/notify"
)

var (
	app    = kingpin.New("walkbox-remote", "walkbox remote control client for testing")
	server = app.Flag("server", "Player address").Default("http://localhost:8090").String()

	// transport commands
	playCmd  = app.Command("play", "Start or resume playback")
	pauseCmd = app.Command("pause", "Toggle pause")
	stopCmd  = app.Command("stop", "Stop playback")
	nextCmd  = app.Command("next", "Skip to the next track")
	prevCmd  = app.Command("prev", "Skip to the previous track")

	// inspection commands
	statusCmd = app.Command("status", "Show player status")
	tracksCmd = app.Command("tracks", "List the track catalog")
	watchCmd  = app.Command("watch", "Stream player events")
)

// commandWords maps CLI commands onto the transport vocabulary.
var commandWords = map[string]string{
	playCmd.FullCommand():  "play",
	pauseCmd.FullCommand(): "pause",
	stopCmd.FullCommand():  "stop",
	nextCmd.FullCommand():  "seek_forward",
	prevCmd.FullCommand():  "seek_backward",
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if word, ok := commandWords[command]; ok {
		sendCommand(word)
		return
	}

	switch command {
	case statusCmd.FullCommand():
		printStatus()
	case tracksCmd.FullCommand():
		printCatalog()
	case watchCmd.FullCommand():
		watch()
	}
}

func sendCommand(word string) {
	resp, err := http.Post(*server+"/control", "text/plain", strings.NewReader(word))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("Rejected [%d]: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
		os.Exit(1)
	}

	fmt.Printf("Sent: %s\n", word)
}

func printStatus() {
	resp, err := http.Get(*server + "/status")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var st control.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Player Status:")
	fmt.Printf("  State: %s\n", formatState(st.State))
	if st.TrackName != "" {
		fmt.Printf("  Track: [%d] %s\n", st.TrackIndex, st.TrackName)
	}
	fmt.Printf("  Catalog: %d track(s)\n", st.CatalogSize)
	fmt.Printf("  Receiver connected: %v\n", st.Connected)
	fmt.Printf("  Updated: %s\n", st.UpdatedAt.Format(time.RFC3339))
}

func formatState(state string) string {
	switch state {
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "stopped":
		return "⏹  Stopped"
	default:
		return "❓ Unknown"
	}
}

func printCatalog() {
	resp, err := http.Get(*server + "/tracks")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var tracks []struct {
		Index  int    `json:"index"`
		Name   string `json:"name"`
		Size   int64  `json:"size"`
		Title  string `json:"title"`
		Artist string `json:"artist"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d track(s):\n", len(tracks))
	for _, tr := range tracks {
		if tr.Title != "" {
			fmt.Printf("  %3d  %-40s %s - %s\n", tr.Index, tr.Name, tr.Artist, tr.Title)
		} else {
			fmt.Printf("  %3d  %s\n", tr.Index, tr.Name)
		}
	}
}

func watch() {
	resp, err := http.Get(*server + "/events")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Println("Watching player events. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nDisconnecting...")
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var n notify.Notification
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &n); err != nil {
			continue
		}
		printNotification(n)
	}

	if err := scanner.Err(); err != nil {
		fmt.Printf("Stream error: %v\n", err)
	}
}

func printNotification(n notify.Notification) {
	ts := n.At.Format("15:04:05")

	switch n.Kind {
	case notify.TrackStarted:
		fmt.Printf("[%d] %s ▶️  started: %s\n", n.Seq, ts, n.TrackName)
	case notify.TrackFinished:
		fmt.Printf("[%d] %s ⏭  finished: %s\n", n.Seq, ts, n.TrackName)
	case notify.LoadFailed:
		fmt.Printf("[%d] %s ⚠️  load failed: %s (%s)\n", n.Seq, ts, n.TrackName, n.Detail)
	case notify.PlaybackStopped:
		fmt.Printf("[%d] %s ⏹  stopped: %s\n", n.Seq, ts, n.TrackName)
	case notify.PlaybackPaused:
		fmt.Printf("[%d] %s ⏸  paused: %s\n", n.Seq, ts, n.TrackName)
	case notify.PlaybackResumed:
		fmt.Printf("[%d] %s ▶️  resumed: %s\n", n.Seq, ts, n.TrackName)
	case notify.StorageFatal:
		fmt.Printf("[%d] %s 🛑 storage failure: %s\n", n.Seq, ts, n.Detail)
	default:
		fmt.Printf("[%d] %s ❓ %s\n", n.Seq, ts, n.Kind)
	}
}
