package main

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/pps-player/tablewatch/internal/board/app"
	"github.com/pps-player/tablewatch/internal/board/client"
)

func main() {
	wsURL := flag.StringP("url", "u", "ws://127.0.0.1:8080/ws", "WebSocket URL of the tablewatch server")
	token := flag.StringP("token", "t", os.Getenv("TABLEWATCH_TOKEN"), "Auth token (if the server requires it)")
	logFile := flag.String("log", "", "Write client logs to this file")
	flag.Parse()

	// Logs would corrupt the alt screen.
	log.SetOutput(io.Discard)
	if *logFile != "" {
		f, err := tea.LogToFile(*logFile, "board")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	}

	httpBase := deriveHTTPBase(*wsURL)

	ws := client.NewWSClient(*wsURL, *token)
	defer ws.Close()
	httpClient := client.NewHTTPClient(httpBase, *token)

	m := app.New(ws, httpClient)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deriveHTTPBase converts ws://host:port/ws → http://host:port
func deriveHTTPBase(wsURL string) string {
	u, err := url.Parse(wsURL)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	scheme := "http"
	if strings.HasPrefix(u.Scheme, "wss") {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, u.Host)
}
