package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jeffersonwarrior/httpbridge/bridge"
	"github.com/jeffersonwarrior/httpbridge/internal/config"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
	"github.com/jeffersonwarrior/httpbridge/internal/version"

	"github.com/goccy/go-json"
)

var (
	urlFlag     = flag.String("url", "", "URL to request")
	methodFlag  = flag.String("method", "GET", "HTTP method")
	configFile  = flag.String("config", "", "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information")
	showStats   = flag.Bool("stats", false, "Print bridge stats after the request")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("httpbridge version %s\n", version.Version())
		fmt.Println("HTTP request execution layer for mobile FFI hosts")
		os.Exit(0)
	}

	if *urlFlag == "" {
		fmt.Fprintln(os.Stderr, "Usage: httpbridge -url <url> [-method GET] [-config path]")
		os.Exit(2)
	}

	cfg, _ := config.Load(*configFile)
	b := bridge.New(cfg)
	if err := b.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer b.Shutdown()

	req := model.EnhancedRequest{
		Request: model.Request{
			URL:             *urlFlag,
			Method:          *methodFlag,
			FollowRedirects: true,
			MaxRedirects:    model.DefaultMaxRedirects,
			TimeoutMs:       model.DefaultTimeoutMs,
			Decompress:      true,
		},
	}
	payload, err := json.Marshal(&req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode request: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(b.Execute(payload)))

	if *showStats {
		fmt.Println(string(b.StatsJSON()))
	}
}
