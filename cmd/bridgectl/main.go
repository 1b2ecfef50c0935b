// bridgectl drives a local Bridge from the command line, mainly for
// smoke-testing a build against live endpoints.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jeffersonwarrior/httpbridge/bridge"
	"github.com/jeffersonwarrior/httpbridge/internal/config"
	"github.com/jeffersonwarrior/httpbridge/internal/model"
	"github.com/jeffersonwarrior/httpbridge/internal/version"
)

var (
	configPath string

	probeMethod    string
	probeHeaders   []string
	probeBody      string
	probeTimeoutMs int
	probePriority  string

	batchMaxItems int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridgectl",
		Short: "httpbridge command-line client",
		Long:  "bridgectl runs requests through a local httpbridge instance using the same wire format as the FFI boundary.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")

	probeCmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Execute a single request and print the response",
		Args:  cobra.ExactArgs(1),
		RunE:  runProbe,
	}
	probeCmd.Flags().StringVarP(&probeMethod, "method", "X", "GET", "HTTP method")
	probeCmd.Flags().StringArrayVarP(&probeHeaders, "header", "H", nil, "Request header (key: value), repeatable")
	probeCmd.Flags().StringVarP(&probeBody, "body", "d", "", "Request body")
	probeCmd.Flags().IntVar(&probeTimeoutMs, "timeout-ms", 0, "Request timeout in milliseconds")
	probeCmd.Flags().StringVar(&probePriority, "priority", "", "Request priority (High, Normal, Low)")

	batchCmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Execute a JSON array of requests from a file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().IntVar(&batchMaxItems, "max-items", 0, "Batch size cap (0 uses the configured cap)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the bridgectl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bridgectl version %s\n", version.Version())
		},
	}

	rootCmd.AddCommand(probeCmd, batchCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openBridge() (*bridge.Bridge, error) {
	cfg, _ := config.Load(configPath)
	b := bridge.New(cfg)
	if err := b.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize bridge: %w", err)
	}
	return b, nil
}

func runProbe(cmd *cobra.Command, args []string) error {
	req := model.EnhancedRequest{
		Request: model.Request{
			URL:             args[0],
			Method:          probeMethod,
			FollowRedirects: true,
			MaxRedirects:    model.DefaultMaxRedirects,
			Decompress:      true,
		},
	}
	if probeBody != "" {
		req.Body = &probeBody
	}
	if probeTimeoutMs > 0 {
		req.TimeoutMs = uint64(probeTimeoutMs)
	}
	if probePriority != "" {
		if err := req.Priority.UnmarshalJSON([]byte(`"` + probePriority + `"`)); err != nil {
			return err
		}
	}

	headers := make(map[string]string, len(probeHeaders))
	for _, h := range probeHeaders {
		key, value, found := strings.Cut(h, ":")
		if !found {
			return fmt.Errorf("invalid header %q, expected key: value", h)
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(headers) > 0 {
		req.Headers = headers
	}

	payload, err := json.Marshal(&req)
	if err != nil {
		return err
	}

	b, err := openBridge()
	if err != nil {
		return err
	}
	defer b.Shutdown()

	fmt.Println(string(b.Execute(payload)))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	payload, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	b, err := openBridge()
	if err != nil {
		return err
	}
	defer b.Shutdown()

	fmt.Println(string(b.ExecuteBatch(payload, batchMaxItems)))
	return nil
}
