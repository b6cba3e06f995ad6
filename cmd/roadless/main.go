package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-roadless/internal/logger"
	"github.com/joeblew999/plat-roadless/internal/server"
)

// Options defines all CLI flags and env vars for the viewer server.
// Flags: --host, --port, --data-dir, --boundary-url, --session-ttl, --log-level, --log-format
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host        string `doc:"Host to bind to" default:"0.0.0.0"`
	Port        int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir     string `doc:"Directory holding layers.yaml, sources/ and duckdb/" default:".data"`
	BoundaryURL string `doc:"URL or file of the Oregon outline GeoJSON, empty to skip" default:""`
	SessionTTL  int    `doc:"Minutes before an idle viewer session is closed, 0 to keep them" default:"30"`
	LogLevel    string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat   string `doc:"Log format (text, json)" default:"text"`
}

func newServer(opts *Options) (*server.Server, error) {
	log, err := logger.Setup(opts.LogLevel, opts.LogFormat)
	if err != nil {
		return nil, err
	}
	return server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		BoundaryURL: opts.BoundaryURL,
		SessionTTL:  time.Duration(opts.SessionTTL) * time.Minute,
		Logger:      log,
	})
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load(".env")

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpSrv *http.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts)
			if err != nil {
				fatal("Server setup failed", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-roadless server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpSrv = &http.Server{Addr: addr, Handler: srv}
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fatal("Server error", err)
			}
		})

		hooks.OnStop(func() {
			if httpSrv == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(ctx)
			_ = srv.Close()
		})
	})

	cli.Root().Use = "roadless"
	cli.Root().Short = "Oregon roadless areas, trails and districts map viewer"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newServer(opts)
			if err != nil {
				fatal("Server setup failed", err)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// districts subcommand: print the district statistics table
	districtsCmd := &cobra.Command{
		Use:   "districts",
		Short: "Print roadless acreage per congressional district",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			if _, err := logger.Setup(opts.LogLevel, opts.LogFormat); err != nil {
				fatal("Logger setup failed", err)
			}
			if err := printDistricts(cmd.Context(), os.Stdout, opts.DataDir); err != nil {
				fatal("Listing districts failed", err)
			}
		}),
	}
	cli.Root().AddCommand(districtsCmd)

	cli.Run()
}
