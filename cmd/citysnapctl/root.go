package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/citysnap/gateway/pkg/citysnap"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server   string
	timeout  time.Duration
	retryMax int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "citysnapctl",
		Short: "Look up buildings through a CitySnap gateway",
		Long: `citysnapctl sends building lookups to a running CitySnap gateway and
prints the JSON answer.

The gateway URL comes from --server, then $CITYSNAP_URL, then ` + defaultServer + `.`,
		SilenceUsage: true,
	}

	server := os.Getenv("CITYSNAP_URL")
	if server == "" {
		server = defaultServer
	}
	cmd.PersistentFlags().StringVar(&opts.server, "server", server, "gateway base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 90*time.Second, "overall request timeout")
	cmd.PersistentFlags().IntVar(&opts.retryMax, "retries", 2, "retries on 5xx answers and transport errors")

	cmd.AddCommand(newLookupCmd(opts), newHealthCmd(opts), newVersionCmd())
	return cmd
}

func (o *rootOptions) client() (*citysnap.Client, error) {
	return citysnap.New(o.server, citysnap.WithRetryMax(o.retryMax), citysnap.WithUserAgent("citysnapctl"))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
