package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gh-nvat/mapdiff/src/pkg/compare"
	"github.com/gh-nvat/mapdiff/src/pkg/server"
	"github.com/gh-nvat/mapdiff/src/pkg/source"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve map comparisons over HTTP",
		Long: `Serve exposes GET /mapscompare/json and GET /mapscompare/text taking the
oldMapLink, newMapLink, diffToCompare, charToCompare and compareLights query
parameters, plus /healthz and /metrics. Only http(s) map links are accepted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	root.bindFlags(cmd, map[string]string{"addr": "server.addr"})

	return cmd
}

func runServe(ctx context.Context, root *rootOptions) error {
	s := root.settings
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := source.NewFetcher(&http.Client{}, source.Options{
		Timeout:   s.Fetch.Timeout,
		MaxSize:   s.Fetch.MaxSize,
		UserAgent: "mapdiff/" + Version,
	})

	srv := server.New(compare.NewService(fetcher), compare.Options{
		Difficulty:     s.Compare.Difficulty,
		Characteristic: s.Compare.Characteristic,
		IncludeLights:  s.Compare.IncludeLights,
	})
	return srv.ListenAndServe(ctx, s.Server.Addr)
}
