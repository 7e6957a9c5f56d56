package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rastermill/rastermill/internal/server"
	"github.com/rastermill/rastermill/pkg/cache"
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/engine"
	"github.com/rastermill/rastermill/pkg/kinds"
)

// shutdownTimeout bounds the drain of in-flight requests on exit.
const shutdownTimeout = 5 * time.Second

// serveCommand creates the HTTP server command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [project]",
		Short: "Serve the graph editing API over HTTP",
		Long: `Serve starts the HTTP API on the configured address. With a project
argument the engine starts from that graph; without one it starts empty
and the API builds the graph node by node. Prometheus metrics are
exposed on /metrics.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return c.serve(cmd.Context(), ref, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config file)")

	return cmd
}

func (c *CLI) serve(ctx context.Context, ref, addr string) error {
	if addr == "" {
		addr = c.config.Server.Addr
	}

	store, err := c.newLayerStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := dataflow.NewRegistry()
	kinds.Register(reg, store.Save)

	g := dataflow.New(reg)
	mode := engine.Mode(c.config.Engine.Mode)
	keyer := cache.NewDefaultKeyer()

	if ref != "" {
		p, err := c.loadProject(ctx, ref)
		if err != nil {
			return err
		}
		if g, err = p.Decode(reg); err != nil {
			return err
		}
		if p.Mode != "" {
			mode = engine.Mode(p.Mode)
		}
		keyer = cache.NewScopedKeyer(keyer, p.ID)
		printKeyValue("project", p.Name)
	}

	results, err := c.newResultCache(ctx, false)
	if err != nil {
		return err
	}
	defer results.Close()

	eng := engine.New(g, engine.Config{
		Logger:   c.Logger,
		Mode:     mode,
		Debounce: c.config.Engine.Debounce(),
		Cache:    results,
		Keyer:    keyer,
	})
	defer eng.Close()

	server.InstallMetrics()

	srv := server.New(server.Config{
		Addr:   addr,
		Engine: eng,
		Store:  store,
		Logger: c.Logger,
	})
	srv.Start()

	url := displayURL(addr)
	printSuccess("Listening on %s", StyleLink.Render(url))
	printKeyValue("mode", string(mode))
	printKeyValue("layer store", layerStoreName(c.config.Store.Backend))
	printNextStep("Check the engine", "curl "+url+"/api/status")

	<-ctx.Done()

	printInfo("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// displayURL turns a listen address into something clickable.
func displayURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func layerStoreName(backend string) string {
	if backend == "" {
		return "memory"
	}
	return backend
}
