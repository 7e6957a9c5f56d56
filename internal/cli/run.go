package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rastermill/rastermill/pkg/cache"
	"github.com/rastermill/rastermill/pkg/dataflow"
	"github.com/rastermill/rastermill/pkg/engine"
	"github.com/rastermill/rastermill/pkg/kinds"
	"github.com/rastermill/rastermill/pkg/project"
)

// runCommand creates the run command.
func (c *CLI) runCommand() *cobra.Command {
	var (
		noCache bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "run <project>",
		Short: "Evaluate a project graph and publish its layers",
		Long: `Run loads a project (a file path or a project ID in the configured
project store), evaluates the graph once and saves every sink layer to
the layer store.

With --watch the project file is polled for changes and every edit is
applied to the running engine: parameter edits re-evaluate after the
debounce delay, structural edits immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return c.runWatch(cmd.Context(), args[0], noCache)
			}
			return c.runOnce(cmd.Context(), args[0], noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "evaluate without the result cache")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-evaluate whenever the project file changes")

	return cmd
}

// runOnce evaluates the project a single time in manual mode and reports
// the outcome.
func (c *CLI) runOnce(ctx context.Context, ref string, noCache bool) error {
	logger := loggerFromContext(ctx)

	p, err := c.loadProject(ctx, ref)
	if err != nil {
		return err
	}

	store, err := c.newLayerStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := dataflow.NewRegistry()
	kinds.Register(reg, store.Save)

	g, err := p.Decode(reg)
	if err != nil {
		return err
	}

	results, err := c.newResultCache(ctx, noCache)
	if err != nil {
		return err
	}
	defer results.Close()

	eng := engine.New(g, engine.Config{
		Logger: logger,
		Mode:   engine.ModeManual,
		Cache:  results,
		Keyer:  cache.NewScopedKeyer(cache.NewDefaultKeyer(), p.ID),
	})
	defer eng.Close()

	prog := newProgress(logger)
	eng.Run()
	if err := eng.Wait(ctx); err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Evaluated %q", p.Name))

	st := eng.Status()
	for _, id := range slices.Sorted(maps.Keys(st.Annotations)) {
		printWarning("node %d: %s", id, st.Annotations[id])
	}
	if st.Err != "" {
		return fmt.Errorf("evaluation failed: %s", st.Err)
	}

	layers, err := store.List(ctx)
	if err != nil {
		return err
	}

	snap := eng.Snapshot()
	printSuccess("Evaluated %s", StyleHighlight.Render(p.Name))
	printStats(snap.NodeCount(), snap.EdgeCount(), len(layers))
	if c.config.Store.Backend == "memory" || c.config.Store.Backend == "" {
		printDetail("Layer store: memory (discarded at exit)")
	}
	printNextStep("Inspect the graph", "rastermill graph "+ref)
	return nil
}

// runWatch evaluates the project and keeps going: the file is polled for
// edits, which flow into the engine through the same edit methods an
// editor would use. The document's trigger mode is honored, so a manual
// project only re-evaluates on the "r" key.
func (c *CLI) runWatch(ctx context.Context, path string, noCache bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("watch needs a project file: %w", err)
	}

	p, err := project.ReadFile(path)
	if err != nil {
		return err
	}

	store, err := c.newLayerStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	reg := dataflow.NewRegistry()
	kinds.Register(reg, store.Save)

	g, err := p.Decode(reg)
	if err != nil {
		return err
	}

	results, err := c.newResultCache(ctx, noCache)
	if err != nil {
		return err
	}
	defer results.Close()

	mode := engine.ModeAuto
	if p.Mode == string(engine.ModeManual) {
		mode = engine.ModeManual
	}

	// Engine log lines would tear the view, so keep it quiet; the status
	// line carries the same information.
	eng := engine.New(g, engine.Config{
		Logger:   log.New(io.Discard),
		Mode:     mode,
		Debounce: c.config.Engine.Debounce(),
		Cache:    results,
		Keyer:    cache.NewScopedKeyer(cache.NewDefaultKeyer(), p.ID),
	})
	defer eng.Close()

	eng.Run()

	ui := tea.NewProgram(newWatchModel(eng, path, p, info.ModTime()), tea.WithContext(ctx))
	final, err := ui.Run()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}

	if m, ok := final.(watchModel); ok {
		if m.loadErr != nil {
			printError("%s", m.loadErr)
		}
		printInfo("Stopped after %d reloads", m.reloads)
	}
	return nil
}
