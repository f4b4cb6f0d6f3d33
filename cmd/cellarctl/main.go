// Command cellarctl inspects and clears the persisted catalog cache.
//
//	cellarctl stats
//	cellarctl clear [category]
//	cellarctl get <category> <id>
//
// The store is selected with the CELLAR_CACHE_* environment variables.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/unkn0wn-root/cellarcache"
	"github.com/unkn0wn-root/cellarcache/config"
	"github.com/unkn0wn-root/cellarcache/internal/bootstrap"
)

const usage = `Usage: cellarctl <command>
Commands:
  stats                  Show size, entry count and schema version
  clear [category]       Remove every entry, or every entry of one category
  get <category> <id>    Print one entry with its freshness
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("missing command")
	}
	switch args[0] {
	case "help", "--help", "-h":
		fmt.Fprint(stdout, usage)
		return nil
	case "stats", "clear", "get":
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := bootstrap.Open(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.WithoutCancel(ctx)); err != nil {
			st.Log.Warn().Err(err).Msg("close cache")
		}
	}()
	return exec(ctx, st.Cache, args, stdout)
}

func exec(ctx context.Context, c *cellarcache.Cache, args []string, stdout io.Writer) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	switch args[0] {
	case "stats":
		s := c.Stats(ctx)
		return enc.Encode(map[string]any{
			"namespace": c.Namespace(),
			"bytes":     s.Bytes,
			"sizeKB":    s.SizeKB,
			"entries":   s.Entries,
			"version":   s.Version,
		})
	case "clear":
		if len(args) > 1 {
			c.ClearByType(ctx, args[1])
			fmt.Fprintf(stdout, "cleared category %q\n", args[1])
			return nil
		}
		c.Clear(ctx)
		fmt.Fprintln(stdout, "cleared")
		return nil
	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: cellarctl get <category> <id>")
		}
		key := cellarcache.Key(args[1], args[2])
		res := cellarcache.Get[any](ctx, c, key)
		if !res.FromCache {
			return fmt.Errorf("%s: not cached", key)
		}
		return enc.Encode(map[string]any{
			"key":             c.StorageKey(key),
			"data":            res.Data,
			"isStale":         res.IsStale,
			"needsRevalidate": res.NeedsRevalidate,
			"age":             res.Age.String(),
		})
	}
	return fmt.Errorf("unknown command: %s", args[0])
}
