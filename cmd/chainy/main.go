// Command chainy pipes an input through a chain of prompts, letting the model
// read and write files along the way.
//
//	chainy [flags] [input]
//	chainy [flags] embed <text>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/skosovsky/chainy"
	"github.com/skosovsky/chainy/chain"
	"github.com/skosovsky/chainy/config"
	"github.com/skosovsky/chainy/embed"
	"github.com/skosovsky/chainy/fstool"
	"github.com/skosovsky/chainy/ollama"
	"github.com/skosovsky/chainy/openaicompat"
)

const defaultInput = "embed.py"

// backend is what both model clients provide.
type backend interface {
	chainy.Backend
	embed.Source
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "chainy:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := config.Flags("chainy")
	flags.SetOutput(stderr)
	if err := flags.Parse(args); err != nil {
		return err
	}
	path, err := flags.GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, flags)
	if err != nil {
		return err
	}
	logger, err := cfg.Log.Logger(stderr)
	if err != nil {
		return err
	}

	be := newBackend(cfg.Model)
	logger.Debug().Str("backend", cfg.Model.Backend).Str("model", cfg.Model.Name).Msg("backend ready")

	rest := flags.Args()
	if len(rest) > 0 && rest[0] == "embed" {
		return runEmbed(ctx, be, cfg, logger, rest[1:], stdout)
	}

	input := defaultInput
	if len(rest) > 0 {
		input = rest[0]
	}
	return runChain(ctx, be, cfg, logger, input, stdout)
}

func newBackend(m config.ModelConfig) backend {
	if m.Backend == config.BackendOpenAI {
		opts := []openaicompat.Option{openaicompat.WithHTTPClient(&http.Client{Timeout: m.Timeout})}
		if m.BaseURL != "" {
			opts = append(opts, openaicompat.WithBaseURL(m.BaseURL))
		}
		return openaicompat.NewClient(m.APIKey, opts...)
	}
	opts := []ollama.Option{ollama.WithTimeout(m.Timeout)}
	if m.BaseURL != "" {
		opts = append(opts, ollama.WithBaseURL(m.BaseURL))
	}
	return ollama.NewClient(opts...)
}

func runChain(ctx context.Context, be backend, cfg *config.Config, logger zerolog.Logger, input string, stdout io.Writer) error {
	tools, err := fstool.New(afero.NewOsFs(), fstool.WithRoot(cfg.Tools.Root))
	if err != nil {
		return err
	}

	opts := []chainy.InvokerOption{
		chainy.WithLogger(logger),
		chainy.WithMiddleware(chainy.WithRecovery(), chainy.WithLogging(logger)),
	}
	// OpenAI-compatible servers reject tool results without the request that produced them.
	if cfg.Chain.KeepToolRequests || cfg.Model.Backend == config.BackendOpenAI {
		opts = append(opts, chainy.WithToolRequestTurns())
	}
	inv := chainy.NewInvoker(be, cfg.Model.Name, opts...)

	c := chain.New(inv,
		chain.WithCapabilities(tools.Capabilities()...),
		chain.WithLogger(logger),
		chain.WithOutput(stdout),
	)
	result, err := c.Run(ctx, input, cfg.Chain.Prompts)
	if err != nil {
		logger.Error().Err(err).Str("transcript_id", inv.Transcript().ID()).Msg("chain failed")
		return err
	}
	if _, err := fmt.Fprintln(stdout, result); err != nil {
		return err
	}
	// A chain that ends by saving a file shows what was saved.
	if last, ok := inv.Transcript().Last(); ok && last.ToolName == "write_file" && tools.LastWritten() != "" {
		content, err := tools.Read(tools.LastWritten())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout, strings.TrimRight(content, "\n"))
		return err
	}
	return nil
}

func runEmbed(ctx context.Context, be backend, cfg *config.Config, logger zerolog.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New("embed: text argument is required")
	}
	e, err := embed.New(be, cfg.Embedding.Model,
		embed.WithLogger(logger),
		embed.WithCacheTTL(cfg.Embedding.CacheTTL),
	)
	if err != nil {
		return err
	}
	vec := e.Embed(ctx, args[0])
	if vec == nil {
		return errors.New("embed: no embedding produced")
	}
	return json.NewEncoder(stdout).Encode(vec)
}
