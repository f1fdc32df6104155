package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/dispatchkit/internal/app"
	"github.com/samvad-hq/dispatchkit/internal/config"
	"github.com/samvad-hq/dispatchkit/internal/domain"
	"github.com/samvad-hq/dispatchkit/internal/logger"
	"github.com/samvad-hq/dispatchkit/pkg/dispatch"
	"github.com/samvad-hq/dispatchkit/pkg/rest"
)

const maxErrorBody = 200

var errUnhealthy = errors.New("unhealthy")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "prober",
		Short:         "Probe HTTP endpoints and publish how their responses were classified",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRunCmd(), newOnceCmd(), newCheckCmd())
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Probe on an interval until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			prober, err := setup(ctx)
			if err != nil {
				return err
			}
			defer logger.Close()

			if err := prober.Run(ctx); err != nil {
				return fmt.Errorf("prober run: %w", err)
			}
			return nil
		},
	}
}

func newOnceCmd() *cobra.Command {
	var failUnhealthy bool
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Probe every endpoint once and print the outcomes as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			prober, err := setup(ctx)
			if err != nil {
				return err
			}
			defer logger.Close()

			outcomes, runErr := prober.RunOnce(ctx)
			if err := writeYAML(cmd.OutOrStdout(), outcomes); err != nil {
				return err
			}
			if runErr != nil {
				return fmt.Errorf("probe run: %w", runErr)
			}
			if failUnhealthy {
				for _, o := range outcomes {
					if !o.Healthy {
						return fmt.Errorf("probe %s: %w", o.ProbeID, errUnhealthy)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failUnhealthy, "fail-unhealthy", false, "exit non-zero when any probe is unhealthy")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var (
		method  string
		timeout time.Duration
		headers []string
	)
	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Request a URL once and classify the response by status series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := check(cmd.Context(), args[0], method, timeout, headers)
			if err != nil {
				return err
			}
			if err := writeYAML(cmd.OutOrStdout(), outcome); err != nil {
				return err
			}
			if !outcome.Healthy {
				return fmt.Errorf("%s: %w", args[0], errUnhealthy)
			}
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&method, "method", "X", http.MethodGet, "request method")
	fs.DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	fs.StringArrayVarP(&headers, "header", "H", nil, "request header as \"Key: Value\" (repeatable)")
	return cmd
}

// setup loads config, initializes logging and builds the prober.
func setup(ctx context.Context) (*app.Prober, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.InfoObj("prober starting", "config", cfg)

	prober, err := app.NewProber(ctx, cfg, logger.Global{})
	if err != nil {
		logger.ErrorObj("failed to initialize prober", "error", err)
		_ = logger.Close()
		return nil, err
	}
	return prober, nil
}

// check requests target and routes the response on its status series.
// Transport failures and non-2xx responses are reported in the outcome;
// only invalid arguments are returned as errors.
func check(ctx context.Context, target, method string, timeout time.Duration, headers []string) (domain.Outcome, error) {
	client := rest.New(rest.Config{Timeout: timeout})
	verbs := map[string]func(string) *rest.Request{
		http.MethodGet:     client.Get,
		http.MethodHead:    client.Head,
		http.MethodPost:    client.Post,
		http.MethodPut:     client.Put,
		http.MethodPatch:   client.Patch,
		http.MethodDelete:  client.Delete,
		http.MethodOptions: client.Options,
		http.MethodTrace:   client.Trace,
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	verb, ok := verbs[method]
	if !ok {
		return domain.Outcome{}, fmt.Errorf("unsupported method %q", method)
	}

	req := verb(target)
	for _, h := range headers {
		key, value, found := strings.Cut(h, ":")
		if !found || strings.TrimSpace(key) == "" {
			return domain.Outcome{}, fmt.Errorf("invalid header %q (expected \"Key: Value\")", h)
		}
		req.Header(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	outcome := domain.Outcome{
		ProbeID:   "check",
		ProbeName: target,
		Method:    method,
		URL:       target,
		CheckedAt: time.Now().UTC(),
	}
	describe := func(r *dispatch.Retriever) {
		resp := r.Response()
		outcome.StatusCode = resp.StatusCode
		outcome.Series = resp.Series().String()
		outcome.ContentType = resp.ContentType().String()
	}

	start := time.Now()
	result, err := rest.Dispatch(ctx, req, dispatch.Series(),
		dispatch.On(dispatch.Successful, dispatch.Call(func(r *dispatch.Retriever) error {
			describe(r)
			return nil
		})),
		dispatch.AnySeries(dispatch.Call(func(r *dispatch.Retriever) error {
			describe(r)
			body, _ := dispatch.Retrieve[string](r)
			return fmt.Errorf("%s: %s", r.Response().Reason(), clip(body))
		})),
	)
	outcome.LatencyMS = time.Since(start).Milliseconds()
	outcome.Path = result.Path()
	if err != nil {
		outcome.Error = err.Error()
		return outcome, nil
	}
	outcome.Healthy = true
	return outcome, nil
}

func clip(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > maxErrorBody {
		return body[:maxErrorBody] + "..."
	}
	return body
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}
	return enc.Close()
}
