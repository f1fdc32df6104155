package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/dispatchkit/internal/config"
	"github.com/samvad-hq/dispatchkit/internal/domain"
	"github.com/samvad-hq/dispatchkit/internal/logger"
	"github.com/samvad-hq/dispatchkit/internal/runner"
	"github.com/samvad-hq/dispatchkit/internal/storage"
	"github.com/samvad-hq/dispatchkit/pkg/converter"
	"github.com/samvad-hq/dispatchkit/pkg/httpclient"
	"github.com/samvad-hq/dispatchkit/pkg/probes"
	"github.com/samvad-hq/dispatchkit/pkg/publishers"
)

// Prober represents the probing runtime. It owns the probe loop and wires
// the runner to its publishers and outcome store.
type Prober struct {
	cfg           *config.Config
	probeReg      *probes.Registry
	fanout        *publishers.Fanout
	runner        *runner.Service
	probeInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewProber builds a prober runtime from config files.
func NewProber(ctx context.Context, cfg *config.Config, log logger.Logger) (*Prober, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	probeReg, err := probes.LoadRegistry(cfg.ProbesFile)
	if err != nil {
		return nil, fmt.Errorf("load probes registry: %w", err)
	}
	probeList := probeReg.Probes()
	probeIDs := make([]string, 0, len(probeList))
	for _, p := range probeList {
		probeIDs = append(probeIDs, p.ID)
	}
	log.InfoObj("probes registry loaded", "probes_meta", map[string]any{
		"count": len(probeIDs),
		"ids":   probeIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		OutcomeTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"outcome_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client := httpclient.New(httpclient.Options{Timeout: cfg.HTTPTimeout})
	svc := runner.NewService(client, converter.Defaults(), fanout, store, log)
	if err := svc.Compile(probeList); err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("compile probe routes: %w", err)
	}

	return &Prober{
		cfg:           cfg,
		probeReg:      probeReg,
		fanout:        fanout,
		runner:        svc,
		probeInterval: cfg.ProbeInterval,
		log:           log,
		store:         store,
	}, nil
}

// buildFanout loads the publishers file. An empty path disables publishing.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(cfg.PublishersFile) == "" {
		log.WarnObj("no publishers file configured; outcomes are only logged", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the probe loop until the context is cancelled.
func (p *Prober) Run(ctx context.Context) error {
	if p == nil || p.runner == nil {
		return fmt.Errorf("prober is not initialized")
	}
	defer p.Close()

	list := p.probeReg.Probes()
	p.log.InfoObj("prober loop starting", "prober_state", map[string]any{
		"probes_count":     len(list),
		"publishers_count": p.fanout.Size(),
		"probe_interval":   p.probeInterval.String(),
	})

	if _, err := p.runOnce(ctx, list); err != nil {
		p.log.ErrorObj("initial probe run failed", "error", err)
	}

	ticker := time.NewTicker(p.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("prober loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if _, err := p.runOnce(ctx, list); err != nil {
				p.log.ErrorObj("scheduled probe run failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single pass over every probe and releases the
// prober's resources.
func (p *Prober) RunOnce(ctx context.Context) ([]domain.Outcome, error) {
	if p == nil || p.runner == nil {
		return nil, fmt.Errorf("prober is not initialized")
	}
	defer p.Close()
	return p.runOnce(ctx, p.probeReg.Probes())
}

func (p *Prober) runOnce(ctx context.Context, list []probes.Probe) ([]domain.Outcome, error) {
	start := time.Now()
	p.log.InfoObj("probe run started", "probe_run_meta", map[string]any{
		"probes_count": len(list),
		"started_at":   start.UTC(),
	})
	outcomes, err := p.runner.Run(ctx, list)

	healthy := 0
	for _, o := range outcomes {
		if o.Healthy {
			healthy++
		}
	}
	p.log.InfoObj("probe run completed", "probe_run_meta", map[string]any{
		"probes_count": len(list),
		"healthy":      healthy,
		"unhealthy":    len(outcomes) - healthy,
		"elapsed_ms":   time.Since(start).Milliseconds(),
	})
	return outcomes, err
}

// Close releases publishers and the outcome store, logging any errors.
func (p *Prober) Close() {
	if p == nil {
		return
	}
	if err := p.fanout.Close(); err != nil {
		p.log.ErrorObj("publishers close failed", "error", err)
	}
	if p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("storage close failed", "error", err)
	}
}
