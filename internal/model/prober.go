package model

import (
	"context"
	"fmt"
	"time"

	"github.com/basaa-mt/translator-api/pkg/icron"
	"github.com/basaa-mt/translator-api/pkg/log"
	"github.com/robfig/cron/v3"
)

// Loader is implemented by adapters that can (re)load their model.
type Loader interface {
	Load(ctx context.Context) error
	Loaded() bool
}

// Prober retries Load on a cron schedule while the model is not loaded, so a
// model server that comes up after the API does not require a restart.
type Prober struct {
	loader Loader
	expr   string
	cron   *cron.Cron
}

func NewProber(loader Loader, expr string, c *cron.Cron) *Prober {
	return &Prober{
		loader: loader,
		expr:   expr,
		cron:   c,
	}
}

// Schedule registers the probe job. An empty expression disables probing.
func (p *Prober) Schedule(ctx context.Context) error {
	if p.expr == "" {
		log.Info("Model probe disabled")
		return nil
	}
	if _, err := p.cron.AddFunc(p.expr, func() { p.Run(ctx) }); err != nil {
		return fmt.Errorf("schedule model probe %q: %w", p.expr, err)
	}
	log.Info("Model probe scheduled: %s", p.expr)
	return nil
}

// Run performs a single probe.
func (p *Prober) Run(ctx context.Context) {
	if p.loader.Loaded() {
		return
	}
	if err := p.loader.Load(ctx); err != nil {
		log.Warn("Model probe failed: %v", err)
		return
	}
	log.Info("Model became available")
}

// NextProbe returns when the next attempt is due. It reports false when the
// model is loaded or probing is disabled.
func (p *Prober) NextProbe() (time.Time, bool) {
	if p.expr == "" || p.loader.Loaded() {
		return time.Time{}, false
	}
	info, err := icron.GetTriggerInfo(p.expr, time.Now())
	if err != nil {
		return time.Time{}, false
	}
	return info.Next, true
}
