package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/digkill/TGPromoNFTBot/internal/metrics"
	"github.com/digkill/TGPromoNFTBot/internal/repository"
)

// PendingMonitor periodically reports tokens whose collection address is
// still unknown.
type PendingMonitor struct {
	log      *slog.Logger
	nfts     *repository.NftRepository
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewPendingMonitor(log *slog.Logger, nfts *repository.NftRepository, m *metrics.Metrics, interval time.Duration) *PendingMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PendingMonitor{log: log, nfts: nfts, metrics: m, interval: interval}
}

func (p *PendingMonitor) Run(ctx context.Context) error {
	p.log.Info("pending nft monitor started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Check(ctx); err != nil && ctx.Err() == nil {
			p.log.Error("check pending nfts", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Check counts pending tokens and publishes the count.
func (p *PendingMonitor) Check(ctx context.Context) (int, error) {
	tokens, err := p.nfts.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	p.metrics.SetPending(len(tokens))
	if len(tokens) > 0 {
		oldest := tokens[0].MintedAt
		for _, t := range tokens[1:] {
			if t.MintedAt.Before(oldest) {
				oldest = t.MintedAt
			}
		}
		p.log.Info("nft addresses awaiting resolution", "count", len(tokens), "oldest_age", time.Since(oldest).Round(time.Second).String())
	}
	return len(tokens), nil
}
