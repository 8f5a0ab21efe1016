package usecase

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	mid "TrendPulse/internal/middleware"
	"TrendPulse/pkg/logger"
	"TrendPulse/pkg/util"
)

// EventProcessor applies settlement-layer events to the stores: trades are
// recorded with their volume buckets, item statistics are refreshed, and
// the item is marked for a trend rescore.
type EventProcessor struct {
	items        drepo.ItemStore
	activity     drepo.ActivityStore
	trends       drepo.TrendStore
	orchestrator *Orchestrator
	metrics      drepo.Metrics
	log          *logger.Logger
}

func NewEventProcessor(
	items drepo.ItemStore,
	activity drepo.ActivityStore,
	trends drepo.TrendStore,
	orch *Orchestrator,
	metrics drepo.Metrics,
	log *logger.Logger,
) *EventProcessor {
	return &EventProcessor{
		items:        items,
		activity:     activity,
		trends:       trends,
		orchestrator: orch,
		metrics:      metrics,
		log:          log,
	}
}

// Process handles one decoded ledger event.
func (p *EventProcessor) Process(ctx context.Context, ev *models.LedgerEvent) error {
	switch ev.Kind {
	case models.EventPurchase, models.EventSale:
		if err := p.recordTrade(ctx, ev); err != nil {
			return err
		}
	case models.EventStake, models.EventUnstake, models.EventFeeClaim:
		// statistics refresh trigger only
	default:
		return fmt.Errorf("event processor: unknown kind %q", ev.Kind)
	}

	p.orchestrator.MarkForUpdate(ctx, ev.ItemID)
	return nil
}

func (p *EventProcessor) recordTrade(ctx context.Context, ev *models.LedgerEvent) error {
	side := "buy"
	if ev.Kind == models.EventSale {
		side = "sell"
	}
	volume := float64(ev.Amount)

	trade := &models.Trade{
		ID:        fmt.Sprintf("%s-%d", ev.ItemID, ev.Timestamp.UnixNano()),
		ItemID:    ev.ItemID,
		Buyer:     ev.Wallet,
		Side:      side,
		Amount:    ev.Amount,
		Price:     ev.Price,
		Volume:    volume,
		Timestamp: ev.Timestamp,
	}
	if err := p.activity.RecordTrade(ctx, trade); err != nil {
		p.metrics.RecordError("trade_record")
		return err
	}

	if err := p.trends.AddVolume(ctx, ev.ItemID, util.BucketMinute(ev.Timestamp), volume); err != nil {
		// bucket loss degrades the volume factors but must not fail the trade
		p.metrics.RecordError("volume_bucket")
		p.log.Warn("volume bucket write failed", logger.String("item", ev.ItemID), logger.Error(err))
	}

	if err := p.refreshStats(ctx, ev); err != nil {
		p.metrics.RecordError("stats_refresh")
		p.log.Warn("item stats refresh failed", logger.String("item", ev.ItemID), logger.Error(err))
	}
	return nil
}

// refreshStats recomputes price, 24h volume, and 24h price change from the
// trade window.
func (p *EventProcessor) refreshStats(ctx context.Context, ev *models.LedgerEvent) error {
	trades, err := p.activity.Trades24h(ctx, ev.ItemID, time.Now())
	if err != nil {
		return err
	}

	var volume24h float64
	for _, t := range trades {
		volume24h += t.Volume
	}

	var priceChange float64
	if len(trades) > 1 {
		oldest := trades[len(trades)-1]
		if oldest.Price > 0 {
			priceChange = float64(ev.Price-oldest.Price) / float64(oldest.Price) * 100
		}
	}

	return p.items.UpdateStats(ctx, ev.ItemID, ev.Price, volume24h, priceChange)
}

// EventCollector reads the ledger stream and feeds events through the
// pipeline into the processor.
type EventCollector struct {
	stream  drepo.LedgerStream
	proc    *EventProcessor
	metrics drepo.Metrics
	pipe    *mid.EventPipeline
	log     *logger.Logger
}

func NewEventCollector(stream drepo.LedgerStream, proc *EventProcessor, metrics drepo.Metrics, pipe *mid.EventPipeline, log *logger.Logger) *EventCollector {
	return &EventCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe, log: log}
}

// IsConnected returns true if the ledger stream is connected.
func (c *EventCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *EventCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *EventCollector) consume(ctx context.Context, evCh <-chan *models.LedgerEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			c.metrics.RecordError("stream")
			c.log.Warn("ledger stream error, reconnecting", logger.Error(err))
			for ctx.Err() == nil {
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Error("ledger reconnect failed", logger.Error(rerr))
					continue
				}
				evCh, errCh = c.stream.Read(ctx)
				break
			}
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			if ev == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, ev)
			} else {
				_ = c.proc.Process(ctx, ev)
			}
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *EventCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
