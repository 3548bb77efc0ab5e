package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"vega/config"
	"vega/domain/engine"
	"vega/infra/kafka"
	"vega/jobs/broadcaster"
	"vega/jobs/feed"
	"vega/journal"
	"vega/logging"
	"vega/service"
	"vega/sim"
	"vega/snapshot"
	"vega/tradestore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simulator:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(engine.Config{SelfMatch: selfMatchPolicy(cfg.Market.SelfMatch)})

	jrnl, err := journal.Open(journal.Config{
		Dir:             cfg.Journal.Dir,
		SegmentSize:     cfg.Journal.SegmentSize,
		SegmentDuration: cfg.Journal.SegmentDuration.Std(),
		FlushInterval:   cfg.Journal.FlushInterval.Std(),
		Serializer:      serializerFor(cfg.Journal.Format),
	})
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jrnl.Close()

	// Recover: snapshot first, then the journal records since. Records the
	// snapshot already covers are skipped; a crash between snapshot write
	// and journal truncation otherwise replays them twice.
	snapMeta, err := snapshot.Load(snapshot.Path(cfg.Snapshot.Dir), eng)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	jrnlSeq, err := service.ReplayJournal(jrnl, eng, snapMeta.JournalSeq)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	if snapMeta.Seq > 0 || jrnlSeq > 0 {
		log.Info("state recovered",
			zap.Uint64("snapshot_seq", snapMeta.Seq),
			zap.Uint64("journal_seq", jrnlSeq),
			zap.Int("active_orders", eng.Book().Len()),
		)
	}

	runID := uuid.New().String()

	var sink *tradestore.Store
	if cfg.Kafka.Enabled {
		sink, err = tradestore.Open(cfg.Kafka.OutboxDir)
		if err != nil {
			return fmt.Errorf("open trade outbox: %w", err)
		}
		defer sink.Close()
	}

	svc := service.NewOrderService(eng, jrnl, sink, runID, log)

	if cfg.Kafka.Enabled {
		bc, err := broadcaster.New(sink, cfg.Kafka.Brokers, cfg.Kafka.TradeTopic, cfg.Kafka.Interval.Std(), log)
		if err != nil {
			return fmt.Errorf("start broadcaster: %w", err)
		}
		defer bc.Close()
		bc.Start(ctx)

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DepthTopic)
		defer producer.Close()
		feed.New(svc, producer, runID, cfg.Kafka.DepthLevels, cfg.Kafka.Interval.Std(), log).Start(ctx)
	}

	if cfg.Snapshot.Interval > 0 {
		svc.StartSnapshotJob(ctx, cfg.Snapshot.Dir, cfg.Snapshot.Interval.Std())
	}

	scale, err := sim.NewScale(cfg.Market.TickSize, cfg.Market.LotSize)
	if err != nil {
		return err
	}
	basePrice, err := decimal.NewFromString(cfg.Market.BasePrice)
	if err != nil {
		return fmt.Errorf("base price: %w", err)
	}
	traders, err := buildTraders(cfg, basePrice)
	if err != nil {
		return err
	}

	// The engine's id high-water mark covers filled and cancelled orders
	// too, so recovered runs never reuse an id the journal has seen.
	simulation := sim.New(svc, scale, basePrice, traders, cfg.Sim.DT, eng.HighestOrderID()+1, log)
	log.Info("simulation starting",
		zap.String("run_id", runID),
		zap.String("symbol", cfg.Market.Symbol),
		zap.Int64("seed", cfg.Sim.Seed),
		zap.Int("steps", cfg.Sim.Steps),
		zap.Int("traders", len(traders)),
	)

	stats, runErr := simulation.Run(ctx, cfg.Sim.Steps)
	log.Info("simulation finished",
		zap.Int("steps", stats.Steps),
		zap.Int("submitted", stats.Submitted),
		zap.Int("accepted", stats.Accepted),
		zap.Int("rejected", stats.Rejected),
		zap.Int("cancelled", stats.Cancelled),
		zap.Int("trades", stats.Trades),
		zap.Int64("volume_lots", stats.Volume),
		zap.Float64("vwap_ticks", stats.VWAP()),
		zap.Int64("high_ticks", stats.HighTicks),
		zap.Int64("low_ticks", stats.LowTicks),
	)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return jrnl.Sync()
}

func selfMatchPolicy(s string) engine.SelfMatchPolicy {
	switch s {
	case "cancel-taker":
		return engine.SelfMatchCancelTaker
	case "cancel-resting":
		return engine.SelfMatchCancelResting
	default:
		return engine.SelfMatchAllow
	}
}

func serializerFor(format string) journal.Serializer {
	if format == "proto" {
		return journal.ProtoSerializer{}
	}
	return journal.BinarySerializer{}
}

func buildTraders(cfg *config.Config, basePrice decimal.Decimal) ([]sim.Trader, error) {
	var traders []sim.Trader
	owner := uint64(1)
	seed := cfg.Sim.Seed

	for i, nc := range cfg.Sim.Noise {
		minQty, err := decimal.NewFromString(nc.MinQty)
		if err != nil {
			return nil, fmt.Errorf("noise trader %d min_qty: %w", i, err)
		}
		maxQty, err := decimal.NewFromString(nc.MaxQty)
		if err != nil {
			return nil, fmt.Errorf("noise trader %d max_qty: %w", i, err)
		}
		name := fmt.Sprintf("noise-%d", i+1)
		traders = append(traders, sim.NewNoiseTrader(owner, name, seed+int64(owner), nc.LambdaRate, nc.PriceVol, minQty, maxQty))
		owner++
	}

	for i, ic := range cfg.Sim.Informed {
		trueValue := basePrice
		if ic.TrueValue != "" {
			v, err := decimal.NewFromString(ic.TrueValue)
			if err != nil {
				return nil, fmt.Errorf("informed trader %d true_value: %w", i, err)
			}
			trueValue = v
		}
		maxQty, err := decimal.NewFromString(ic.MaxQty)
		if err != nil {
			return nil, fmt.Errorf("informed trader %d max_qty: %w", i, err)
		}
		name := fmt.Sprintf("informed-%d", i+1)
		traders = append(traders, sim.NewInformedTrader(owner, name, seed+int64(owner), ic.LambdaRate, trueValue, ic.Threshold, ic.InfoStrength, maxQty))
		owner++
	}

	for i, mc := range cfg.Sim.MarketMakers {
		offset, err := decimal.NewFromString(mc.Offset)
		if err != nil {
			return nil, fmt.Errorf("market maker %d offset: %w", i, err)
		}
		baseSize, err := decimal.NewFromString(mc.BaseSize)
		if err != nil {
			return nil, fmt.Errorf("market maker %d base_size: %w", i, err)
		}
		invLimit, err := decimal.NewFromString(mc.InvLimit)
		if err != nil {
			return nil, fmt.Errorf("market maker %d inv_limit: %w", i, err)
		}
		refreshAbs, err := decimal.NewFromString(mc.RefreshAbs)
		if err != nil {
			return nil, fmt.Errorf("market maker %d refresh_abs: %w", i, err)
		}
		name := fmt.Sprintf("maker-%d", i+1)
		traders = append(traders, sim.NewMarketMaker(owner, name, seed+int64(owner), offset, baseSize, mc.SizeJitter, invLimit, refreshAbs))
		owner++
	}

	if len(traders) == 0 {
		// A bare run still needs flow; seed a default population.
		minQty := decimal.NewFromInt(1)
		maxQty := decimal.NewFromInt(10)
		for i := 0; i < 4; i++ {
			name := fmt.Sprintf("noise-%d", i+1)
			traders = append(traders, sim.NewNoiseTrader(owner, name, seed+int64(owner), 0.8, 0.01, minQty, maxQty))
			owner++
		}
		traders = append(traders, sim.NewMarketMaker(owner, "maker-1", seed+int64(owner),
			decimal.NewFromFloat(0.05), decimal.NewFromInt(5), 0.2,
			decimal.NewFromInt(100), decimal.NewFromFloat(0.10)))
	}
	return traders, nil
}
