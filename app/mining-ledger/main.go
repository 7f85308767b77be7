package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/transx/mining-ledger/api"
	"github.com/transx/mining-ledger/business/domain/aggregate"
	"github.com/transx/mining-ledger/business/domain/mining"
	"github.com/transx/mining-ledger/business/domain/params"
	"github.com/transx/mining-ledger/entities"
	"github.com/transx/mining-ledger/external/elastic"
	"github.com/transx/mining-ledger/external/kafka"
	"github.com/transx/mining-ledger/external/ledger"
	"github.com/transx/mining-ledger/external/registry"
	"github.com/transx/mining-ledger/infrastructure/store/pebbledb"
	"github.com/transx/mining-ledger/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "TRANSX_MINING_LEDGER"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		InternalStoreFolder string        `conf:"default:store"`
		ServerListenAddr    string        `conf:"default:0.0.0.0:8000"`
		RegistryFile        string        `conf:"default:"`
		BlockInterval       time.Duration `conf:"default:6s"`
		EpochLength         uint64        `conf:"default:14400"`
		RetentionEpochs     uint64        `conf:"default:7"`
		TreasuryBalance     uint64        `conf:"default:105000000000000000"`
		TreasuryMinBalance  uint64        `conf:"default:100000000"`
		Kafka               struct {
			Enabled          bool     `conf:"default:false"`
			BootstrapServers []string `conf:"default:localhost:9092"`
			EventTopic       string   `conf:"default:transx-mining-events"`
		}
		Elastic struct {
			Enabled     bool          `conf:"default:false"`
			Address     string        `conf:"default:http://localhost:9200"`
			Index       string        `conf:"default:transx-epoch-archives"`
			ReadTimeout time.Duration `conf:"default:20s"`
		}
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	ledgerStore, err := pebbledb.NewLedgerStore(cfg.InternalStoreFolder)
	if err != nil {
		return fmt.Errorf("creating ledger store: %v", err)
	}
	defer ledgerStore.Close()

	defaults := params.Default()
	defaults.EpochLength = cfg.EpochLength
	defaults.RetentionEpochs = cfg.RetentionEpochs
	paramStore, err := params.NewStore(defaults)
	if err != nil {
		return fmt.Errorf("creating parameter store: %v", err)
	}

	agg := aggregate.NewStore(cfg.EpochLength, aggregate.BaselineFloors{
		MinParticipants: defaults.BaselineMinParticipants,
		MinAmountScore:  defaults.BaselineMinAmountScore,
		MinCountScore:   defaults.BaselineMinCountScore,
	})

	var publisher mining.Publisher
	if cfg.Kafka.Enabled {
		kcl, err := kgo.NewClient(
			kgo.DefaultProduceTopic(cfg.Kafka.EventTopic),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return errors.Wrap(err, "creating kafka client")
		}
		defer kcl.Close()
		publisher = kafka.NewClient(kcl)
	}

	var archiver mining.Archiver
	if cfg.Elastic.Enabled {
		esClient, err := elastic.NewClient(cfg.Elastic.Address, cfg.Elastic.Index, cfg.Elastic.ReadTimeout)
		if err != nil {
			return fmt.Errorf("creating elastic client: %v", err)
		}
		archiver = esClient
	}

	participants := registry.NewRegistry()
	if cfg.RegistryFile != "" {
		participants, err = registry.LoadFile(cfg.RegistryFile)
		if err != nil {
			return fmt.Errorf("loading registry file: %v", err)
		}
	}

	balances := ledger.NewLedger(cfg.TreasuryBalance, cfg.TreasuryMinBalance)
	procMetrics := metrics.NewProcessingMetrics("transx_mining_ledger")

	proc := mining.NewProcessor(paramStore, agg, ledgerStore, participants, participants,
		balances, publisher, archiver, procMetrics, sLogger)

	if publisher != nil {
		events := publisher
		paramStore.OnChange(func(parameter string) {
			// best effort, a lost parameter event does not affect accounting
			err := events.Publish(context.Background(), []entities.Event{{
				Type:      entities.EventTypeParameterChanged,
				Parameter: parameter,
			}})
			if err != nil {
				sLogger.Errorw("error publishing parameter change", "parameter", parameter, "error", err)
			}
		})
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The block clock: in production this is driven by finalized-block
	// notifications; here a wall-clock ticker advances the height, resuming
	// from the last persisted height after a restart.
	startHeight, err := ledgerStore.GetLastHeight()
	if err != nil && !errors.Is(err, entities.ErrStoreEntityNotFound) {
		return fmt.Errorf("reading last height: %v", err)
	}

	blockErrors := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(cfg.BlockInterval)
		defer ticker.Stop()

		height := startHeight
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				height++
				if err := proc.OnBlockFinalize(ctx, height); err != nil {
					blockErrors <- err
					return
				}
			}
		}
	}()

	handler := api.NewHandler(proc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/submissions", handler.PostSubmission)
	mux.HandleFunc("POST /v1/verifications", handler.PostVerification)
	mux.HandleFunc("GET /v1/records", handler.GetRecord)
	mux.HandleFunc("GET /v1/status", handler.GetStatus)
	mux.HandleFunc("GET /v1/health", handler.GetHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- http.ListenAndServe(cfg.ServerListenAddr, mux)
	}()

	for {
		select {
		case <-shutdown:
			return errors.New("shutting down")
		case err := <-blockErrors:
			return fmt.Errorf("block processing error: %v", err)
		case err := <-serverErr:
			return fmt.Errorf("server error: %v", err)
		}
	}
}
