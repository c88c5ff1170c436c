package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/gridpursuit/internal/config"
	"github.com/freeeve/gridpursuit/internal/feed"
	"github.com/freeeve/gridpursuit/internal/logger"
	"github.com/freeeve/gridpursuit/internal/store"
	"github.com/freeeve/gridpursuit/internal/train"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	var (
		configPath  string
		policyPath  string
		valuesPath  string
		maxIter     int
		valueTol    float64
		actionTol   int
		actionPct   float64
		workers     int
		label       string
		publishName string
		listenAddr  string
		dbURL       string
		dryRun      bool
	)

	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&policyPath, "p", "", "Where to save the policy (overrides POLICY)")
	flag.StringVar(&valuesPath, "values", "", "Also dump the value function (npy) here")
	flag.IntVar(&maxIter, "max-iter", 0, "Maximum number of iterations (overrides MAXITER)")
	flag.Float64Var(&valueTol, "value-tol", 0, "Value change stop threshold (overrides VALUETOLERANCE)")
	flag.IntVar(&actionTol, "action-tol", 0, "Changed-action count stop threshold (overrides ACTIONTOLERANCE)")
	flag.Float64Var(&actionPct, "action-pct-tol", 0, "Changed-action percentage stop threshold (overrides ACTIONPERCTOLERANCE)")
	flag.IntVar(&workers, "workers", 0, "Worker count (overrides PROCESSES)")
	flag.StringVar(&label, "label", "train", "Run label for the run history")
	flag.StringVar(&publishName, "publish", "", "Also publish the policy to Redis under this name")
	flag.StringVar(&listenAddr, "listen", "", "Serve the live stats feed on this address (e.g. :8009)")
	flag.StringVar(&dbURL, "db", "", "Database URL for run history (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "Skip policy writes and run history")
	flag.Parse()

	if configPath == "" && flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}
	if configPath == "" {
		log.Fatal().Msg("Usage: train [-config] <config-file>")
	}

	cfg := config.NewTrainConfig()
	if err := cfg.LoadFile(configPath, nil); err != nil {
		log.Fatal().Err(err).Msg("Load configuration")
	}
	applyOverrides(cfg, policyPath, maxIter, valueTol, actionTol, actionPct, workers)

	sp, params, err := cfg.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("Build configuration")
	}
	if !dryRun && cfg.PolicyPath == "" {
		log.Fatal().Msg("No POLICY path configured; use -p or -dry-run")
	}

	trainer, err := train.NewTrainer(params)
	if err != nil {
		log.Fatal().Err(err).Msg("Build trainer")
	}
	log.Info().
		Int("width", cfg.Width).Int("height", cfg.Height).
		Int("states", sp.Size()).
		Int("workers", cfg.Workers).
		Float64("discount", cfg.Discount).
		Msg("Training configured")

	trainer.AddObserver(train.ObserverFunc(func(stats train.IterationStats) {
		log.Info().
			Int("iteration", stats.Iteration).
			Float64("maxValueDelta", stats.MaxValueDelta).
			Int("changedActions", stats.ChangedActions).
			Str("changedPct", strconv.FormatFloat(stats.ChangedActionsPct*100, 'f', 2, 64)+"%").
			Msg("Iteration")
	}))

	var hub *feed.Hub
	if listenAddr != "" {
		hub = feed.NewHub()
		trainer.AddObserver(hub)
		go func() {
			log.Info().Str("addr", listenAddr).Msg("Stats feed listening")
			if err := http.ListenAndServe(listenAddr, hub); err != nil {
				log.Error().Err(err).Msg("Stats feed stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	var runRepo *store.RunRepo
	var runID int64
	if !dryRun {
		if dbURL == "" {
			dbURL = config.LoadEnv().DatabaseURL
		}
		if dbURL != "" {
			db, err := store.Connect(dbURL)
			if err != nil {
				log.Fatal().Err(err).Msg("Connect run history database")
			}
			defer db.Close()
			runRepo = store.NewRunRepo(db)
			if err := runRepo.EnsureSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("Ensure run schema")
			}
			runID, err = runRepo.CreateRun(ctx, store.RunInfo{
				Label:      label,
				GridWidth:  cfg.Width,
				GridHeight: cfg.Height,
				States:     sp.Size(),
				Discount:   cfg.Discount,
				Workers:    cfg.Workers,
			})
			if err != nil {
				log.Fatal().Err(err).Msg("Create run record")
			}
			trainer.AddObserver(train.ObserverFunc(func(stats train.IterationStats) {
				if err := runRepo.RecordIteration(ctx, runID, stats); err != nil {
					log.Warn().Err(err).Int("iteration", stats.Iteration).Msg("Record iteration")
				}
			}))
		}
	}

	res, err := trainer.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Training aborted")
	}
	if hub != nil {
		hub.Finish(res.Outcome.String(), res.Final)
	}
	if runRepo != nil {
		if err := runRepo.FinishRun(ctx, runID, res.Outcome.String(), res.Iterations); err != nil {
			log.Warn().Err(err).Msg("Finish run record")
		}
	}
	if dryRun {
		return
	}

	if err := store.SavePolicy(cfg.PolicyPath, res.Policy); err != nil {
		log.Fatal().Err(err).Msg("Save policy")
	}
	log.Info().Str("path", cfg.PolicyPath).Int("states", res.Policy.Size()).Msg("Policy saved")

	if valuesPath != "" {
		if err := store.SaveValues(valuesPath, res.Values.Dense()); err != nil {
			log.Fatal().Err(err).Msg("Save value function")
		}
		log.Info().Str("path", valuesPath).Msg("Value function saved")
	}

	if publishName != "" {
		redisURL := config.LoadEnv().RedisURL
		if redisURL == "" {
			log.Fatal().Msg("-publish needs REDIS_URL")
		}
		rs, err := store.NewRedisStore(redisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Connect Redis")
		}
		defer rs.Close()
		if err := rs.SavePolicy(ctx, publishName, res.Policy); err != nil {
			log.Fatal().Err(err).Msg("Publish policy")
		}
		log.Info().Str("name", publishName).Msg("Policy published")
	}
}

// applyOverrides lets explicitly set CLI flags win over the directive file.
func applyOverrides(cfg *config.TrainConfig, policyPath string, maxIter int, valueTol float64, actionTol int, actionPct float64, workers int) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.PolicyPath = policyPath
		case "max-iter":
			cfg.MaxIter = maxIter
		case "value-tol":
			cfg.ValueTolerance = valueTol
		case "action-tol":
			cfg.ActionTolerance = actionTol
		case "action-pct-tol":
			cfg.ActionPercTolerance = actionPct
		case "workers":
			cfg.Workers = workers
		}
	})
}
