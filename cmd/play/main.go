package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/gridpursuit/internal/config"
	"github.com/freeeve/gridpursuit/internal/game"
	"github.com/freeeve/gridpursuit/internal/logger"
	"github.com/freeeve/gridpursuit/internal/store"
	"github.com/freeeve/gridpursuit/pkg/gridworld"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	var (
		configPath    string
		policyPath    string
		fromRedis     string
		agentStart    string
		targetStart   string
		opponentStart string
		seed          int64
		maxSteps      int
	)

	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.StringVar(&policyPath, "p", "", "Path to the policy file (overrides POLICY)")
	flag.StringVar(&fromRedis, "from-redis", "", "Load the policy from Redis under this name instead of a file")
	flag.StringVar(&agentStart, "agent", "", "Agent start position x,y (overrides AGENT)")
	flag.StringVar(&targetStart, "target", "", "Target start position x,y (overrides TARGET)")
	flag.StringVar(&opponentStart, "opponent", "", "Opponent start position x,y (overrides OPPONENT)")
	flag.Int64Var(&seed, "seed", 0, "Trajectory seed (0 = random)")
	flag.IntVar(&maxSteps, "max-steps", 1000, "Step cap (0 = unlimited)")
	flag.Parse()

	if configPath == "" && flag.NArg() > 0 {
		configPath = flag.Arg(0)
	}
	if configPath == "" {
		log.Fatal().Msg("Usage: play [-config] <config-file>")
	}

	cfg := config.NewGameConfig()
	if err := cfg.LoadFile(configPath, nil); err != nil {
		log.Fatal().Err(err).Msg("Load configuration")
	}
	if policyPath != "" {
		cfg.PolicyPath = policyPath
	}
	overrideStart(&cfg.AgentStart, agentStart)
	overrideStart(&cfg.TargetStart, targetStart)
	overrideStart(&cfg.OpponentStart, opponentStart)

	sp, start, err := cfg.Build()
	if err != nil {
		log.Fatal().Err(err).Msg("Build configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	policy, err := loadPolicy(ctx, cfg.PolicyPath, fromRedis)
	if err != nil {
		log.Fatal().Err(err).Msg("Load policy")
	}

	session, err := game.NewSession(game.Params{
		Space:            sp,
		Start:            start,
		Policy:           policy,
		AgentModel:       cfg.AgentModel,
		TargetModel:      cfg.TargetModel,
		OpponentModel:    cfg.OpponentModel,
		TargetBehavior:   cfg.TargetBehavior,
		OpponentBehavior: cfg.OpponentBehavior,
		Seed:             seed,
		MaxSteps:         maxSteps,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Build session")
	}

	session.AddObserver(game.StepObserverFunc(func(data game.StepData) {
		log.Info().
			Int("step", data.Step).
			Str("agent", posString(data.State.Agent)).
			Str("target", posString(data.State.Target)).
			Str("opponent", posString(data.State.Opponent)).
			Str("agentAction", actionString(data.AgentAction)).
			Str("result", data.Result.String()).
			Msg("Step")
	}))

	result, steps, err := session.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Session aborted")
	}
	log.Info().Str("result", result.String()).Int("steps", steps).Msg("Session finished")
}

// loadPolicy reads the policy from Redis when -from-redis is set, from the
// configured file otherwise.
func loadPolicy(ctx context.Context, path, redisName string) (*gridworld.Policy, error) {
	if redisName != "" {
		redisURL := config.LoadEnv().RedisURL
		if redisURL == "" {
			return nil, fmt.Errorf("-from-redis needs REDIS_URL")
		}
		rs, err := store.NewRedisStore(redisURL)
		if err != nil {
			return nil, err
		}
		defer rs.Close()
		p, err := rs.LoadPolicy(ctx, redisName)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("no policy published under %q", redisName)
		}
		return p, nil
	}
	if path == "" {
		return nil, fmt.Errorf("no POLICY path configured; use -p or -from-redis")
	}
	return store.LoadPolicy(path)
}

// overrideStart parses an "x,y" flag into a start position.
func overrideStart(pos *gridworld.Position, arg string) {
	if arg == "" {
		return
	}
	parts := strings.Split(arg, ",")
	if len(parts) != 2 {
		log.Fatal().Str("arg", arg).Msg("Start positions look like x,y")
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errY != nil {
		log.Fatal().Str("arg", arg).Msg("Start positions look like x,y")
	}
	pos.X, pos.Y = x, y
}

func posString(p gridworld.Position) string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func actionString(a gridworld.Action) string {
	if a == game.NoAction {
		return "-"
	}
	return a.String()
}
