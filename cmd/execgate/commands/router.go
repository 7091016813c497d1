package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/internal/container"
	"github.com/slok/execgate/internal/container/docker"
	"github.com/slok/execgate/internal/conventions"
	"github.com/slok/execgate/internal/instance"
	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/metrics"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/platform"
	"github.com/slok/execgate/internal/proxy"
	"github.com/slok/execgate/internal/router"
	"github.com/slok/execgate/internal/storage"
	"github.com/slok/execgate/internal/storage/io"
	"github.com/slok/execgate/internal/storage/memory"
	"github.com/slok/execgate/internal/storage/redis"
	"github.com/slok/execgate/internal/storage/sqlite"
	utilsenv "github.com/slok/execgate/internal/utils/env"
)

const (
	storeMemory = "memory"
	storeSQLite = "sqlite"
	storeRedis  = "redis"

	selectorRandom     = "random"
	selectorRoundRobin = "round-robin"
)

// RouterCommand runs the front door router.
type RouterCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr  string
	configPath  string
	state       string
	kv          string
	kvSet       []string
	redisAddr   string
	blobDir     string
	aiURL       string
	aiToken     string
	workflowURL string
	noMetrics   bool
	selector    string

	dockerImage    string
	dockerSkipPull bool
	envSpecs       []string
}

// NewRouterCommand returns the router command.
func NewRouterCommand(rootCmd *RootCommand, app *kingpin.Application) *RouterCommand {
	c := &RouterCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("router", "Run the front door router.")
	c.Cmd.Flag("listen-addr", "Address the router listens on.").Default(router.DefaultListenAddr).StringVar(&c.listenAddr)
	c.Cmd.Flag("config", "Path to a router YAML config file.").StringVar(&c.configPath)
	c.Cmd.Flag("state", "Instance state store.").Default(storeMemory).EnumVar(&c.state, storeMemory, storeSQLite)
	c.Cmd.Flag("kv", "Key value store of the /kv route.").Default(storeMemory).EnumVar(&c.kv, storeMemory, storeSQLite, storeRedis)
	c.Cmd.Flag("kv-set", "KEY=VALUE stored on the key value store at startup. Can be repeated.").StringsVar(&c.kvSet)
	c.Cmd.Flag("redis-addr", "Redis address of the redis key value store.").Default("127.0.0.1:6379").StringVar(&c.redisAddr)
	c.Cmd.Flag("blob-dir", "Directory of the /image route blobs (defaults to the data dir one).").StringVar(&c.blobDir)
	c.Cmd.Flag("ai-url", "Inference API base URL, enables the /ai route.").Envar(conventions.EnvVarPrefix + "_AI_URL").StringVar(&c.aiURL)
	c.Cmd.Flag("ai-token", "Inference API token.").Envar(conventions.EnvVarPrefix + "_AI_TOKEN").StringVar(&c.aiToken)
	c.Cmd.Flag("workflow-url", "Workflow service URL, enables the /workflow route.").StringVar(&c.workflowURL)
	c.Cmd.Flag("selector", "Instance selection strategy.").Default(selectorRandom).EnumVar(&c.selector, selectorRandom, selectorRoundRobin)
	c.Cmd.Flag("no-metrics", "Disable the /metrics route.").BoolVar(&c.noMetrics)
	c.Cmd.Flag("docker-image", "Run the pool instances as containers of this image.").StringVar(&c.dockerImage)
	c.Cmd.Flag("docker-skip-pull", "Use the local image without pulling it.").BoolVar(&c.dockerSkipPull)
	c.Cmd.Flag("env", "Container environment variables (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&c.envSpecs)

	return c
}

func (c RouterCommand) Name() string { return c.Cmd.FullCommand() }

func (c RouterCommand) Run(ctx context.Context) (err error) {
	logger := c.rootCmd.Logger

	routes := model.DefaultRouterConfig()
	if c.configPath != "" {
		path, err := rootRelPath(c.configPath)
		if err != nil {
			return err
		}

		routes, err = io.NewConfigYAMLRepository(os.DirFS("/")).GetRouterConfig(ctx, path)
		if err != nil {
			return fmt.Errorf("could not load router config: %w", err)
		}
	}

	// Storage.
	var sqliteRepo *sqlite.Repository
	if c.state == storeSQLite || c.kv == storeSQLite {
		sqliteRepo, err = sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
			DBPath: c.rootCmd.ResolvedDBPath(),
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create repository: %w", err)
		}
		defer sqliteRepo.Close()
	}

	memRepo, err := memory.NewRepository(memory.RepositoryConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}

	var instanceRepo storage.InstanceRepository = memRepo
	if c.state == storeSQLite {
		instanceRepo = sqliteRepo
	}

	var kvRepo storage.KVRepository
	switch c.kv {
	case storeSQLite:
		kvRepo = sqliteRepo
	case storeRedis:
		client, err := redis.NewClient(ctx, c.redisAddr)
		if err != nil {
			return err
		}
		defer client.Close()

		kvRepo, err = redis.NewRepository(redis.RepositoryConfig{
			Client: client,
			Logger: logger,
		})
		if err != nil {
			return fmt.Errorf("could not create redis repository: %w", err)
		}
	default:
		kvRepo = memRepo
	}

	if err := seedKV(ctx, kvRepo, c.kvSet); err != nil {
		return err
	}

	// Platform services.
	forwarder, err := proxy.NewForwarder(proxy.ForwarderConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create forwarder: %w", err)
	}

	blobDir := c.blobDir
	if blobDir == "" {
		blobDir = conventions.BlobsPath(c.rootCmd.DataDir)
	}
	blobs, err := platform.NewDirBlobStore(platform.DirBlobStoreConfig{
		Dir:    blobDir,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create blob store: %w", err)
	}

	var inference platform.Inference
	if c.aiURL != "" {
		inference, err = platform.NewHTTPInference(platform.HTTPInferenceConfig{
			BaseURL: c.aiURL,
			Token:   c.aiToken,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("could not create inference client: %w", err)
		}
	}

	var workflow *platform.ServiceForwarder
	if c.workflowURL != "" {
		workflow, err = platform.NewServiceForwarder(platform.ServiceForwarderConfig{
			URL:       c.workflowURL,
			Forwarder: forwarder,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("could not create workflow forwarder: %w", err)
		}
	}

	var observer router.Observer = router.NewLogObserver(logger)
	var recorder *metrics.Recorder
	if !c.noMetrics {
		recorder = metrics.NewRecorder()
		observer = router.MultiObserver{observer, recorder}
	}

	// Container backed pools replace the configured instances.
	if c.dockerImage != "" {
		var (
			pools []model.Pool
			stop  func(context.Context) error
		)
		pools, stop, err = c.startContainers(ctx, routes.Pools, logger)
		if err != nil {
			return err
		}
		defer func() {
			// The run context is already cancelled at this point.
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if stopErr := stop(stopCtx); stopErr != nil {
				err = errors.Join(err, stopErr)
			}
		}()
		routes.Pools = pools
	}

	var selector instance.Selector = instance.NewRandomSelector(nil)
	if c.selector == selectorRoundRobin {
		selector = instance.NewRoundRobinSelector()
	}

	cfg := router.ServerConfig{
		ListenAddr: c.listenAddr,
		Routes:     routes,
		Repository: instanceRepo,
		Selector:   selector,
		Forwarder:  forwarder,
		KV:         kvRepo,
		Blobs:      blobs,
		Inference:  inference,
		Observer:   observer,
		Logger:     logger,
	}
	// Nil pointers must not end in the interfaces.
	if workflow != nil {
		cfg.Workflow = workflow
	}
	if recorder != nil {
		cfg.Metrics = recorder.Handler()
	}

	srv, err := router.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("could not create router server: %w", err)
	}

	return srv.Run(ctx)
}

func (c RouterCommand) startContainers(ctx context.Context, pools []model.Pool, logger log.Logger) ([]model.Pool, func(context.Context) error, error) {
	env, err := utilsenv.ParseSpecs(c.envSpecs)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --env value: %w", err)
	}

	runtime, err := docker.NewRuntime(docker.RuntimeConfig{
		SkipPull: c.dockerSkipPull,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create docker runtime: %w", err)
	}

	hooks := container.Hooks{
		OnStart: func(_ context.Context, spec model.ContainerSpec) {
			logger.Infof("container %s started", spec.Name)
		},
		OnError: func(_ context.Context, spec model.ContainerSpec, err error) {
			logger.Errorf("container %s failed: %s", spec.Name, err)
		},
	}

	var (
		started    []*container.Pool
		routePools = make([]model.Pool, 0, len(pools))
		basePort   = 9001
	)
	stopAll := func(ctx context.Context) error {
		var errs []error
		for _, p := range started {
			errs = append(errs, p.Stop(ctx))
		}
		return errors.Join(errs...)
	}

	for _, p := range pools {
		cp, err := container.NewPool(container.PoolConfig{
			Pool:         p,
			Image:        c.dockerImage,
			BaseHostPort: basePort,
			Env:          env,
			Runtime:      runtime,
			Hooks:        hooks,
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("could not create container pool: %w", err), stopAll(ctx))
		}

		rp, err := cp.Start(ctx)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("could not start container pool %s: %w", p.Name, err), stopAll(ctx))
		}
		started = append(started, cp)
		routePools = append(routePools, rp)
		basePort += p.Replicas
	}

	return routePools, stopAll, nil
}

func seedKV(ctx context.Context, repo storage.KVRepository, specs []string) error {
	for _, spec := range specs {
		key, value, ok := strings.Cut(spec, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --kv-set value %q, must be KEY=VALUE: %w", spec, model.ErrNotValid)
		}
		if err := repo.SetValue(ctx, key, value); err != nil {
			return fmt.Errorf("could not set key %q: %w", key, err)
		}
	}
	return nil
}
