package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/capcom6/logutils"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/capcom6/perm-keeper/internal/config"
	"github.com/capcom6/perm-keeper/internal/enforcer"
	"github.com/capcom6/perm-keeper/internal/ignore"
	"github.com/capcom6/perm-keeper/internal/reconciler"
	"github.com/capcom6/perm-keeper/internal/watcher"
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "perm-keeper",
		Usage:   "watch directories and keep every path at the desired permission mode",
		Version: config.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the config file",
				Sources: cli.EnvVars("PERM_KEEPER_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "debug mode",
				Sources: cli.EnvVars("PERM_KEEPER_DEBUG"),
			},
		},
		Action: run,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	setUpLogging(cmd.Bool("debug"))

	configPath := cmd.String("config")
	if configPath == "" {
		var err error
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	fsys := afero.NewOsFs()

	cfg, err := config.LoadOrDefault(fsys, configPath)
	if err != nil {
		return err
	}

	matcher, err := ignore.New(cfg.IgnoreDirs)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := &sync.WaitGroup{}

	watch := watcher.New(cfg.WatchDirs, matcher)
	rec := reconciler.New(fsys, cfg.WatchDirs, matcher, enforcer.New(fsys, cfg.Mode))

	// subscribe before the sweep so events raised meanwhile queue up
	ch, err := watch.Watch(ctx, wg)
	if err != nil {
		return err
	}

	if err := rec.Sweep(ctx); err != nil {
		// canceled mid-sweep
		return nil
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if runErr := rec.Run(ctx, ch, cfg.CheckInterval); runErr != nil {
			logutils.Errorln(runErr)
			cancel()
		}
	}()

	logutils.Println("Watching...")
	wg.Wait()

	logutils.Println("Bye!")

	return nil
}

func setUpLogging(debug bool) {
	logLevel := "INFO"
	if debug {
		logLevel = "DEBUG"
	}

	filter := logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"},
		MinLevel: logutils.LogLevel(logLevel),
		Writer:   os.Stdout,
	}

	log.SetOutput(&filter)
}
