package app

import (
	"fmt"

	"github.com/groundguard-io/groundguard/cmd/gguard-safety-core/app/options"
	"github.com/groundguard-io/groundguard/pkg/app"
	"github.com/groundguard-io/groundguard/pkg/log"
)

const (
	commandName = "gguard-safety-core"
	commandDesc = `The GroundGuard safety core arbitrates control commands from the
safety, manual, remote and autonomous sources, forwards the winning command
to the Body Control Module at a fixed cadence, and halts the vehicle when
task liveness or sensor plausibility is violated.`
)

// NewApp builds the daemon's command line application.
func NewApp() *app.App {
	opts := options.NewCoreOptions()
	application := app.NewApp(
		commandName,
		"Launch the GroundGuard command arbitration and safety core",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
		app.WithSubcommands(newStatusCommand()),
	)
	return application
}

func run(opts *options.CoreOptions) app.RunFunc {
	return func() error {
		log.Init(opts.Log)

		ctx := app.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		d, err := cfg.NewDaemon()
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		return d.Run(ctx)
	}
}
