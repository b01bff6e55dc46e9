package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/groundguard-io/groundguard/pkg/log"
)

// RunFunc defines the application's startup callback function.
type RunFunc func() error

// CliOptions is the contract an application's option aggregate implements.
type CliOptions interface {
	// AddFlags binds every option group to the command's FlagSet.
	AddFlags(fs *pflag.FlagSet)

	// Complete fills in defaults that depend on other options.
	Complete() error

	// Validate checks the final option values.
	Validate() error
}

// App is the main application structure. It wraps cobra and wires option
// parsing and config-file loading in one place so every binary in the
// project starts the same way. Logger initialization is left to the RunFunc.
type App struct {
	name        string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	subcommands []*cobra.Command

	cmd *cobra.Command
}

// Option defines optional parameters for initializing the application.
type Option func(*App)

// WithOptions opens the application's function to read from the command line
// or read parameters from the configuration file.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc is used to set the application's startup callback.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDescription is used to set the long description of the application.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithSubcommands attaches additional cobra subcommands to the root command.
func WithSubcommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.subcommands = append(a.subcommands, cmds...)
	}
}

// NewApp creates an application instance based on the given name, short
// description and other options.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          a.runCommand,
	}

	cmd.SetOut(cmd.OutOrStdout())
	cmd.SetErr(cmd.ErrOrStderr())
	cmd.Flags().SortFlags = true

	if a.options != nil {
		a.options.AddFlags(cmd.PersistentFlags())
	}

	addConfigFlag(a.name, cmd.PersistentFlags())

	for _, sub := range a.subcommands {
		cmd.AddCommand(sub)
	}

	a.cmd = cmd
}

// Command returns the underlying cobra command, mainly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run launches the application.
func (a *App) Run() error {
	return a.cmd.Execute()
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if a.options != nil {
		// Merge the config file (if any) under the flag values, then finish
		// and check the options before anything starts.
		if err := applyConfigFile(a.options, cmd.PersistentFlags()); err != nil {
			return fmt.Errorf("failed to apply config file: %w", err)
		}

		if err := a.options.Complete(); err != nil {
			return err
		}

		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	log.Info("Starting application", "name", a.name)

	if a.runFunc != nil {
		return a.runFunc()
	}

	return nil
}
