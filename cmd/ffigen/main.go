package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"ffigen/internal/logx"
	"ffigen/internal/prof"
	"ffigen/internal/version"
)

// app is one CLI invocation: the command tree plus the state its
// persistent flags set up.
type app struct {
	root    *cobra.Command
	profile *prof.Session
}

func newApp() *app {
	a := &app{}
	root := &cobra.Command{
		Use:   "ffigen",
		Short: "FFI binding generator",
		Long: `ffigen reads a language-neutral description of a native library and
generates matching bindings for C, Python, C# and Go.`,
		Version:           version.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.AddCommand(newGenerateCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())

	pf := root.PersistentFlags()
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("quiet", false, "suppress non-essential output")
	pf.Bool("timings", false, "show timing information")
	pf.BoolP("verbose", "v", false, "enable debug logging")
	pf.Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	pf.String("diagnostics-format", "pretty", "diagnostics output format (pretty|json)")
	pf.String("manifest", "", "path to ffigen.toml (default: search upwards from the working directory)")
	pf.String("cpu-profile", "", "write a CPU profile to this file")
	pf.String("mem-profile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a runtime trace to this file")

	a.root = root
	return a
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := setupGlobals(cmd, args); err != nil {
		return err
	}
	pf := cmd.Root().PersistentFlags()
	cpu, _ := pf.GetString("cpu-profile")
	mem, _ := pf.GetString("mem-profile")
	tr, _ := pf.GetString("runtime-trace")
	s, err := prof.Start(cpu, mem, tr)
	if err != nil {
		return err
	}
	a.profile = s
	return nil
}

// execute runs the command tree and then stops any profiling.
func (a *app) execute(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if stopErr := a.profile.Stop(); stopErr != nil {
		return errors.Join(err, stopErr)
	}
	return err
}

// main runs the CLI and exits with status 1 after printing the diagnostics
// of a failed command.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := newApp()
	err := a.execute(ctx)
	stop()
	logx.Sync()
	if err != nil {
		printError(a.root, err)
		os.Exit(1)
	}
}
