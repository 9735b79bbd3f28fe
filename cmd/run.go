package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/js"
)

const stdinScriptName = "stdin"

// cmdRun handles the `v8js run` sub-command
type cmdRun struct {
	gs *globalState
}

func (c *cmdRun) run(cmd *cobra.Command, args []string) error {
	name, src, err := readScript(c.gs, args[0])
	if err != nil {
		return errext.WrapEngineException(err, "couldn't load script")
	}

	conf, err := getConsolidatedConfig(c.gs, cmd.Flags())
	if err != nil {
		return err
	}

	rt, err := js.New(conf, c.gs.logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.gs.ctx)
	defer cancel()

	sigC := make(chan os.Signal, 2)
	c.gs.signalNotify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer c.gs.signalStop(sigC)
	go func() {
		select {
		case sig := <-sigC:
			c.gs.logger.WithField("sig", sig).Debug("Stopping v8js in response to signal...")
			cancel()
		case <-ctx.Done():
		}
	}()

	c.gs.logger.WithField("script", name).Debug("Running script...")
	if _, err := rt.RunScript(ctx, name, src); err != nil {
		noColor := c.gs.flags.noColor || !c.gs.stdErr.IsTTY
		if d := newDiagnostic(noColor).render(err); d != "" {
			if _, werr := fmt.Fprint(c.gs.stdErr, d); werr != nil {
				c.gs.logger.WithError(werr).Warn("Couldn't print the exception location")
			}
		}
		return err
	}
	return nil
}

// readScript returns the display name and contents of the script at
// filename, which is resolved against the working directory, or "-" for
// the standard input.
func readScript(gs *globalState, filename string) (string, string, error) {
	if filename == "-" {
		data, err := io.ReadAll(gs.stdIn)
		if err != nil {
			return "", "", fmt.Errorf("reading from stdin: %w", err)
		}
		return stdinScriptName, string(data), nil
	}

	path := filename
	if !filepath.IsAbs(path) {
		pwd, err := gs.getwd()
		if err != nil {
			return "", "", err
		}
		path = filepath.Join(pwd, filename)
	}
	data, err := afero.ReadFile(gs.fs, path)
	if err != nil {
		return "", "", err
	}
	return filename, string(data), nil
}

func (c *cmdRun) flagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.AddFlagSet(runtimeOptionFlagSet(false))
	return flags
}

func getCmdRun(gs *globalState) *cobra.Command {
	c := &cmdRun{
		gs: gs,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a script",
		Long: `Run a script.

Exceptions thrown by the script are reported with the file, line and source
location they were raised at, their stack trace and, for errors coming from
the runtime itself, their cause.`,
		Example: `
  # Run a script.
  v8js run script.js

  # Abort the script if it runs for more than 5 seconds.
  v8js run --time-limit 5s script.js

  # Abort the script once it allocated 64MB, passing a variable to it.
  v8js run --memory-limit 67108864 -e NAME=value script.js

  # Read the script from stdin.
  echo "console.log(1)" | v8js run -`[1:],
		Args: exactArgsWithMsg(1, "arg should either be \"-\", if reading script from stdin, or a path to a script file"),
		RunE: c.run,
	}

	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(c.flagSet())

	return runCmd
}
