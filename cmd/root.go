package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/lib/consts"
	"github.com/aphofstede/v8js/log"
)

const waitRemoteLoggerTimeout = time.Second * 5

// This is to keep all fields needed for the main/root v8js command
type rootCommand struct {
	globalState *globalState

	cmd            *cobra.Command
	loggerStopped  <-chan struct{}
	loggerIsRemote bool
}

func newRootCommand(gs *globalState) *rootCommand {
	stopped := make(chan struct{})
	close(stopped)
	c := &rootCommand{
		globalState:   gs,
		loggerStopped: stopped,
	}
	// the base command when called without any subcommands.
	rootCmd := &cobra.Command{
		Use:               "v8js",
		Short:             "run JavaScript with structured, chained exceptions",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}

	rootCmd.PersistentFlags().AddFlagSet(rootCmdPersistentFlagSet(gs))
	rootCmd.SetArgs(gs.args[1:])
	rootCmd.SetOut(gs.stdOut)
	rootCmd.SetErr(gs.stdErr) // TODO: use gs.logger.WriterLevel(logrus.ErrorLevel)?
	rootCmd.SetIn(gs.stdIn)

	rootCmd.AddCommand(
		getCmdRun(gs),
		getCmdVersion(gs),
	)

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, args []string) error {
	var err error
	c.loggerStopped, err = c.setupLoggers()
	if err != nil {
		return err
	}
	select {
	case <-c.loggerStopped:
	default:
		c.loggerIsRemote = true
	}

	if c.globalState.flags.noColor {
		c.globalState.stdOut.Writer = colorable.NewNonColorable(c.globalState.stdOut.Writer)
		c.globalState.stdErr.Writer = colorable.NewNonColorable(c.globalState.stdErr.Writer)
	}
	c.globalState.logger.Debugf("v8js version: v%s", consts.Version)
	return nil
}

func (c *rootCommand) execute() {
	ctx, cancel := context.WithCancel(c.globalState.ctx)
	defer cancel()
	c.globalState.ctx = ctx

	err := c.cmd.Execute()
	if err == nil {
		cancel()
		c.waitRemoteLogger()
		return
	}

	exitCode := -1
	var ecerr errext.HasExitCode
	if errors.As(err, &ecerr) {
		exitCode = int(ecerr.ExitCode())
	}

	errText, fields := errext.Format(err)
	c.globalState.logger.WithFields(fields).Error(errText)

	var se *errext.ScriptException
	if errors.As(err, &se) {
		se.Release()
	}

	cancel()
	c.waitRemoteLogger()
	c.globalState.osExit(exitCode)
}

func (c *rootCommand) waitRemoteLogger() {
	if c.loggerIsRemote {
		select {
		case <-c.loggerStopped:
		case <-time.After(waitRemoteLoggerTimeout):
			c.globalState.fallbackLogger.Errorf("Logger didn't stop in %s", waitRemoteLoggerTimeout)
		}
	}
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	gs := newGlobalState(context.Background())

	newRootCommand(gs).execute()
}

func rootCmdPersistentFlagSet(gs *globalState) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	// TODO: refactor this config, the default value management with pflag is
	// simply terrible... :/
	//
	// We need to use `gs.flags.<value>` both as the destination and as
	// the value here, since the config values could have already been set by
	// their respective environment variables. However, we then also have to
	// explicitly set the DefValue to the respective default value from
	// `gs.defaultFlags.<value>`, so that the `--help` message is not messed up...

	flags.StringVar(&gs.flags.logOutput, "log-output", gs.flags.logOutput,
		"change the output for v8js logs, possible values are stderr,stdout,none,file[=./path.fileformat]")
	flags.Lookup("log-output").DefValue = gs.defaultFlags.logOutput

	flags.StringVar(&gs.flags.logFormat, "log-format", gs.flags.logFormat, "log output format, one of text,json,logstash,raw")
	flags.Lookup("log-format").DefValue = gs.defaultFlags.logFormat

	flags.StringVarP(&gs.flags.configFilePath, "config", "c", gs.flags.configFilePath, "YAML or JSON config file")
	// And we also need to explicitly set the default value for the usage message here, so things
	// like `V8JS_CONFIG="blah" v8js run -h` don't produce a weird usage message
	flags.Lookup("config").DefValue = gs.defaultFlags.configFilePath
	must(cobra.MarkFlagFilename(flags, "config"))

	flags.BoolVar(&gs.flags.noColor, "no-color", gs.flags.noColor, "disable colored output")
	flags.Lookup("no-color").DefValue = "false"

	// TODO: support configuring these through environment variables as well?
	// either with croconf or through the hack above...
	flags.BoolVarP(&gs.flags.verbose, "verbose", "v", gs.defaultFlags.verbose, "enable verbose logging")

	return flags
}

// The returned channel will be closed when the logger has finished flushing
// its output after the command context is done. It is already closed if the
// logger writes synchronously.
func (c *rootCommand) setupLoggers() (<-chan struct{}, error) {
	ch := make(chan struct{})
	close(ch)

	if c.globalState.flags.verbose {
		c.globalState.logger.SetLevel(logrus.DebugLevel)
	}

	switch c.globalState.flags.logOutput {
	case "stderr":
		c.globalState.logger.SetOutput(c.globalState.stdErr)
	case "stdout":
		c.globalState.logger.SetOutput(c.globalState.stdOut)
	case "none":
		c.globalState.logger.SetOutput(io.Discard)
	default:
		if !strings.HasPrefix(c.globalState.flags.logOutput, "file") {
			return nil, fmt.Errorf("unsupported log output '%s'", c.globalState.flags.logOutput)
		}
		ch = make(chan struct{})
		hook, err := log.FileHookFromConfigLine(
			c.globalState.ctx, c.globalState.fs, c.globalState.getwd,
			c.globalState.fallbackLogger, c.globalState.flags.logOutput, ch,
		)
		if err != nil {
			return nil, err
		}

		c.globalState.logger.AddHook(hook)
		c.globalState.logger.SetOutput(io.Discard)
	}

	switch c.globalState.flags.logFormat {
	case "raw":
		c.globalState.logger.SetFormatter(&RawFormatter{})
		c.globalState.logger.Debug("Logger format: RAW")
	case "json":
		c.globalState.logger.SetFormatter(&logrus.JSONFormatter{})
		c.globalState.logger.Debug("Logger format: JSON")
	case "logstash":
		c.globalState.logger.SetFormatter(&LogstashJSONFormatter{})
		c.globalState.logger.Debug("Logger format: LOGSTASH")
	case "text", "":
		c.globalState.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   c.globalState.stdErr.IsTTY,
			DisableColors: c.globalState.flags.noColor,
		})
		c.globalState.logger.Debug("Logger format: TEXT")
	default:
		return nil, fmt.Errorf("unsupported log format '%s'", c.globalState.flags.logFormat)
	}
	return ch, nil
}
