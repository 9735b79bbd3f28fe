package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/aphofstede/v8js/errext"
	"github.com/aphofstede/v8js/errext/exitcodes"
	"github.com/aphofstede/v8js/lib"
	"github.com/aphofstede/v8js/lib/consts"
)

// readDiskConfig reads the config file. A missing file is only an error if
// its path was explicitly set.
func readDiskConfig(gs *globalState) (lib.RuntimeOptions, error) {
	var conf lib.RuntimeOptions
	data, err := afero.ReadFile(gs.fs, gs.flags.configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && gs.flags.configFilePath == gs.defaultFlags.configFilePath {
			return conf, nil
		}
		return conf, fmt.Errorf("couldn't read config file '%s': %w", gs.flags.configFilePath, err)
	}

	// JSON is valid YAML, so both are decoded the same way and then passed
	// through encoding/json for the null types.
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return conf, fmt.Errorf("couldn't parse config file '%s': %w", gs.flags.configFilePath, err)
	}
	if raw == nil {
		return conf, nil
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return conf, fmt.Errorf("couldn't parse config file '%s': %w", gs.flags.configFilePath, err)
	}
	if err := json.Unmarshal(jsonData, &conf); err != nil {
		return conf, fmt.Errorf("couldn't parse config file '%s': %w", gs.flags.configFilePath, err)
	}
	return conf, nil
}

// readEnvConfig reads the V8JS_* environment variables.
func readEnvConfig(envMap map[string]string) (lib.RuntimeOptions, error) {
	var conf lib.RuntimeOptions
	err := envconfig.Process(consts.EnvPrefix, &conf, func(key string) (string, bool) {
		v, ok := envMap[key]
		return v, ok
	})
	return conf, err
}

// getConsolidatedConfig assembles the final runtime options with the
// priority, from lowest to highest: config file, environment variables, CLI
// flags. The result is validated; invalid options exit with InvalidConfig.
func getConsolidatedConfig(gs *globalState, flags *pflag.FlagSet) (lib.RuntimeOptions, error) {
	withCode := func(err error) error {
		return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
	}

	fileConf, err := readDiskConfig(gs)
	if err != nil {
		return lib.RuntimeOptions{}, withCode(err)
	}
	envConf, err := readEnvConfig(gs.envVars)
	if err != nil {
		return lib.RuntimeOptions{}, withCode(fmt.Errorf("invalid environment configuration: %w", err))
	}
	cliConf, err := getRuntimeOptions(flags)
	if err != nil {
		return lib.RuntimeOptions{}, withCode(err)
	}

	conf := fileConf.Apply(envConf).Apply(cliConf)
	conf.Env = scriptEnv(conf, gs.envVars)

	if err := conf.Validate(); err != nil {
		return conf, withCode(errext.WithHint(err, "check the config file, V8JS_* variables and flags"))
	}
	gs.logger.WithFields(logrus.Fields{
		"timeLimit":   conf.TimeLimitDuration(),
		"memoryLimit": conf.MemoryLimitBytes(),
		"envVars":     len(conf.Env),
	}).Debug("Consolidated runtime options")
	return conf, nil
}
