package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CHUNKDB"

// env is shared by all commands.
type env struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	logLevel string
	logger   *logrus.Logger
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	e := &env{stdin: stdin, stdout: stdout, stderr: stderr}

	rc := &cobra.Command{
		Use:   "chunkdb",
		Short: "Embedded single-file table store.",
		Long: `
Runs SQL statements against chunkdb files and provides maintenance tools to
inspect, clean and restore them.

Every flag may also be set through the environment, prefixed with ` + envPrefix + `_,
or through a TOML file passed via --config.
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return err
			}
			return e.setupLogger()
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().StringVar(&e.logLevel, "log-level", "warn", "Log level (debug, info, warn, error).")

	rc.AddCommand(newExecCommand(e))
	rc.AddCommand(newInspectCommand(e))
	rc.AddCommand(newCleanCommand(e))
	rc.AddCommand(newRestoreCommand(e))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

func (e *env) setupLogger() error {
	lvl, err := logrus.ParseLevel(e.logLevel)
	if err != nil {
		return err
	}

	e.logger = logrus.New()
	e.logger.SetOutput(e.stderr)
	e.logger.SetLevel(lvl)
	e.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return nil
}

// setAllConfig applies, in order of priority, command line flags, environment
// variables and the optional config file to the given flags.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}

		valid := make(map[string]bool)
		flags.VisitAll(func(f *pflag.Flag) { valid[f.Name] = true })
		for _, key := range v.AllKeys() {
			if !valid[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		flagErr = f.Value.Set(v.GetString(f.Name))
	})
	return flagErr
}
