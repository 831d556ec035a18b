/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

//
const envPrefix = "MEDIADRIVE"

//
const runnerHelpEpilogue = `- Settings can also be made in a config file (--config), or via environment
  variables. The variable for a setting is its name in upper case, prefixed
  with MEDIADRIVE_, e.g. MEDIADRIVE_ADDRESS. Command line flags take
  precedence over environment variables, and those over the config file.

- Local sources are file paths, optionally prefixed with $basedir$. Use
  {archive}!{entry} to select an image inside an archive, and http(s) URLs
  for remote images.

`

// configKeys maps setting names to their keys in the config file. Settings not
// listed here use their name as key.
var configKeys = map[string]string{
	"address":   "api.address",
	"listen":    "serve.address",
	"writable":  "media.writable",
	"codecs":    "media.codecs",
	"basedir":   "media.basedir",
	"maxdepth":  "media.maxdepth",
	"maxsize":   "media.maxsize",
	"timeout":   "http.timeout",
	"library":   "library.path",
	"index":     "library.index",
	"log-level": "log.level",
	"log-json":  "log.json",
	"log-file":  "log.file",
}

//
type setting struct {
	ref      interface{}
	name     string
	key      string
	required bool
}

// Runner is the base of all commands. It binds each setting to a command line
// flag, an environment variable, and a config file key.
type Runner struct {
	cobra.Command
	//
	Address  string
	Config   string
	LogLevel string
	LogJSON  bool
	LogFile  string
	//
	viper        *viper.Viper
	settings     []*setting
	exec         func() error
	helpPrologue string
	helpEpilogue string
}

//
func NewRunner(use, short, long, helpPrologue, helpEpilogue string,
	exec func() error) *Runner {

	return &Runner{
		Command: cobra.Command{
			Use:           use,
			Short:         short,
			Long:          long,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
		viper:        viper.New(),
		exec:         exec,
		helpPrologue: helpPrologue,
		helpEpilogue: helpEpilogue,
	}
}

// Cmd finishes setting up the runner and returns it as a cobra command. This
// needs to be called on the runner embedded in the final command struct.
func (r *Runner) Cmd() *cobra.Command {

	// accept flag names with underscores, as they appear in env variables
	r.Flags().SetNormalizeFunc(
		func(f *pflag.FlagSet, name string) pflag.NormalizedName {
			return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
		})

	r.viper.SetEnvPrefix(envPrefix)
	r.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	r.AddSetting(&r.Config, "config", "", "", "",
		"config file (default: mediadrive.yaml in working or user config directory)",
		false)
	r.AddSetting(&r.LogLevel, "log-level", "", "", "info",
		"log level (trace, debug, info, warn, error)", false)
	r.AddSetting(&r.LogJSON, "log-json", "", "", false, "log in JSON format", false)
	r.AddSetting(&r.LogFile, "log-file", "", "", "",
		"log to this file instead of stderr, with rotation", false)

	r.PreRunE = func(cmd *cobra.Command, args []string) error {
		return r.setup()
	}
	r.RunE = func(cmd *cobra.Command, args []string) error {
		return r.exec()
	}

	if r.helpEpilogue != "" || r.helpPrologue != "" {
		defaultHelp := r.HelpFunc()
		r.SetHelpFunc(func(cmd *cobra.Command, args []string) {
			if r.helpPrologue != "" {
				fmt.Print(r.helpPrologue)
			}
			defaultHelp(cmd, args)
			if r.helpEpilogue != "" {
				fmt.Printf("\nNotes:\n\n%s", r.helpEpilogue)
			}
		})
	}

	return &r.Command
}

// AddBaseSettings adds the settings needed for talking to the daemon.
func (r *Runner) AddBaseSettings() {
	r.AddSetting(&r.Address, "address", "a", "", "http://localhost:8888",
		"listen address and port of the daemon's control API", false)
}

/*
	AddSetting registers a setting. ref points to the field receiving the value,
	def is the default and determines the type of the flag. The environment
	variable defaults to MEDIADRIVE_{NAME} if env is empty.
*/
func (r *Runner) AddSetting(ref interface{}, name, short, env string,
	def interface{}, usage string, required bool) {

	flags := r.Flags()

	switch d := def.(type) {
	case string:
		flags.StringP(name, short, d, usage)
	case bool:
		flags.BoolP(name, short, d, usage)
	case int:
		flags.IntP(name, short, d, usage)
	case int64:
		flags.Int64P(name, short, d, usage)
	case time.Duration:
		flags.DurationP(name, short, d, usage)
	case []string:
		flags.StringSliceP(name, short, d, usage)
	case nil:
		switch ref.(type) {
		case *string:
			flags.StringP(name, short, "", usage)
		case *[]string:
			flags.StringSliceP(name, short, nil, usage)
		default:
			panic(fmt.Sprintf("setting %s: no default for %T", name, ref))
		}
	default:
		panic(fmt.Sprintf("setting %s: unsupported type %T", name, def))
	}

	key := name
	if k, ok := configKeys[name]; ok {
		key = k
	}

	if err := r.viper.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(err)
	}
	if env == "" {
		env = fmt.Sprintf("%s_%s", envPrefix,
			strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	}
	if err := r.viper.BindEnv(key, env); err != nil {
		panic(err)
	}

	r.settings = append(r.settings,
		&setting{ref: ref, name: name, key: key, required: required})
}

// setup reads the config file, checks required settings, and configures
// logging.
func (r *Runner) setup() error {

	if cfg := r.viper.GetString("config"); cfg != "" {
		r.viper.SetConfigFile(cfg)
	} else {
		r.viper.SetConfigName("mediadrive")
		r.viper.SetConfigType("yaml")
		r.viper.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			r.viper.AddConfigPath(home + "/mediadrive")
		}
	}

	if err := r.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config: %v", err)
		}
	}

	for _, s := range r.settings {
		if s.required && !r.viper.IsSet(s.key) {
			return fmt.Errorf("required setting '%s' not set", s.name)
		}
	}

	r.ParseSettings()
	return r.setupLogging()
}

// ParseSettings copies the effective setting values into their fields.
func (r *Runner) ParseSettings() {
	for _, s := range r.settings {
		switch ref := s.ref.(type) {
		case *string:
			*ref = r.viper.GetString(s.key)
		case *bool:
			*ref = r.viper.GetBool(s.key)
		case *int:
			*ref = r.viper.GetInt(s.key)
		case *int64:
			*ref = r.viper.GetInt64(s.key)
		case *time.Duration:
			*ref = r.viper.GetDuration(s.key)
		case *[]string:
			*ref = r.viper.GetStringSlice(s.key)
		default:
			log.Warnf("setting %s has unsupported type %v", s.name,
				reflect.TypeOf(s.ref))
		}
	}
}

// IsSet reports whether a setting was made explicitly, i.e. not defaulted.
func (r *Runner) IsSet(name string) bool {
	if f := r.Flags().Lookup(name); f != nil && f.Changed {
		return true
	}
	key := name
	if k, ok := configKeys[name]; ok {
		key = k
	}
	return r.viper.InConfig(key) || os.Getenv(fmt.Sprintf("%s_%s", envPrefix,
		strings.ToUpper(strings.ReplaceAll(name, "-", "_")))) != ""
}

//
func (r *Runner) setupLogging() error {

	level, err := log.ParseLevel(r.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if r.LogJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	if r.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   r.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		})
	}

	return nil
}

// apiCall calls the daemon's control API and returns the reply body. Replies
// other than 200 are turned into errors carrying the reply message.
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	req, err := http.NewRequest(method,
		fmt.Sprintf("%s%s", strings.TrimSuffix(r.Address, "/"), path), body)
	if err != nil {
		return nil, err
	}
	if json {
		req.Header.Add("Accept", "application/json")
	}

	resp, err := (&http.Client{Timeout: 2 * time.Minute}).Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s (%s)", strings.TrimSpace(string(msg)),
			resp.Status)
	}

	return resp.Body, nil
}

//
func GetUserConfirmation(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
