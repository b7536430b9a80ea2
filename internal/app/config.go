package app

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/model"
	"github.com/metal-toolbox/powerctl/internal/store"
)

const (
	defaultConfigFile = ".powerctl.yml"
	defaultTimeout    = 30 * time.Second
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML or set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// File is the configuration file read, empty when configuration was read from env variables only.
	File string `mapstructure:"-"`

	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// Intersight defines the Intersight API client configuration parameters.
	Intersight IntersightOptions `mapstructure:"intersight"`

	// PowerControl defines the power state to apply and the servers to apply it to.
	PowerControl PowerControlOptions `mapstructure:"power_control"`
}

// IntersightOptions defines configuration for the Intersight API client.
type IntersightOptions struct {
	BaseURL   string        `mapstructure:"base_url"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// Auth is one of apikey, oauth2.
	Auth string `mapstructure:"auth"`

	KeyID   string `mapstructure:"key_id"`
	KeyFile string `mapstructure:"key_file"`

	OAuthClientID      string `mapstructure:"oauth_client_id"`
	OAuthClientSecret  string `mapstructure:"oauth_client_secret"`
	OAuthTokenURL      string `mapstructure:"oauth_token_url"`
	OidcIssuerEndpoint string `mapstructure:"oidc_issuer_endpoint"`
}

// PowerControlOptions defines the power state change to apply.
type PowerControlOptions struct {
	// State is the power state name, as listed in the power state value map.
	State string `mapstructure:"state"`

	// Organization scopes the server settings lookup.
	Organization string `mapstructure:"organization"`

	HaltOnLookupError bool `mapstructure:"halt_on_lookup_error"`
	StrictMatch       bool `mapstructure:"strict_match"`
	DryRun            bool `mapstructure:"dry_run"`

	// Targets are the servers to change the power state of.
	Targets []model.ServerTarget `mapstructure:"targets"`

	// TargetsFile is a YAML file listing targets, it replaces Targets when set.
	TargetsFile string `mapstructure:"targets_file"`
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(model.AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = defaultConfigFilePath()
	}

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}

		defer fh.Close()

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}

		a.Config.File = cfgFile
	}

	a.v.SetDefault("log_level", model.LogLevelInfo)
	a.v.SetDefault("intersight.base_url", intersight.DefaultBaseURL)
	a.v.SetDefault("intersight.verify_tls", true)
	a.v.SetDefault("intersight.timeout", defaultTimeout)
	a.v.SetDefault("intersight.auth", intersight.AuthAPIKey)
	a.v.SetDefault("power_control.organization", model.DefaultOrganization)

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	return nil
}

// defaultConfigFilePath returns $HOME/.powerctl.yml when the file exists.
func defaultConfigFilePath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	f := filepath.Join(homedir, defaultConfigFile)
	if _, err := os.Stat(f); err != nil {
		return ""
	}

	return f
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		// targets are a list of objects, listed in the configuration file or a targets file.
		if k == "power_control.targets" {
			continue
		}

		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// validate checks the configuration parameters common to all commands.
func (c *Configuration) validate() error {
	levels := []string{model.LogLevelInfo, model.LogLevelDebug, model.LogLevelTrace}
	if !slices.Contains(levels, c.LogLevel) {
		return errors.Wrap(ErrConfig, "log level '"+c.LogLevel+"', expected one of: "+strings.Join(levels, ", "))
	}

	return c.Intersight.validate()
}

// nolint:gocyclo // parameter validation is cyclomatic
func (o *IntersightOptions) validate() error {
	if _, err := url.ParseRequestURI(o.BaseURL); err != nil {
		return errors.Wrap(ErrConfig, "intersight.base_url: "+err.Error())
	}

	if o.Timeout <= 0 {
		return errors.Wrap(ErrConfig, "intersight.timeout must be a positive duration")
	}

	switch o.Auth {
	case intersight.AuthAPIKey:
		if o.KeyID == "" {
			return errors.Wrap(ErrConfig, "intersight.key_id not defined")
		}

		if o.KeyFile == "" {
			return errors.Wrap(ErrConfig, "intersight.key_file not defined")
		}
	case intersight.AuthOAuth2:
		if o.OAuthClientID == "" {
			return errors.Wrap(ErrConfig, "intersight.oauth_client_id not defined")
		}

		if o.OAuthClientSecret == "" {
			return errors.Wrap(ErrConfig, "intersight.oauth_client_secret not defined")
		}
	default:
		return errors.Wrap(
			ErrConfig,
			"intersight.auth '"+o.Auth+"', expected one of: "+intersight.AuthAPIKey+", "+intersight.AuthOAuth2,
		)
	}

	return nil
}

// IntersightClientOptions returns the Intersight API client parameters.
func (a *App) IntersightClientOptions() *intersight.Options {
	o := a.Config.Intersight

	return &intersight.Options{
		BaseURL:           o.BaseURL,
		VerifyTLS:         o.VerifyTLS,
		Timeout:           o.Timeout,
		Auth:              o.Auth,
		KeyID:             o.KeyID,
		KeyFile:           o.KeyFile,
		OAuthClientID:     o.OAuthClientID,
		OAuthClientSecret: o.OAuthClientSecret,
		OAuthTokenURL:     o.OAuthTokenURL,
		OIDCIssuer:        o.OidcIssuerEndpoint,
	}
}

// RunParams returns the power state and the targets to apply it to.
//
// Targets are read from the targets file when one is configured.
func (a *App) RunParams() (state string, targets []model.ServerTarget, err error) {
	pc := a.Config.PowerControl

	state = strings.TrimSpace(pc.State)
	if state == "" {
		return "", nil, errors.Wrap(ErrConfig, "power_control.state not defined")
	}

	targets = pc.Targets

	if pc.TargetsFile != "" {
		targets, err = store.NewYamlTargets(pc.TargetsFile).Targets()
		if err != nil {
			return "", nil, errors.Wrap(ErrConfig, err.Error())
		}
	}

	if len(targets) == 0 {
		return "", nil, errors.Wrap(ErrConfig, "no targets defined in power_control.targets or a targets file")
	}

	for idx := range targets {
		targets[idx] = targets[idx].WithDefaults()
	}

	return state, targets, nil
}
