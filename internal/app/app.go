package app

import (
	"os"
	"os/signal"
	"syscall"

	runtime "github.com/banzaicloud/logrus-runtime-formatter"
	logrusrv2 "github.com/bombsimon/logrusr/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/metal-toolbox/powerctl/internal/model"
)

// App holds attributes for the powerctl application
type App struct {
	// Viper loads configuration parameters.
	v *viper.Viper
	// powerctl configuration.
	Config *Configuration
	// Kind is the application kind the configuration was validated for.
	Kind model.AppKind
	// Logger is the app logger
	Logger *logrus.Logger
}

// New returns returns a new instance of the powerctl app
//
// The log level parameter overrides the configured log level when set.
func New(appKind model.AppKind, cfgFile, logLevel string) (*App, <-chan os.Signal, error) {
	app := &App{
		v:      viper.New(),
		Kind:   appKind,
		Config: &Configuration{},
		Logger: logrus.New(),
	}

	if err := app.LoadConfiguration(cfgFile); err != nil {
		return nil, nil, err
	}

	if logLevel != "" {
		app.Config.LogLevel = logLevel
	}

	if err := app.Config.validate(); err != nil {
		return nil, nil, err
	}

	// set log level, format
	switch app.Config.LogLevel {
	case model.LogLevelDebug:
		app.Logger.Level = logrus.DebugLevel
	case model.LogLevelTrace:
		app.Logger.Level = logrus.TraceLevel
	default:
		app.Logger.Level = logrus.InfoLevel
	}

	app.Logger.SetFormatter(
		&runtime.Formatter{ChildFormatter: &logrus.JSONFormatter{}},
	)

	// otel reports exporter errors through a logr logger
	otel.SetLogger(logrusrv2.New(app.Logger))

	termCh := make(chan os.Signal, 1)

	// register for SIGINT, SIGTERM
	signal.Notify(termCh, syscall.SIGINT, syscall.SIGTERM)

	return app, termCh, nil
}
