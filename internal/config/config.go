package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/reqdrop/reqdrop/internal/duration"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	BaseURL          string        `mapstructure:"base-url"`
	GracefulShutdown time.Duration `mapstructure:"graceful-shutdown"`
	ReadTimeout      time.Duration `mapstructure:"read-timeout"`
	WriteTimeout     time.Duration `mapstructure:"write-timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	SessionTime time.Duration `mapstructure:"session-time"`
}

type DBConfig struct {
	DataSource  string `mapstructure:"data-source"`
	PrepareStmt bool   `mapstructure:"prepare-stmt"`
	LogLevel    string `mapstructure:"log-level"`
	Pool        struct {
		Enable             bool          `mapstructure:"enable"`
		MaxOpenConnections int           `mapstructure:"max-open-connections"`
		MaxIdleConnections int           `mapstructure:"max-idle-connections"`
		MaxLifetime        time.Duration `mapstructure:"max-lifetime"`
	} `mapstructure:"pool"`
}

type CronJobConfig struct {
	Enable           bool          `mapstructure:"enable"`
	ExpiryInterval   time.Duration `mapstructure:"expiry-interval"`
	ReminderInterval time.Duration `mapstructure:"reminder-interval"`
	ReminderLead     time.Duration `mapstructure:"reminder-lead"`
	ReminderGrace    time.Duration `mapstructure:"reminder-grace"`
	RemindersEnabled bool          `mapstructure:"reminders-enabled"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type StorageConfig struct {
	Dir string `mapstructure:"dir"`
}

type ServerCmdConfig struct {
	Server   ServerConfig  `mapstructure:"server"`
	Log      LoggingConfig `mapstructure:"log"`
	JWT      JWTConfig     `mapstructure:"jwt"`
	DB       DBConfig      `mapstructure:"db"`
	CronJobs CronJobConfig `mapstructure:"cronjobs"`
	Mail     MailConfig    `mapstructure:"mail"`
	Storage  StorageConfig `mapstructure:"storage"`
}

type ConfigLoader struct {
	v *viper.Viper
}

func NewConfigLoader() *ConfigLoader {
	return &ConfigLoader{
		v: viper.New(),
	}
}

func StringToDurationHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		str, ok := data.(string)
		if !ok {
			return data, nil
		}
		return duration.ParseDuration(str)
	}
}

func (cl *ConfigLoader) InitializeConfig(cmd *cobra.Command) error {
	cl.v.SetConfigType("toml")

	cfgFile := cmd.Flags().Lookup("config").Value.String()

	if cfgFile != "" {
		cl.v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error getting home directory: %v", err)
		}
		cl.v.AddConfigPath(filepath.Join(home, ".reqdrop"))
		cl.v.AddConfigPath(".")
		cl.v.SetConfigName("config")
	}

	cl.v.SetEnvPrefix("reqdrop")
	cl.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	cl.v.AutomaticEnv()

	if err := cl.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	if err := cl.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %v", err)
		}
	}

	return nil
}

func (cl *ConfigLoader) Load(cmd *cobra.Command, cfg interface{}) error {
	if err := cl.InitializeConfig(cmd); err != nil {
		return err
	}
	config := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			StringToDurationHook(),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return fmt.Errorf("failed to create decoder: %v", err)
	}

	if err := decoder.Decode(cl.v.AllSettings()); err != nil {
		return fmt.Errorf("failed to decode config: %v", err)
	}

	return nil
}

func AddCommonFlags(flags *pflag.FlagSet, config *ServerCmdConfig) {
	flags.StringP("config", "c", "", "Config file path (default $HOME/.reqdrop/config.toml)")

	// Log config
	flags.StringVar(&config.Log.Level, "log-level", zapcore.InfoLevel.String(), "Logging level")
	flags.StringVar(&config.Log.File, "log-file", "", "Logging file path")

	// DB config
	flags.StringVar(&config.DB.DataSource, "db-data-source", "", "Database connection string")
	flags.StringVar(&config.DB.LogLevel, "db-log-level", zapcore.InfoLevel.String(), "Database log level")
	flags.BoolVar(&config.DB.PrepareStmt, "db-prepare-stmt", true, "Enable prepared statements")
	flags.BoolVar(&config.DB.Pool.Enable, "db-pool-enable", true, "Enable database pool")
	flags.IntVar(&config.DB.Pool.MaxOpenConnections, "db-pool-max-open-connections", 25, "Database max open connections")
	flags.IntVar(&config.DB.Pool.MaxIdleConnections, "db-pool-max-idle-connections", 25, "Database max idle connections")
	duration.DurationVar(flags, &config.DB.Pool.MaxLifetime, "db-pool-max-lifetime", 10*time.Minute, "Database max connection lifetime")

	// Server config
	flags.IntVar(&config.Server.Port, "server-port", 8080, "Server port")
	flags.StringVar(&config.Server.BaseURL, "server-base-url", "http://localhost:8080", "Public base URL used in notification links")
	duration.DurationVar(flags, &config.Server.GracefulShutdown, "server-graceful-shutdown", 15*time.Second, "Grace period for in-flight requests on shutdown")
	duration.DurationVar(flags, &config.Server.ReadTimeout, "server-read-timeout", time.Minute, "Server read timeout")
	duration.DurationVar(flags, &config.Server.WriteTimeout, "server-write-timeout", time.Minute, "Server write timeout")

	// JWT config
	flags.StringVar(&config.JWT.Secret, "jwt-secret", "", "JWT signing secret")
	duration.DurationVar(flags, &config.JWT.SessionTime, "jwt-session-time", 30*24*time.Hour, "JWT session duration")

	// Cron config
	flags.BoolVar(&config.CronJobs.Enable, "cronjobs-enable", true, "Enable background reconciliation jobs")
	duration.DurationVar(flags, &config.CronJobs.ExpiryInterval, "cronjobs-expiry-interval", 24*time.Hour, "Interval between expiry reconciliation passes")
	duration.DurationVar(flags, &config.CronJobs.ReminderInterval, "cronjobs-reminder-interval", 12*time.Hour, "Interval between reminder passes")
	duration.DurationVar(flags, &config.CronJobs.ReminderLead, "cronjobs-reminder-lead", 48*time.Hour, "Deadline lead window for reminders")
	duration.DurationVar(flags, &config.CronJobs.ReminderGrace, "cronjobs-reminder-grace", 5*time.Minute, "Delay before the first reminder pass after start")
	flags.BoolVar(&config.CronJobs.RemindersEnabled, "cronjobs-reminders-enabled", true, "Enable reminder notifications")

	// Mail config
	flags.BoolVar(&config.Mail.Enabled, "mail-enabled", false, "Enable SMTP notifications")
	flags.StringVar(&config.Mail.Host, "mail-host", "", "SMTP host")
	flags.IntVar(&config.Mail.Port, "mail-port", 587, "SMTP port")
	flags.StringVar(&config.Mail.Username, "mail-username", "", "SMTP username")
	flags.StringVar(&config.Mail.Password, "mail-password", "", "SMTP password")
	flags.StringVar(&config.Mail.From, "mail-from", "noreply@reqdrop.local", "Notification sender address")

	// Storage config
	flags.StringVar(&config.Storage.Dir, "storage-dir", "uploads", "Directory for uploaded file blobs")
}
