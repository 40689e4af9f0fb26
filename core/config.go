package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	UpstreamConfig struct {
		PublicBaseURL     string
		AuthBaseURL       string
		Timeout           time.Duration
		UserAgent         string
		AppName           string
		DeviceID          string
		ClientVersion     string
		ClientPlatform    string
		GradesPath        string // relative to AuthBaseURL, "%s" is the child uuid
		NotificationsPath string // relative to AuthBaseURL, "%s" is the child uuid
	}

	TimetableConfig struct {
		Parallelism  int
		Debounce     time.Duration
		FetchTimeout time.Duration
	}

	StoreConfig struct {
		Engine    string // memory | file | postgres
		Path      string
		SecretKey string
		Namespace string
	}

	DatabaseConfig struct {
		Engine     string
		Host       string
		Port       int
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	ServerConfig struct {
		Host            string
		ShutdownTimeout time.Duration
	}

	ReminderConfig struct {
		LeadTime time.Duration
		Zone     string
		EmailTo  string
	}

	EmailConfig struct {
		DefaultFrom    string
		SendgridAPIKey string
	}

	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		Build        string
		RollbarToken string

		Upstream  UpstreamConfig
		Timetable TimetableConfig
		Store     StoreConfig
		Database  DatabaseConfig
		Server    ServerConfig
		Reminder  ReminderConfig
		Email     EmailConfig
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("upstream.publicBaseURL", "https://urniki.easistent.com/")
	v.SetDefault("upstream.authBaseURL", "https://www.easistent.com/")
	v.SetDefault("upstream.timeout", 20*time.Second)
	v.SetDefault("upstream.userAgent", "Ratiba/1.0")
	v.SetDefault("upstream.appName", "child")
	v.SetDefault("upstream.deviceID", "child_device")
	v.SetDefault("upstream.clientVersion", "11102")
	v.SetDefault("upstream.clientPlatform", "android")
	v.SetDefault("upstream.gradesPath", "m/v2/children/%s/grades")
	v.SetDefault("upstream.notificationsPath", "m/v2/children/%s/notifications")

	v.SetDefault("timetable.parallelism", 6)
	v.SetDefault("timetable.debounce", 200*time.Millisecond)
	v.SetDefault("timetable.fetchTimeout", time.Minute)

	v.SetDefault("store.engine", "file")
	v.SetDefault("store.path", filepath.Join(defaultDataDir(), "session.bin"))
	v.SetDefault("store.secretKey", "r4t1ba-l0cal-s3cr3t-ch4ng3-m3")
	v.SetDefault("store.namespace", "default")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ratiba")
	v.SetDefault("database.user", "ratiba")
	v.SetDefault("database.password", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("server.host", ":8000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("reminder.leadTime", 5*time.Minute)
	v.SetDefault("reminder.zone", "Europe/Ljubljana")
	v.SetDefault("reminder.emailTo", "")

	v.SetDefault("email.defaultFrom", "noreply@localhost")
	v.SetDefault("email.sendgridAPIKey", "")
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// Environment variables are prefixed with the ENV name, e.g. DEV_UPSTREAM_TIMEOUT=30s.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
		Upstream: UpstreamConfig{
			PublicBaseURL:     v.GetString("upstream.publicBaseURL"),
			AuthBaseURL:       v.GetString("upstream.authBaseURL"),
			Timeout:           v.GetDuration("upstream.timeout"),
			UserAgent:         v.GetString("upstream.userAgent"),
			AppName:           v.GetString("upstream.appName"),
			DeviceID:          v.GetString("upstream.deviceID"),
			ClientVersion:     v.GetString("upstream.clientVersion"),
			ClientPlatform:    v.GetString("upstream.clientPlatform"),
			GradesPath:        v.GetString("upstream.gradesPath"),
			NotificationsPath: v.GetString("upstream.notificationsPath"),
		},
		Timetable: TimetableConfig{
			Parallelism:  v.GetInt("timetable.parallelism"),
			Debounce:     v.GetDuration("timetable.debounce"),
			FetchTimeout: v.GetDuration("timetable.fetchTimeout"),
		},
		Store: StoreConfig{
			Engine:    v.GetString("store.engine"),
			Path:      v.GetString("store.path"),
			SecretKey: v.GetString("store.secretKey"),
			Namespace: v.GetString("store.namespace"),
		},
		Database: DatabaseConfig{
			Engine:     v.GetString("database.engine"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			Name:       v.GetString("database.name"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DisableTLS: v.GetBool("database.disableTLS"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Reminder: ReminderConfig{
			LeadTime: v.GetDuration("reminder.leadTime"),
			Zone:     v.GetString("reminder.zone"),
			EmailTo:  v.GetString("reminder.emailTo"),
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ratiba")
	}
	return ".ratiba"
}
