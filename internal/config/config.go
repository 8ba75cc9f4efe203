// Package config loads appliance settings from configs/config.yml, the
// environment, local .env files and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"doorman/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DOORMAN"

// Keys.
const (
	KeyBucketName    = "bucket_name"
	KeyJSONPath      = "json_path"
	KeyCameraID      = "camera_id"
	KeyFullScreen    = "full_screen"
	KeyMirror        = "mirror"
	KeyWidth         = "width"
	KeyHeight        = "height"
	KeyMinTemp       = "min_temp"
	KeyMaxTemp       = "max_temp"
	KeyCooldown      = "cooldown"
	KeySensorRate    = "sensor_rate"
	KeyFrameRate     = "frame_rate"
	KeyProbeHost     = "probe.host"
	KeyProbePort     = "probe.port"
	KeyProbeTimeout  = "probe.timeout"
	KeyStartupDelay  = "startup_delay"
	KeyStorageDir    = "storage.dir"
	KeyRegion        = "storage.region"
	KeyEndpoint      = "storage.endpoint"
	KeyAccessKey     = "storage.access_key"
	KeySecretKey     = "storage.secret_key"
	KeyUploadTimeout = "storage.upload_timeout"
	KeyMailboxPath   = "mailbox.path"
	KeyDBPath        = "db.path"
	KeyPort          = "port"
	KeySigningKey    = "auth.signing_key"
	KeyLogLevel      = "log_level"
	KeyInteractive   = "interactive"
	KeySimPeriod     = "sim.period"
	KeySimDwell      = "sim.dwell"
)

type ProbeConfig struct {
	Host    string
	Port    int
	Timeout time.Duration
}

type StorageConfig struct {
	Dir       string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	UploadTimeout time.Duration
}

// Config is the resolved appliance configuration.
type Config struct {
	BucketName string
	JSONPath   string

	CameraID   int
	FullScreen bool // display only
	Mirror     bool // display only
	Width      int
	Height     int

	MinTemp      float64
	MaxTemp      float64
	Cooldown     time.Duration
	SensorRate   int
	FrameRate    int
	StartupDelay time.Duration

	Probe   ProbeConfig
	Storage StorageConfig

	MailboxPath string
	DBPath      string
	Port        string
	SigningKey  string
	LogLevel    string
	Interactive bool

	SimPeriod time.Duration
	SimDwell  time.Duration
}

// SetDefaults registers the built-in values.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBucketName, "rpi-thermal-camera")
	v.SetDefault(KeyJSONPath, "~/.doorman.json")
	v.SetDefault(KeyCameraID, 0)
	v.SetDefault(KeyFullScreen, false)
	v.SetDefault(KeyMirror, false)
	v.SetDefault(KeyWidth, 640)
	v.SetDefault(KeyHeight, 480)
	v.SetDefault(KeyMinTemp, 18.0)
	v.SetDefault(KeyMaxTemp, 32.0)
	v.SetDefault(KeyCooldown, 10*time.Second)
	v.SetDefault(KeySensorRate, 15)
	v.SetDefault(KeyFrameRate, 15)
	v.SetDefault(KeyProbeHost, "8.8.8.8")
	v.SetDefault(KeyProbePort, 53)
	v.SetDefault(KeyProbeTimeout, time.Second)
	v.SetDefault(KeyStartupDelay, 7*time.Second)
	v.SetDefault(KeyStorageDir, ".")
	v.SetDefault(KeyRegion, "us-east-1")
	v.SetDefault(KeyUploadTimeout, 30*time.Second)
	v.SetDefault(KeyMailboxPath, "~/.doorman-trigger.json")
	v.SetDefault(KeyDBPath, "doorman.db")
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, logger.InfoLevel)
	v.SetDefault(KeyInteractive, false)
	v.SetDefault(KeySimPeriod, 45*time.Second)
	v.SetDefault(KeySimDwell, 8*time.Second)
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"bucket-name":   KeyBucketName,
	"json-path":     KeyJSONPath,
	"camera-id":     KeyCameraID,
	"full-screen":   KeyFullScreen,
	"mirror":        KeyMirror,
	"width":         KeyWidth,
	"height":        KeyHeight,
	"min":           KeyMinTemp,
	"max":           KeyMaxTemp,
	"cooldown":      KeyCooldown,
	"startup-delay": KeyStartupDelay,
	"storage-dir":   KeyStorageDir,
	"mailbox":       KeyMailboxPath,
	"db":            KeyDBPath,
	"port":          KeyPort,
	"log-level":     KeyLogLevel,
	"interactive":   KeyInteractive,
}

// RegisterFlags adds the appliance flags to fs. Defaults live in SetDefaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("bucket-name", "b", "", "S3 bucket receiving artifacts")
	fs.String("json-path", "", "status file path")
	fs.IntP("camera-id", "c", 0, "camera id")
	fs.BoolP("full-screen", "f", false, "full-screen preview (display only)")
	fs.BoolP("mirror", "m", false, "mirror the preview (display only)")
	fs.Int("width", 0, "frame width")
	fs.Int("height", 0, "frame height")
	fs.Float64("min", 0, "lower bound of the display range in C")
	fs.Float64("max", 0, "detection threshold in C")
	fs.Duration("cooldown", 0, "minimum time between detections")
	fs.Duration("startup-delay", 0, "sleep before the connectivity gate")
	fs.String("storage-dir", "", "local artifact root")
	fs.String("mailbox", "", "trigger mailbox file (sense/capture processes)")
	fs.String("db", "", "sqlite journal path")
	fs.String("port", "", "operator API port")
	fs.String("log-level", "", "debug|info|warn|error")
	fs.Bool("interactive", false, "read c (capture) and q (quit) from stdin")
}

// BindFlags binds the flags registered by RegisterFlags.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadEnvFiles overlays .env and .env.dev from the working directory, if present.
func LoadEnvFiles(log *logger.Logger) []string {
	var loaded []string
	for _, file := range []string{".env", ".env.dev"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			if log != nil {
				log.Warnw("env_file_load_failed", "file", file, "err", err)
			}
			continue
		}
		loaded = append(loaded, file)
	}
	return loaded
}

// Load reads the optional config file and the environment into v and
// resolves a Config. cfgFile overrides the configs/config.yml lookup.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Names used by the original deployment scripts.
	_ = v.BindEnv(KeyBucketName, "BUCKET_NAME", envPrefix+"_BUCKET_NAME")
	_ = v.BindEnv(KeyJSONPath, "JSON_PATH", envPrefix+"_JSON_PATH")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		BucketName:   v.GetString(KeyBucketName),
		JSONPath:     ExpandHome(v.GetString(KeyJSONPath)),
		CameraID:     v.GetInt(KeyCameraID),
		FullScreen:   v.GetBool(KeyFullScreen),
		Mirror:       v.GetBool(KeyMirror),
		Width:        v.GetInt(KeyWidth),
		Height:       v.GetInt(KeyHeight),
		MinTemp:      v.GetFloat64(KeyMinTemp),
		MaxTemp:      v.GetFloat64(KeyMaxTemp),
		Cooldown:     v.GetDuration(KeyCooldown),
		SensorRate:   v.GetInt(KeySensorRate),
		FrameRate:    v.GetInt(KeyFrameRate),
		StartupDelay: v.GetDuration(KeyStartupDelay),
		Probe: ProbeConfig{
			Host:    v.GetString(KeyProbeHost),
			Port:    v.GetInt(KeyProbePort),
			Timeout: v.GetDuration(KeyProbeTimeout),
		},
		Storage: StorageConfig{
			Dir:       ExpandHome(v.GetString(KeyStorageDir)),
			Region:    v.GetString(KeyRegion),
			Endpoint:  v.GetString(KeyEndpoint),
			AccessKey: v.GetString(KeyAccessKey),
			SecretKey: v.GetString(KeySecretKey),

			UploadTimeout: v.GetDuration(KeyUploadTimeout),
		},
		MailboxPath: ExpandHome(v.GetString(KeyMailboxPath)),
		DBPath:      ExpandHome(v.GetString(KeyDBPath)),
		Port:        v.GetString(KeyPort),
		SigningKey:  v.GetString(KeySigningKey),
		LogLevel:    v.GetString(KeyLogLevel),
		Interactive: v.GetBool(KeyInteractive),
		SimPeriod:   v.GetDuration(KeySimPeriod),
		SimDwell:    v.GetDuration(KeySimDwell),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the loops cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxTemp <= c.MinTemp {
		errs = append(errs, fmt.Errorf("max_temp (%.1f) must be above min_temp (%.1f)", c.MaxTemp, c.MinTemp))
	}
	if c.Cooldown <= 0 {
		errs = append(errs, errors.New("cooldown must be positive"))
	}
	if c.SensorRate <= 0 || c.FrameRate <= 0 {
		errs = append(errs, errors.New("sensor_rate and frame_rate must be positive"))
	}
	if c.JSONPath == "" {
		errs = append(errs, errors.New("json_path is required"))
	}
	if c.Storage.UploadTimeout <= 0 {
		errs = append(errs, errors.New("storage.upload_timeout must be positive"))
	}
	if c.Probe.Port <= 0 || c.Probe.Port > 65535 {
		errs = append(errs, fmt.Errorf("probe.port %d out of range", c.Probe.Port))
	}
	return errors.Join(errs...)
}

// Tick converts a rate in Hz into a ticker period.
func Tick(rateHz int) time.Duration {
	if rateHz <= 0 {
		return 0
	}
	return time.Second / time.Duration(rateHz)
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
