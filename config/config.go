package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/b0bbywan/go-odio-players/logger"
)

const (
	AppName     = "odio-players"
	AppVersion  = "0.1.0"
	envPrefix   = "ODIO_PLAYERS"
	serviceType = "_http._tcp"
	domain      = "local."
)

type Config struct {
	Api           *ApiConfig
	MPRIS         *MPRISConfig
	Artwork       *ArtworkConfig
	Zeroconf      *ZeroConfig
	LogLevel      logger.Level
	PackageLevels map[string]logger.Level
}

type ApiConfig struct {
	Enabled bool
	Port    int
	Listens []string
	SSE     bool
	CORS    *CORSConfig
}

type CORSConfig struct {
	Origins []string
}

type MPRISConfig struct {
	Enabled         bool
	Timeout         time.Duration
	SelfTest        bool
	SelfTestTimeout time.Duration
}

type ArtworkConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int64
	Timeout time.Duration
}

type ZeroConfig struct {
	Enabled      bool
	InstanceName string
	ServiceType  string
	Domain       string
	Port         int
	TxtRecords   []string
	Listen       []net.Interface
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LogLevel", "WARN")
	v.SetDefault("log.packages", map[string]string{})
	v.SetDefault("bind", "127.0.0.1")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8019)
	v.SetDefault("api.listens", []string{})
	v.SetDefault("api.sse", true)
	v.SetDefault("api.cors.origins", []string{})

	v.SetDefault("mpris.enabled", true)
	v.SetDefault("mpris.timeout", "5s")
	v.SetDefault("mpris.selftest.enabled", true)
	v.SetDefault("mpris.selftest.timeout", "1s")

	v.SetDefault("artwork.enabled", true)
	v.SetDefault("artwork.ttl", "10m")
	v.SetDefault("artwork.max_size", 10*1024*1024)
	v.SetDefault("artwork.timeout", "10s")

	v.SetDefault("zeroconf.enabled", false)
}

func interfaceForIP(ip string) (*net.Interface, error) {
	if ip == "127.0.0.1" {
		return nil, nil
	}
	listenIP := net.ParseIP(ip)
	if listenIP == nil {
		return nil, fmt.Errorf("invalid bind: %s", ip)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		addrs, _ := iface.Addrs()
		for _, addr := range addrs {
			var ifaceIP net.IP

			switch v := addr.(type) {
			case *net.IPNet:
				ifaceIP = v.IP
			case *net.IPAddr:
				ifaceIP = v.IP
			}

			if ifaceIP != nil && ifaceIP.Equal(listenIP) {
				return &iface, nil
			}
		}
	}

	return nil, fmt.Errorf("no interface found for IP %s", ip)
}

// packageLevels reads log.packages ({component: level}) into logger levels.
func packageLevels(v *viper.Viper) map[string]logger.Level {
	raw := v.GetStringMapString("log.packages")
	levels := make(map[string]logger.Level, len(raw))
	for component, level := range raw {
		levels[strings.ToLower(component)] = logger.ParseLevel(level, logger.WARN)
	}
	return levels
}

func positiveDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return def
	}
	return d
}

// New builds the configuration from the global viper instance.
func New() (*Config, error) {
	return Load(viper.GetViper())
}

// Load builds the configuration from v: defaults, then the optional config
// file, then ODIO_PLAYERS_* environment variables.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")                       // name of config file (without extension)
		v.SetConfigType("yaml")                         // config file format
		v.AddConfigPath(filepath.Join("/etc", AppName)) // Global configuration path
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName)) // User config path
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, continue with defaults if not found
		if _, isNotFound := err.(viper.ConfigFileNotFoundError); !isNotFound {
			logger.Warn("[config] failed to read config: %v", err)
		}
	}

	port := v.GetInt("api.port")
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", port)
	}

	bind := v.GetString("bind")
	var interfaces []net.Interface
	inet, err := interfaceForIP(bind)
	if err == nil && inet != nil {
		interfaces = append(interfaces, *inet)
	}

	listens := v.GetStringSlice("api.listens")
	if len(listens) == 0 {
		listens = []string{net.JoinHostPort(bind, strconv.Itoa(port))}
	}

	var cors *CORSConfig
	if origins := v.GetStringSlice("api.cors.origins"); len(origins) > 0 {
		cors = &CORSConfig{Origins: origins}
	}

	maxSize := v.GetInt64("artwork.max_size")
	if maxSize <= 0 {
		return nil, fmt.Errorf("invalid artwork.max_size: %d", maxSize)
	}

	apiCfg := ApiConfig{
		Enabled: v.GetBool("api.enabled"),
		Port:    port,
		Listens: listens,
		SSE:     v.GetBool("api.sse"),
		CORS:    cors,
	}

	mpriscfg := MPRISConfig{
		Enabled:         v.GetBool("mpris.enabled"),
		Timeout:         positiveDuration(v, "mpris.timeout", 5*time.Second),
		SelfTest:        v.GetBool("mpris.selftest.enabled"),
		SelfTestTimeout: positiveDuration(v, "mpris.selftest.timeout", time.Second),
	}

	artcfg := ArtworkConfig{
		Enabled: v.GetBool("artwork.enabled"),
		TTL:     positiveDuration(v, "artwork.ttl", 10*time.Minute),
		MaxSize: maxSize,
		Timeout: positiveDuration(v, "artwork.timeout", 10*time.Second),
	}

	zerocfg := ZeroConfig{
		Enabled:      v.GetBool("zeroconf.enabled"),
		InstanceName: AppName,
		ServiceType:  serviceType,
		Port:         port,
		Domain:       domain,
		TxtRecords:   []string{"version=" + AppVersion, "sse=" + strconv.FormatBool(apiCfg.SSE)},
		Listen:       interfaces,
	}

	cfg := Config{
		Api:           &apiCfg,
		MPRIS:         &mpriscfg,
		Artwork:       &artcfg,
		Zeroconf:      &zerocfg,
		LogLevel:      logger.ParseLevel(v.GetString("LogLevel"), logger.WARN),
		PackageLevels: packageLevels(v),
	}

	return &cfg, nil
}

// ApplyLogging pushes the configured log levels to the global logger.
func (c *Config) ApplyLogging() {
	logger.SetLevel(c.LogLevel)
	logger.SetPackageLevels(c.PackageLevels)
}

// Watch re-applies log levels whenever the config file changes on disk.
// Other settings need a restart.
func Watch(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := logger.ParseLevel(v.GetString("LogLevel"), logger.WARN)
		logger.SetLevel(level)
		logger.SetPackageLevels(packageLevels(v))
		logger.Info("[config] reloaded %s, log level %s", e.Name, level)
	})
	v.WatchConfig()
}
