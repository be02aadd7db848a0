package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Server struct {
    Port              string `json:"port" yaml:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
    LogLevel          string `json:"log_level" yaml:"log_level"`
}

type Engine struct {
    ProviderOrder     []string `json:"provider_order" yaml:"provider_order"`
    ResultCacheTTLSec int      `json:"result_cache_ttl_sec" yaml:"result_cache_ttl_sec"`
    ResultCacheMax    int      `json:"result_cache_max_items" yaml:"result_cache_max_items"`
    BatchSize         int      `json:"batch_size" yaml:"batch_size"`
    BatchPauseMs      int      `json:"batch_pause_ms" yaml:"batch_pause_ms"`
    MaxWindowDays     int      `json:"max_window_days" yaml:"max_window_days"`
    RetryMax          int      `json:"retry_max" yaml:"retry_max"`
    RetryBaseMs       int      `json:"retry_base_ms" yaml:"retry_base_ms"`
}

// Limits are the per-provider decorator settings shared by every HTTP source.
type Limits struct {
    MaxRequestsPerMinute int `json:"max_requests_per_minute" yaml:"max_requests_per_minute"`
    Burst                int `json:"burst" yaml:"burst"`
    MinRequestIntervalMs int `json:"min_request_interval_ms" yaml:"min_request_interval_ms"`
    CacheTTLSeconds      int `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
    CacheMaxItems        int `json:"cache_max_items" yaml:"cache_max_items"`
    TimeoutSec           int `json:"timeout_sec" yaml:"timeout_sec"`
}

type Amadeus struct {
    ClientID     string `json:"client_id" yaml:"client_id"`
    ClientSecret string `json:"client_secret" yaml:"client_secret"`
    BaseURL      string `json:"base_url" yaml:"base_url"`
    TokenURL     string `json:"token_url" yaml:"token_url"`
    TokenTTLSec  int    `json:"token_ttl_sec" yaml:"token_ttl_sec"`
    Limits       `yaml:",inline"`
}

type FlightSky struct {
    Host           string `json:"host" yaml:"host"`
    Key            string `json:"key" yaml:"key"`
    Market         string `json:"market" yaml:"market"`
    Locale         string `json:"locale" yaml:"locale"`
    Currency       string `json:"currency" yaml:"currency"`
    ResolverTTLSec int    `json:"resolver_ttl_sec" yaml:"resolver_ttl_sec"`
    Limits         `yaml:",inline"`
}

type Google struct {
    Host           string `json:"host" yaml:"host"`
    Key            string `json:"key" yaml:"key"`
    Language       string `json:"language" yaml:"language"`
    Location       string `json:"location" yaml:"location"`
    Currency       string `json:"currency" yaml:"currency"`
    ResolverTTLSec int    `json:"resolver_ttl_sec" yaml:"resolver_ttl_sec"`
    Limits         `yaml:",inline"`
}

type Synthetic struct {
    Enabled         bool   `json:"enabled" yaml:"enabled"`
    CacheTTLSeconds int    `json:"cache_ttl_sec" yaml:"cache_ttl_sec"`
    Seed            uint64 `json:"seed" yaml:"seed"`
}

type Config struct {
    Server    Server    `json:"server" yaml:"server"`
    Engine    Engine    `json:"engine" yaml:"engine"`
    Amadeus   Amadeus   `json:"amadeus" yaml:"amadeus"`
    FlightSky FlightSky `json:"flightsky" yaml:"flightsky"`
    Google    Google    `json:"google" yaml:"google"`
    Synthetic Synthetic `json:"synthetic" yaml:"synthetic"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 30, LogLevel: "info"},
        Engine: Engine{
            ProviderOrder:     []string{"amadeus", "flightsky", "google"},
            ResultCacheTTLSec: 600,
            ResultCacheMax:    10000,
            BatchSize:         5,
            BatchPauseMs:      200,
            MaxWindowDays:     30,
            RetryMax:          2,
            RetryBaseMs:       500,
        },
        Amadeus: Amadeus{
            BaseURL:     "https://test.api.amadeus.com",
            TokenURL:    "https://test.api.amadeus.com/v1/security/oauth2/token",
            TokenTTLSec: 1800,
            Limits: Limits{MaxRequestsPerMinute: 600, Burst: 5, CacheTTLSeconds: 600, CacheMaxItems: 50000, TimeoutSec: 10},
        },
        FlightSky: FlightSky{
            Market:         "FR",
            Locale:         "fr-FR",
            Currency:       "EUR",
            ResolverTTLSec: 3600,
            Limits:         Limits{MaxRequestsPerMinute: 60, Burst: 2, CacheTTLSeconds: 600, CacheMaxItems: 10000, TimeoutSec: 15},
        },
        Google: Google{
            Language:       "en-US",
            Location:       "US",
            Currency:       "USD",
            ResolverTTLSec: 3600,
            Limits:         Limits{MaxRequestsPerMinute: 60, Burst: 2, CacheTTLSeconds: 600, CacheMaxItems: 10000, TimeoutSec: 15},
        },
        Synthetic: Synthetic{Enabled: true, CacheTTLSeconds: 1800},
    }
}

// Load builds the configuration: defaults, then the file at path (or the
// first of config.json, config.yaml found in the working directory), then
// the environment. .env and .env.local are read first without overriding
// variables already set.
func Load(path string) (Config, error) {
    cfg := Default()
    for _, f := range []string{".env.local", ".env"} {
        if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("load %s: %w", f, err)
        }
    }
    if path == "" {
        for _, p := range []string{"config.json", "config.yaml", "config.yml"} {
            if _, err := os.Stat(p); err == nil {
                path = p
                break
            }
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := decode(path, b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".yaml", ".yml":
        return yaml.Unmarshal(b, cfg)
    case ".json", "":
        return json.Unmarshal(b, cfg)
    }
    return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

func applyEnv(cfg *Config) {
    setString(&cfg.Server.Port, "PORT")
    setInt(&cfg.Server.RequestTimeoutSec, "REQUEST_TIMEOUT_SEC", 1)
    setString(&cfg.Server.LogLevel, "LOG_LEVEL")

    if v := os.Getenv("PROVIDER_ORDER"); v != "" {
        cfg.Engine.ProviderOrder = splitCSV(v)
    }
    setInt(&cfg.Engine.ResultCacheTTLSec, "RESULT_CACHE_TTL_SEC", 0)

    setString(&cfg.Amadeus.ClientID, "AMADEUS_API_KEY")
    setString(&cfg.Amadeus.ClientSecret, "AMADEUS_API_SECRET_KEY")
    setString(&cfg.Amadeus.BaseURL, "AMADEUS_BASE_URL")
    setString(&cfg.Amadeus.TokenURL, "AMADEUS_TOKEN_URL")

    setString(&cfg.FlightSky.Host, "FLIGHTSKY_API_HOST")
    setString(&cfg.FlightSky.Key, "FLIGHTSKY_API_KEY")
    setString(&cfg.FlightSky.Market, "FLIGHTSKY_MARKET")
    setString(&cfg.FlightSky.Locale, "FLIGHTSKY_LOCALE")
    setString(&cfg.FlightSky.Currency, "FLIGHTSKY_CURRENCY")

    setString(&cfg.Google.Host, "GOOGLE_FLIGHTS_API_HOST")
    setString(&cfg.Google.Key, "GOOGLE_FLIGHTS_API_KEY")
    setString(&cfg.Google.Language, "GOOGLE_FLIGHTS_LANGUAGE")
    setString(&cfg.Google.Location, "GOOGLE_FLIGHTS_LOCATION")
    setString(&cfg.Google.Currency, "GOOGLE_FLIGHTS_CURRENCY")

    if v := os.Getenv("SYNTHETIC_ENABLED"); v != "" {
        if b, ok := parseBool(v); ok { cfg.Synthetic.Enabled = b }
    }
    if v := os.Getenv("SYNTHETIC_SEED"); v != "" {
        if x, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil { cfg.Synthetic.Seed = x }
    }
}

func setString(dst *string, key string) {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" { *dst = v }
}

// setInt overrides dst when key holds an integer of at least floor.
func setInt(dst *int, key string, floor int) {
    v := os.Getenv(key)
    if v == "" { return }
    if x, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && x >= floor { *dst = x }
}

func parseBool(v string) (bool, bool) {
    switch strings.ToLower(strings.TrimSpace(v)) {
    case "1", "true", "yes", "y", "on":
        return true, true
    case "0", "false", "no", "n", "off":
        return false, true
    }
    return false, false
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.ToLower(strings.TrimSpace(p))
        if p != "" { out = append(out, p) }
    }
    return out
}
