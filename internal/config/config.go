package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "dental-ledger/common/config"
)

// Event sinks
const (
	EventsSinkNone  = "none"
	EventsSinkRedis = "redis"
	EventsSinkMQTT  = "mqtt"
)

// Config dental-ledger (HTTP API) settings
type Config struct {
	HTTP struct {
		Addr string
	}
	Database     commoncfg.DatabaseConfig
	QueryTimeout time.Duration
	Log          struct {
		Level  string
		Format string
	}
	// ClinicalRecords remote service; empty URL reads treatments / lab_work / patients from Database
	ClinicalRecords struct {
		URL     string
		Timeout time.Duration
	}
	Events struct {
		Sink         string
		Stream       string
		StreamMaxLen int64
		Topic        string
	}
	Redis commoncfg.RedisConfig
	MQTT  commoncfg.MQTTConfig
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database = commoncfg.DatabaseConfig{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "dental_ledger",
		SSLMode:         "disable",
		MaxConns:        20,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
	}
	cfg.Database.LoadFromEnv("DB")
	cfg.QueryTimeout = parseDuration(getEnv("LEDGER_QUERY_TIMEOUT", ""), 5*time.Second)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.ClinicalRecords.URL = strings.TrimRight(getEnv("CLINICAL_RECORDS_URL", ""), "/")
	cfg.ClinicalRecords.Timeout = parseDuration(getEnv("CLINICAL_RECORDS_TIMEOUT", ""), 5*time.Second)

	cfg.Events.Sink = strings.ToLower(getEnv("LEDGER_EVENTS_SINK", EventsSinkNone))
	cfg.Events.Stream = getEnv("LEDGER_EVENTS_STREAM", "dental:ledger:events")
	cfg.Events.StreamMaxLen = int64(parseInt(getEnv("LEDGER_EVENTS_STREAM_MAXLEN", "10000"), 10000))
	cfg.Events.Topic = getEnv("MQTT_TOPIC", "dental")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = commoncfg.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "dental-ledger", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")

	return cfg
}

// Validate rejects settings the service cannot start with
func (c *Config) Validate() error {
	switch c.Events.Sink {
	case EventsSinkNone, EventsSinkRedis, EventsSinkMQTT:
	default:
		return fmt.Errorf("LEDGER_EVENTS_SINK must be one of none, redis, mqtt, got %q", c.Events.Sink)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("LEDGER_QUERY_TIMEOUT must be positive")
	}
	if c.ClinicalRecords.URL != "" && !strings.HasPrefix(c.ClinicalRecords.URL, "http") {
		return fmt.Errorf("CLINICAL_RECORDS_URL must be an http(s) URL, got %q", c.ClinicalRecords.URL)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// parseDuration accepts "750ms", "5s" or a bare number of seconds
func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}
