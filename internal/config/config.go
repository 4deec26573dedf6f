package config

import (
	"os"
	"strconv"
)

// Config wisefido-therapy（ACT 治疗数据 HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	RedisEnabled bool
	Redis        struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Upstream UpstreamConfig
	Fetch    FetchConfig
}

// UpstreamConfig ACT 云端（治疗记录上游服务）配置
type UpstreamConfig struct {
	HttpAddress    string // ACT 云端服务地址
	APIToken       string // 服务间调用令牌
	TimeoutSeconds int    // 单次请求超时（秒）
}

// FetchConfig 抓取编排配置
type FetchConfig struct {
	Concurrency    int // 日期区间抓取的并发上限（每请求）
	DiagTTLSeconds int // 诊断记录在 Redis 中的保留时间（秒）
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Redis 仅用于诊断侧信道，默认关闭以便本地 `go run` 直接可用
	cfg.RedisEnabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// ACT 云端配置
	cfg.Upstream.HttpAddress = getEnv("ACT_HTTP_ADDRESS", "http://localhost:9090")
	cfg.Upstream.APIToken = getEnv("ACT_API_TOKEN", "")
	cfg.Upstream.TimeoutSeconds = parseInt(getEnv("ACT_TIMEOUT_SECONDS", "30"), 30)

	// 抓取编排配置
	cfg.Fetch.Concurrency = parseInt(getEnv("FETCH_CONCURRENCY", "4"), 4)
	if cfg.Fetch.Concurrency < 1 {
		cfg.Fetch.Concurrency = 1
	}
	cfg.Fetch.DiagTTLSeconds = parseInt(getEnv("DIAG_TTL_SECONDS", "3600"), 3600)

	return cfg
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
