package main

import (
	"cmp"
	"flag"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

type config struct {
	Mode      string
	Addr      string
	Name      string
	RemoteURL string
	APIKeys   map[string]string // key -> caller id
	JWTSecret string

	Store      string
	StorageDir string
	RedisAddr  string
	RedisDB    int
	S3Bucket   string
	S3Prefix   string

	Push        string
	SQSQueueURL string

	LogLevel  slog.Level
	LogFormat string
}

// parseFlags reads flags from args; unset flags fall back to TASKLANE_<NAME> from getenv.
func parseFlags(fs *flag.FlagSet, args []string, getenv func(string) string) (*config, error) {
	cfg := &config{}
	env := func(name, fallback string) string {
		key := "TASKLANE_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		return cmp.Or(getenv(key), fallback)
	}
	envInt := func(key string) int {
		n, _ := strconv.Atoi(getenv(key))
		return n
	}
	var apiKeys, logLevel string
	fs.StringVar(&cfg.Mode, "mode", env("mode", "server"), "server or push-worker")
	fs.StringVar(&cfg.Addr, "addr", env("addr", ""), "listen address (default :8080)")
	fs.StringVar(&cfg.Name, "name", env("name", "tasklane echo agent"), "agent card name")
	fs.StringVar(&cfg.RemoteURL, "remote-url", env("remote-url", ""), "proxy tasks to the A2A agent at this URL instead of echoing")
	fs.StringVar(&apiKeys, "api-keys", env("api-keys", ""), "comma separated key=caller pairs")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", env("jwt-secret", ""), "HMAC secret of HS256 bearer tokens, the sub claim is the caller")
	fs.StringVar(&cfg.Store, "store", env("store", "fs"), "task store: fs, memory, redis or s3")
	fs.StringVar(&cfg.StorageDir, "storage-dir", env("storage-dir", "/tmp/tasklane"), "directory of the fs store")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", env("redis-addr", "localhost:6379"), "redis address")
	fs.IntVar(&cfg.RedisDB, "redis-db", envInt("TASKLANE_REDIS_DB"), "redis database")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", env("s3-bucket", ""), "bucket of the s3 store")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", env("s3-prefix", ""), "key prefix of the s3 store")
	fs.StringVar(&cfg.Push, "push", env("push", ""), "push notification delivery: empty (disabled), http or sqs")
	fs.StringVar(&cfg.SQSQueueURL, "sqs-queue-url", env("sqs-queue-url", ""), "queue of the sqs push delivery")
	fs.StringVar(&logLevel, "log-level", env("log-level", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", env("log-format", "text"), "text or json")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid -log-level: %w", err)
	}
	keys, err := parseAPIKeys(apiKeys)
	if err != nil {
		return nil, err
	}
	cfg.APIKeys = keys

	switch cfg.Mode {
	case "server", "push-worker":
	default:
		return nil, fmt.Errorf("unknown -mode %q", cfg.Mode)
	}
	switch cfg.Store {
	case "fs", "memory", "redis":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("-s3-bucket is required for the s3 store")
		}
	default:
		return nil, fmt.Errorf("unknown -store %q", cfg.Store)
	}
	switch cfg.Push {
	case "", "http":
	case "sqs":
		if cfg.SQSQueueURL == "" {
			return nil, fmt.Errorf("-sqs-queue-url is required for sqs push delivery")
		}
	default:
		return nil, fmt.Errorf("unknown -push %q", cfg.Push)
	}
	return cfg, nil
}

func parseAPIKeys(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	keys := make(map[string]string)
	for pair := range strings.SplitSeq(s, ",") {
		key, caller, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || key == "" || caller == "" {
			return nil, fmt.Errorf("invalid api key pair %q, want key=caller", pair)
		}
		keys[key] = caller
	}
	return keys, nil
}
