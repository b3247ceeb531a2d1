package main

import "time"

type Config struct {
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	RedisURL          string        `env:"REDIS_URL"`
	TokenSecret       string        `env:"TOKEN_SECRET,required=true"`
	TokenDuration     time.Duration `env:"TOKEN_DURATION,default=24h"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	BusBufferSize     int           `env:"BUS_BUFFER_SIZE,default=1024"`
	PresenceTTL       time.Duration `env:"PRESENCE_TTL,default=60s"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=20s"`
	ReportInterval    time.Duration `env:"REPORT_INTERVAL,default=30s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=5s"`
	MaxContentLength  int           `env:"MAX_CONTENT_LENGTH,default=2000"`
	LimitMessages     *int          `env:"LIMIT_MESSAGES"`
	CORSOrigins       []string      `env:"CORS_ORIGINS,default=*"`
}
