package main

import "time"

type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	NotificationBuffer   int           `env:"NOTIFICATION_BUFFER_SIZE,default=256"`
	RecentLimit          int           `env:"RECENT_LIMIT,default=50"`
	MessageRatePerSec    float64       `env:"MESSAGE_RATE_PER_SECOND,default=20"`
	MessageBurst         int           `env:"MESSAGE_BURST,default=40"`
	APIRatePerSec        float64       `env:"API_RATE_PER_SECOND,default=2"`
	APIBurst             int           `env:"API_BURST,default=120"`
	StorageGCInterval    time.Duration `env:"STORAGE_GC_INTERVAL,default=5m"`
	AdminID              string        `env:"ADMIN_ID,default=ADMIN_001"`
	SystemReceiverID     string        `env:"SYSTEM_RECEIVER_ID,default=admin_system"`
}
