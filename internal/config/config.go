package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Ledger drivers accepted by LEDGER_DRIVER.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all runtime configuration for the trading server.
type Config struct {
	Port            int
	AdminPort       int // 0 disables the admin HTTP server
	BeaconAddr      string
	BeaconInterval  time.Duration
	BeaconMagic     string
	LedgerDriver    string
	LedgerPath      string
	SeedDemo        bool
	ReadBufferSize  int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 12344)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d out of range 1-65535", port)
	}

	adminPort, err := getInt("ADMIN_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_PORT: %w", err)
	}
	if adminPort < 0 || adminPort > 65535 {
		return nil, fmt.Errorf("invalid ADMIN_PORT: %d out of range 0-65535", adminPort)
	}

	beaconAddr := getStr("BEACON_ADDR", "255.255.255.255:12345")
	if _, err := net.ResolveUDPAddr("udp4", beaconAddr); err != nil {
		return nil, fmt.Errorf("invalid BEACON_ADDR: %w", err)
	}

	beaconInterval, err := getDuration("BEACON_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BEACON_INTERVAL: %w", err)
	}
	if beaconInterval <= 0 {
		return nil, fmt.Errorf("invalid BEACON_INTERVAL: %v must be > 0", beaconInterval)
	}

	beaconMagic := getStr("BEACON_MAGIC", "IAMHERE!")

	ledgerDriver := getStr("LEDGER_DRIVER", DriverSQLite)
	if ledgerDriver != DriverSQLite && ledgerDriver != DriverMemory {
		return nil, fmt.Errorf("invalid LEDGER_DRIVER: %q, must be one of: sqlite, memory", ledgerDriver)
	}
	ledgerPath := getStr("LEDGER_PATH", "system.db")

	seedDemo, err := getBool("SEED_DEMO", true)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_DEMO: %w", err)
	}

	readBufferSize, err := getInt("READ_BUFFER_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_BUFFER_SIZE: %w", err)
	}
	if readBufferSize <= 0 {
		return nil, fmt.Errorf("invalid READ_BUFFER_SIZE: %d must be > 0", readBufferSize)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		AdminPort:       adminPort,
		BeaconAddr:      beaconAddr,
		BeaconInterval:  beaconInterval,
		BeaconMagic:     beaconMagic,
		LedgerDriver:    ledgerDriver,
		LedgerPath:      ledgerPath,
		SeedDemo:        seedDemo,
		ReadBufferSize:  readBufferSize,
		LogLevel:        logLevel,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
