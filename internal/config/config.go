package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig describes the two artifact directories. Paths are
// passed in explicitly at construction; nothing reads them from
// process-wide state.
type StorageConfig struct {
	UploadDir      string `yaml:"uploadDir"`
	ConvertedDir   string `yaml:"convertedDir"`
	MaxUploadBytes int64  `yaml:"maxUploadBytes"`
}

// TranscodeConfig controls the external ffmpeg invocation.
type TranscodeConfig struct {
	FFmpegPath string `yaml:"ffmpegPath"`
	TimeoutMs  int    `yaml:"timeoutMs"`
	SampleRate int    `yaml:"sampleRate"`
}

type WorkerConfig struct {
	MaxConcurrentJobs    int `yaml:"maxConcurrentJobs"`
	PollIntervalMs       int `yaml:"pollIntervalMs"`
	SyncJobWaitTimeoutMs int `yaml:"syncJobWaitTimeoutMs"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// LicenseConfig points at the external license verification API.
// The key itself is opaque; validity is whatever the remote oracle
// says it is.
type LicenseConfig struct {
	VerifyURL        string `yaml:"verifyURL"`
	ProductPermalink string `yaml:"productPermalink"`
	TimeoutMs        int    `yaml:"timeoutMs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Worker    WorkerConfig    `yaml:"worker"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	License   LicenseConfig   `yaml:"license"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills in zero-valued fields so partial config files
// and tests get sensible behavior.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.ConvertedDir == "" {
		c.Storage.ConvertedDir = "uploads/converted"
	}
	if c.Storage.MaxUploadBytes == 0 {
		c.Storage.MaxUploadBytes = 10 << 20
	}
	if c.Transcode.TimeoutMs == 0 {
		c.Transcode.TimeoutMs = 120000
	}
	if c.Transcode.SampleRate == 0 {
		c.Transcode.SampleRate = 44100
	}
	if c.Worker.MaxConcurrentJobs == 0 {
		c.Worker.MaxConcurrentJobs = 4
	}
	if c.Worker.PollIntervalMs == 0 {
		c.Worker.PollIntervalMs = 500
	}
	if c.Worker.SyncJobWaitTimeoutMs == 0 {
		c.Worker.SyncJobWaitTimeoutMs = 180000
	}
	if c.License.VerifyURL == "" {
		c.License.VerifyURL = "https://api.gumroad.com/v2/licenses/verify"
	}
	if c.License.TimeoutMs == 0 {
		c.License.TimeoutMs = 10000
	}
}
