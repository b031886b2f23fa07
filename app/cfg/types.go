package cfg

import "time"

type Cfg struct {
	// Server configuration
	Port         string
	APIAccessKey string

	// Data sources
	RegistryFile string
	HistoryDB    string
	NewsEndpoint string
	JobsEndpoint string

	// Fetching
	UserAgent        string
	HTTPTimeout      time.Duration
	CloudflareBypass bool
	NewsTTL          time.Duration
	JobsTTL          time.Duration
	KeywordsTTL      time.Duration
	FollowersTTL     time.Duration

	// Background refresh
	RefreshSchedule string
	WorkerCount     int

	// One-shot terminal report
	Report      bool
	Competitors []string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
