package config

// Config is the root configuration for the PetWell chat client.
type Config struct {
	API     APIConfig     `yaml:"api,omitempty"`
	Socket  SocketConfig  `yaml:"socket,omitempty"`
	User    UserConfig    `yaml:"user,omitempty"`
	Chat    ChatConfig    `yaml:"chat,omitempty"`
	Upload  UploadConfig  `yaml:"upload,omitempty"`
	Cache   CacheConfig   `yaml:"cache,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Hooks   HooksConfig   `yaml:"hooks,omitempty"`
}

// APIConfig points the REST client at the PetWell backend.
type APIConfig struct {
	BaseURL        string `yaml:"baseUrl,omitempty"`
	Token          string `yaml:"token,omitempty"` // bearer credential; supports ${ENV_VAR} references
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// SocketConfig controls the push (WebSocket) layer. Push is an optimization;
// the client degrades to pure polling when disabled or unavailable.
type SocketConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // defaults to true
	URL     string `yaml:"url,omitempty"`     // defaults to baseUrl with ws(s) scheme + /socket
}

// UserConfig identifies the acting user and optional appointment context.
type UserConfig struct {
	ID            string `yaml:"id,omitempty"`
	Name          string `yaml:"name,omitempty"`
	Role          string `yaml:"role,omitempty"` // "customer" | "doctor" | "staff"
	AppointmentID string `yaml:"appointmentId,omitempty"`
	ClinicID      string `yaml:"clinicId,omitempty"`
	DoctorID      string `yaml:"doctorId,omitempty"`
}

// ChatConfig tunes reconciliation and polling behavior.
type ChatConfig struct {
	PollActiveMs        int `yaml:"pollActiveMs,omitempty"`        // cadence while push is unhealthy
	PollRelaxedMs       int `yaml:"pollRelaxedMs,omitempty"`       // cadence while push is healthy
	CorrelationWindowMs int `yaml:"correlationWindowMs,omitempty"` // heuristic supersession window
	MaxSendAttempts     int `yaml:"maxSendAttempts,omitempty"`     // retry cap for failed sends
}

// UploadConfig constrains image attachments before any network call.
type UploadConfig struct {
	MaxBytes     int64    `yaml:"maxBytes,omitempty"`
	AllowedTypes []string `yaml:"allowedTypes,omitempty"` // MIME types
}

// CacheConfig controls the local transcript cache.
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // defaults to true
	Path    string `yaml:"path,omitempty"`    // defaults to <data>/transcripts.db
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// HooksConfig defines shell commands run on chat events.
type HooksConfig struct {
	MessageReceived []HookEntry `yaml:"messageReceived,omitempty"`
	MessageFailed   []HookEntry `yaml:"messageFailed,omitempty"`
}

// HookEntry defines a single hook action.
type HookEntry struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout,omitempty"` // milliseconds
}
