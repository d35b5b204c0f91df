// Package config provides configuration loading and management for
// taskdeck.
package config

// Config is the root configuration.
type Config struct {
	ServerURL  string `json:"server_url"            mapstructure:"server_url"`
	Project    string `json:"project"               mapstructure:"project"`
	DebounceMS int    `json:"debounce_ms,omitempty" mapstructure:"debounce_ms"`
	LogFile    string `json:"log_file,omitempty"    mapstructure:"log_file"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		ServerURL:  "http://localhost:8484",
		Project:    "default",
		DebounceMS: 500,
	}
}

// EventsURL derives the websocket endpoint for the configured project
// from the server URL.
func (c Config) EventsURL() string {
	url := c.ServerURL
	switch {
	case len(url) >= 8 && url[:8] == "https://":
		url = "wss://" + url[8:]
	case len(url) >= 7 && url[:7] == "http://":
		url = "ws://" + url[7:]
	}
	return url + "/api/projects/" + c.Project + "/events"
}
