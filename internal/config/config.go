package config

import (
	"fmt"
	"os"
)

// Default configuration values.
const (
	DefaultServer   = "localhost:8080"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = ""
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds client configuration: where the signaling server lives and
// which ICE servers peer transports should use.
type Config struct {
	// Server is the signaling server host:port.
	Server string

	// WebSocketURL is constructed from Server.
	WebSocketURL string

	// ICE servers for WebRTC.
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	// Secure selects wss:// over ws://.
	Secure bool
}

// Options carries CLI flag overrides into Load.
type Options struct {
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	Secure     bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstOf(opts.Server, os.Getenv("VC_SERVER"), DefaultServer)
	stun := firstOf(opts.STUNServer, os.Getenv("VC_STUN_SERVER"), DefaultSTUN)
	turn := firstOf(opts.TURNServer, os.Getenv("VC_TURN_SERVER"), DefaultTURN)
	turnUser := firstOf(opts.TURNUser, os.Getenv("VC_TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstOf(opts.TURNPass, os.Getenv("VC_TURN_PASSWORD"), DefaultTURNPass)

	scheme := "ws"
	if opts.Secure || os.Getenv("VC_SECURE") == "true" {
		scheme = "wss"
	}

	return &Config{
		Server:       server,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, server),
		STUNServer:   stun,
		TURNServer:   turn,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		Secure:       scheme == "wss",
	}, nil
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns the TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
