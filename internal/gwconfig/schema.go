// Package gwconfig holds the gateway configuration schema, turns untrusted
// documents (JSON, JSONC, YAML, TOML) into a validated Config, and owns the
// single persisted copy the gateway is launched with.
package gwconfig

// Config is the document handed to the gateway. It is persisted as camelCase
// JSON. Secret-bearing fields carry `secret:"true"`; "" is their only unset
// value.
type Config struct {
	Agents    AgentsConfig              `json:"agents"`
	Providers map[string]ProviderConfig `json:"providers" validate:"dive"`
	Channels  map[string]ChannelConfig  `json:"channels" validate:"dive"`
	Gateway   GatewayConfig             `json:"gateway"`
	Tools     ToolsConfig               `json:"tools"`
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type AgentDefaults struct {
	Workspace         string  `json:"workspace" validate:"required"`
	Model             string  `json:"model" validate:"required"`
	MaxTokens         int     `json:"maxTokens" validate:"min=1,max=1000000"`
	Temperature       float64 `json:"temperature" validate:"gte=0,lte=2"`
	MaxToolIterations int     `json:"maxToolIterations" validate:"min=1,max=1000"`
}

// ProviderConfig configures one LLM provider, keyed by provider name.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey" secret:"true"`
	APIBase      string            `json:"apiBase,omitempty" validate:"omitempty,url"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty" secret:"true"`
}

// ChannelConfig configures one chat channel, keyed by channel name. Channels
// use the subset of fields their transport needs.
type ChannelConfig struct {
	Enabled           bool     `json:"enabled"`
	Token             string   `json:"token,omitempty" secret:"true"`
	BotToken          string   `json:"botToken,omitempty" secret:"true"`
	AppToken          string   `json:"appToken,omitempty" secret:"true"`
	AppID             string   `json:"appId,omitempty"`
	AppSecret         string   `json:"appSecret,omitempty" secret:"true"`
	EncryptKey        string   `json:"encryptKey,omitempty" secret:"true"`
	VerificationToken string   `json:"verificationToken,omitempty" secret:"true"`
	BridgeURL         string   `json:"bridgeUrl,omitempty" validate:"omitempty,url"`
	GatewayURL        string   `json:"gatewayUrl,omitempty" validate:"omitempty,url"`
	Intents           int      `json:"intents,omitempty" validate:"gte=0"`
	Proxy             string   `json:"proxy,omitempty" validate:"omitempty,url"`
	AllowFrom         []string `json:"allowFrom,omitempty"`
}

type GatewayConfig struct {
	Host string `json:"host" validate:"required"`
	Port int    `json:"port" validate:"min=1,max=65535"`
}

type ToolsConfig struct {
	Web                 WebToolsConfig `json:"web"`
	Exec                ExecToolConfig `json:"exec"`
	RestrictToWorkspace bool           `json:"restrictToWorkspace"`
}

type WebToolsConfig struct {
	Search WebSearchConfig `json:"search"`
}

type WebSearchConfig struct {
	APIKey     string `json:"apiKey" secret:"true"`
	MaxResults int    `json:"maxResults" validate:"min=1,max=20"`
}

type ExecToolConfig struct {
	Timeout int `json:"timeout" validate:"min=1,max=3600"`
}

// Default returns the configuration used when nothing is stored yet. Fields
// omitted from an incoming document keep these values.
func Default() Config {
	return Config{
		Agents: AgentsConfig{Defaults: AgentDefaults{
			Workspace:         "~/.nanobot/workspace",
			Model:             "anthropic/claude-opus-4-5",
			MaxTokens:         8192,
			Temperature:       0.7,
			MaxToolIterations: 20,
		}},
		Providers: map[string]ProviderConfig{},
		Channels:  map[string]ChannelConfig{},
		Gateway:   GatewayConfig{Host: "0.0.0.0", Port: 18790},
		Tools: ToolsConfig{
			Web:  WebToolsConfig{Search: WebSearchConfig{MaxResults: 5}},
			Exec: ExecToolConfig{Timeout: 60},
		},
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	if c.Providers != nil {
		out.Providers = make(map[string]ProviderConfig, len(c.Providers))
		for k, p := range c.Providers {
			if p.ExtraHeaders != nil {
				h := make(map[string]string, len(p.ExtraHeaders))
				for hk, hv := range p.ExtraHeaders {
					h[hk] = hv
				}
				p.ExtraHeaders = h
			}
			out.Providers[k] = p
		}
	}
	if c.Channels != nil {
		out.Channels = make(map[string]ChannelConfig, len(c.Channels))
		for k, ch := range c.Channels {
			if ch.AllowFrom != nil {
				ch.AllowFrom = append([]string(nil), ch.AllowFrom...)
			}
			out.Channels[k] = ch
		}
	}
	return out
}
