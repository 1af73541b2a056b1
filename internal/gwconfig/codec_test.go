package gwconfig

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForContentType(t *testing.T) {
	cases := []struct {
		ct   string
		want Format
		ok   bool
	}{
		{"", FormatJSON, true},
		{"application/json; charset=utf-8", FormatJSON, true},
		{"application/x-yaml", FormatYAML, true},
		{"text/yaml", FormatYAML, true},
		{"application/toml", FormatTOML, true},
		{"text/plain", "", false},
		{";;;", "", false},
	}
	for _, c := range cases {
		got, ok := FormatForContentType(c.ct)
		assert.Equal(t, c.ok, ok, c.ct)
		assert.Equal(t, c.want, got, c.ct)
	}
}

func TestParse_AllFormatsAgree(t *testing.T) {
	jsonDoc := `{
		// comments are allowed
		"providers": {"openai": {"apiKey": "sk-1"}},
		"gateway": {"port": 9000,},
	}`
	yamlDoc := "providers:\n  openai:\n    api_key: sk-1\ngateway:\n  port: 9000\n"
	tomlDoc := "[providers.openai]\napi-key = \"sk-1\"\n\n[gateway]\nport = 9000\n"

	var results []Config
	for _, c := range []struct {
		f    Format
		body string
	}{{FormatJSON, jsonDoc}, {FormatYAML, yamlDoc}, {FormatTOML, tomlDoc}} {
		cfg, err := Parse([]byte(c.body), c.f, Options{})
		require.NoError(t, err, c.f)
		results = append(results, cfg)
	}
	for _, cfg := range results {
		assert.Equal(t, "sk-1", cfg.Providers["openai"].APIKey)
		assert.Equal(t, 9000, cfg.Gateway.Port)
		assert.Equal(t, results[0], cfg)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte(`{"a":`), FormatJSON)
	assert.True(t, IsSyntax(err))
	_, err = Decode([]byte(`[1,2]`), FormatJSON)
	assert.True(t, IsSyntax(err))
	_, err = Decode([]byte("a: [\n"), FormatYAML)
	assert.True(t, IsSyntax(err))
	_, err = Decode([]byte("= x"), FormatTOML)
	assert.True(t, IsSyntax(err))
}

func TestEncode_CamelCaseRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Providers["openai"] = ProviderConfig{APIKey: "sk-1"}
	b, err := Encode(cfg)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	defaults := generic["agents"].(map[string]any)["defaults"].(map[string]any)
	assert.Contains(t, defaults, "maxTokens")

	back, err := Parse(b, FormatJSON, Options{})
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
