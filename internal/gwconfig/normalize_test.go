package gwconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalKey(t *testing.T) {
	cases := map[string]string{
		"apiKey":              "api_key",
		"api-key":             "api_key",
		"api_key":             "api_key",
		"API_KEY":             "api_key",
		"APIKey":              "api_key",
		"maxToolIterations":   "max_tool_iterations",
		"max-tool-iterations": "max_tool_iterations",
		"bridgeURL":           "bridge_url",
		"bridgeUrl":           "bridge_url",
		"appID":               "app_id",
		" port ":              "port",
	}
	for in, want := range cases {
		assert.Equal(t, want, CanonicalKey(in), "input %q", in)
	}
	assert.Equal(t, "restrict_to_workspace", CanonicalKey("restrict__to-workspace"))
}

func TestStringKeys_ConvertsNestedAnyMaps(t *testing.T) {
	in := map[string]any{
		"a": map[any]any{"b": 1, 2: []any{map[any]any{"c": true}}},
	}
	out := stringKeys(in).(map[string]any)
	inner := out["a"].(map[string]any)
	assert.Equal(t, 1, inner["b"])
	list := inner["2"].([]any)
	assert.Equal(t, map[string]any{"c": true}, list[0])
}
