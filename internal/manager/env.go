package manager

import "strings"

// baseEnvKeys are always forwarded so the gateway can locate its runtime.
var baseEnvKeys = []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "TZ", "TMPDIR"}

// childEnv builds the child environment: the base keys, every variable with
// the pass-through prefix, and configVar pointing at the materialized config.
func childEnv(environ []string, prefix, configVar, configPath string) []string {
	out := make([]string, 0, len(baseEnvKeys)+8)
	seen := make(map[string]bool)
	for _, kv := range environ {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" || seen[k] {
			continue
		}
		if k == configVar && configPath != "" {
			continue
		}
		if isBaseKey(k) || (prefix != "" && strings.HasPrefix(k, prefix)) {
			seen[k] = true
			out = append(out, kv)
		}
	}
	if configPath != "" && configVar != "" {
		out = append(out, configVar+"="+configPath)
	}
	return out
}

func isBaseKey(k string) bool {
	for _, b := range baseEnvKeys {
		if k == b {
			return true
		}
	}
	return false
}
