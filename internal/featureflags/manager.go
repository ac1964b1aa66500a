// Package featureflags gates optional surfaces of the content core.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags read by the HTTP adapter.
const (
	Registrations = "registrations"
	Reports       = "reports"
	Feedback      = "feedback"
	GeoSearch     = "geo_search"
)

// defaults apply to known flags that FEATURE_FLAGS does not mention.
var defaults = map[string]string{
	Registrations: "on",
	Reports:       "on",
	Feedback:      "on",
	GeoSearch:     "on",
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "registrations=on,geo_search=25%,reports=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config
// string layered over the built-in defaults. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a given user.
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic per-user rollout; anonymous callers are excluded)
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return defaults[normalize(name)] == "on"
	}

	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if userID == 0 {
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// Names lists every configured flag, sorted.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.flags))
	for name := range m.flags {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fmt.Sprintf("%s:%d", normalize(name), userID)))
	return int(h.Sum32() % 100)
}
