package config

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports required settings that are missing or still carry
// placeholder values. It is fatal: the orchestrator aborts before touching
// any service.
type ValidationError struct {
	Missing      []string
	Placeholders []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Placeholders) > 0 {
		parts = append(parts, "placeholder values: "+strings.Join(e.Placeholders, ", "))
	}
	return fmt.Sprintf("configuration invalid (%s); fill these in before bringing the stack up", strings.Join(parts, "; "))
}

// placeholder values that ship in templates and must never reach a running
// bring-up.
var placeholderValues = []string{
	"changeme", "change_me", "change-me", "todo", "fixme", "xxx", "placeholder", "replace_me",
}

func isPlaceholder(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(lv, "<") && strings.HasSuffix(lv, ">") {
		return true
	}
	for _, p := range placeholderValues {
		if lv == p {
			return true
		}
	}
	return false
}

// Validate checks the settings the bring-up cannot run without. Returns
// ok=true when everything required is present and resolved; otherwise the
// missing and placeholder key lists are populated.
func (c *Config) Validate() (ok bool, missing, placeholders []string) {
	required := map[string]string{
		"bootstrap.admin_dsn":      c.Bootstrap.AdminDSN,
		"bootstrap.app_dsn":        c.Bootstrap.AppDSN,
		"bootstrap.database":       c.Bootstrap.Database,
		"bootstrap.schema":         c.Bootstrap.Schema,
		"bootstrap.owner.name":     c.Bootstrap.Owner.Name,
		"bootstrap.owner.password": c.Bootstrap.Owner.Password,
	}
	for i, r := range c.Bootstrap.AppRoles {
		required[fmt.Sprintf("bootstrap.app_roles[%d].name", i)] = r.Name
		required[fmt.Sprintf("bootstrap.app_roles[%d].password", i)] = r.Password
	}
	for _, key := range sortedKeys(required) {
		v := required[key]
		switch {
		case strings.TrimSpace(v) == "":
			missing = append(missing, key)
		case isPlaceholder(v):
			placeholders = append(placeholders, key)
		}
	}
	if len(c.Services) == 0 {
		missing = append(missing, "services")
	}
	return len(missing) == 0 && len(placeholders) == 0, missing, placeholders
}

// MustValidate wraps Validate into the error form callers branch on.
func (c *Config) MustValidate() error {
	if ok, missing, placeholders := c.Validate(); !ok {
		return &ValidationError{Missing: missing, Placeholders: placeholders}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
