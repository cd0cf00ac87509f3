package homepage

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// templateVar matches Homepage substitutions such as {{HOMEPAGE_VAR_RADARR_KEY}}.
var templateVar = regexp.MustCompile(`\{\{\s*([^}\s]+)\s*\}\}`)

// Loader handles loading and parsing of Homepage services.yaml
type Loader struct {
	filePath string
	lookup   func(string) (string, bool)
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
}

// Load reads and parses the services.yaml file
func (l *Loader) Load() (ServicesConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}

	data = l.expandTemplateVariables(data)

	var config ServicesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse services yaml: %w", err)
	}

	return config, nil
}

// expandTemplateVariables resolves Homepage template variables the way
// Homepage does: HOMEPAGE_VAR_* from the environment, HOMEPAGE_FILE_* from
// the file the variable points to. Unresolved variables become "".
func (l *Loader) expandTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(templateVar.FindSubmatch(match)[1])
		if v, ok := l.resolve(name); ok {
			return []byte(v)
		}
		return []byte(`""`)
	})
}

func (l *Loader) resolve(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "HOMEPAGE_VAR_"):
		v, ok := l.lookup(name)
		return v, ok && v != ""
	case strings.HasPrefix(name, "HOMEPAGE_FILE_"):
		path, ok := l.lookup(name)
		if !ok || path == "" {
			return "", false
		}
		content, err := os.ReadFile(path) // #nosec G304 -- path comes from operator environment
		if err != nil {
			return "", false
		}
		v := strings.TrimSpace(string(content))
		return v, v != ""
	default:
		return "", false
	}
}
