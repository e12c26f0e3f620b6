package templates

import (
	"bytes"
	"fmt"
	"os"

	"github.com/NasaVasa/aptwatch/internal/domain"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates map[domain.NotificationType]domain.NotificationTemplate `yaml:"templates"`
}

// Load reads notification template overrides from a YAML file. An empty path yields no
// overrides.
func Load(path string) (map[domain.NotificationType]domain.NotificationTemplate, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (map[domain.NotificationType]domain.NotificationTemplate, error) {
	var file templateFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	for t, tpl := range file.Templates {
		switch t {
		case domain.NotificationPriceAlert, domain.NotificationNewTransaction:
		default:
			return nil, fmt.Errorf("unsupported notification type %q", t)
		}
		if tpl.Title == "" || tpl.Message == "" {
			return nil, fmt.Errorf("template %q: title and message are required", t)
		}
		switch tpl.Priority {
		case "", domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityUrgent:
		default:
			return nil, fmt.Errorf("template %q: unknown priority %q", t, tpl.Priority)
		}
	}
	return file.Templates, nil
}
