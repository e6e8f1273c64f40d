package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// eventSchemas declares, per known event type, which payload attributes the
// tracker accepts. Unknown event types are passed through untouched so new
// interactions can be tracked without a server deploy.
var eventSchemas = map[string]map[string]bool{
	"form_submission": {
		"form":    true,
		"subject": true,
	},
	"download_click": {
		"file":  true,
		"label": true,
	},
	"theme_toggle": {
		"theme": true,
	},
	"filter_application": {
		"filter":   true,
		"category": true,
	},
	"external_link_click": {
		"url":   true,
		"label": true,
	},
}

// EncodeEventData validates a payload against the schema for its event type
// and returns the canonical JSON encoding. A nil payload encodes to nil.
func EncodeEventData(eventType string, data map[string]any) (json.RawMessage, error) {
	if len(data) == 0 {
		return nil, nil
	}

	if allowed, known := eventSchemas[eventType]; known {
		var rejected []string
		for key := range data {
			if !allowed[key] {
				rejected = append(rejected, key)
			}
		}
		if len(rejected) > 0 {
			sort.Strings(rejected)
			return nil, fmt.Errorf("event type %q does not accept attributes %v", eventType, rejected)
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event data: %w", err)
	}
	return raw, nil
}
