package schema

import (
	"encoding/json"
	"strings"
)

// Notification is the payload the production pipeline publishes to the test
// notification channel once it has finished processing a forwarded fixture.
// Unknown fields are preserved in Extra for forward compatibility.
type Notification struct {
	Status      string                      `json:"status,omitempty"`
	Pipeline    string                      `json:"pipeline,omitempty"`
	Severity    string                      `json:"severity,omitempty"`
	OutputPaths []string                    `json:"output_paths,omitempty"`
	DropboxPath string                      `json:"dropbox_path,omitempty"`
	Extra       map[string]json.RawMessage  `json:"-"`

	// Body is the raw message text the notification arrived in, used for
	// bracketed-identifier correlation.
	Body string `json:"-"`
}

// HasField reports whether name was present among the notification's named
// fields (including ones folded into Extra).
func (n Notification) HasField(name string) bool {
	switch name {
	case "status":
		return n.Status != ""
	case "pipeline":
		return n.Pipeline != ""
	case "severity":
		return n.Severity != ""
	case "output_paths":
		return len(n.OutputPaths) > 0
	case "dropbox_path":
		return n.DropboxPath != ""
	default:
		_, ok := n.Extra[name]
		return ok
	}
}

// ParseNotification extracts the structured notification payload out of a
// raw message body. The pipeline publishes notifications as a JSON object,
// often surrounded by human-readable text; the span from the first '{' to
// the last '}' in the body is decoded as one object, known fields are lifted into the struct,
// and every unknown field is preserved verbatim in Extra. A body with no
// parseable object still yields a usable Notification carrying Body for
// bracketed-identifier correlation.
func ParseNotification(body string) Notification {
	n := Notification{Body: body}
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start == -1 || end <= start {
		return n
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body[start:end+1]), &fields); err != nil {
		return n
	}
	for key, raw := range fields {
		switch key {
		case "status":
			_ = json.Unmarshal(raw, &n.Status)
		case "pipeline":
			_ = json.Unmarshal(raw, &n.Pipeline)
		case "severity":
			_ = json.Unmarshal(raw, &n.Severity)
		case "output_paths":
			_ = json.Unmarshal(raw, &n.OutputPaths)
		case "dropbox_path":
			_ = json.Unmarshal(raw, &n.DropboxPath)
		default:
			if n.Extra == nil {
				n.Extra = map[string]json.RawMessage{}
			}
			n.Extra[key] = raw
		}
	}
	return n
}
