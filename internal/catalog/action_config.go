package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	apperrors "ruleflow/pkg/errors"
)

// ActionConfig is the typed configuration of one action kind. Interpolate
// returns a copy with every string field expanded; the receiver is never
// modified.
type ActionConfig interface {
	Type() ActionType
	Validate() error
	Interpolate(expand func(string) string) ActionConfig
}

type EmailConfig struct {
	To      string `json:"to"`
	Cc      string `json:"cc,omitempty"`
	From    string `json:"from,omitempty"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
}

// Recipients splits To and Cc on commas.
func (c *EmailConfig) Recipients() []string {
	var out []string
	for _, field := range []string{c.To, c.Cc} {
		for _, addr := range strings.Split(field, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

func (c *EmailConfig) Type() ActionType { return ActionEmail }

func (c *EmailConfig) Validate() error {
	if strings.TrimSpace(c.To) == "" {
		return configError("to", "recipient is required")
	}
	if c.Subject == "" && c.Body == "" {
		return configError("subject", "subject or body is required")
	}
	return nil
}

func (c *EmailConfig) Interpolate(expand func(string) string) ActionConfig {
	return &EmailConfig{
		To:      expand(c.To),
		Cc:      expand(c.Cc),
		From:    expand(c.From),
		Subject: expand(c.Subject),
		Body:    expand(c.Body),
	}
}

type SMSConfig struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

func (c *SMSConfig) Type() ActionType { return ActionSMS }

func (c *SMSConfig) Validate() error {
	if strings.TrimSpace(c.To) == "" {
		return configError("to", "phone number is required")
	}
	if c.Message == "" {
		return configError("message", "message is required")
	}
	return nil
}

func (c *SMSConfig) Interpolate(expand func(string) string) ActionConfig {
	return &SMSConfig{
		To:       expand(c.To),
		Message:  expand(c.Message),
		SenderID: expand(c.SenderID),
	}
}

type WebhookConfig struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

var webhookMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// HTTPMethod defaults to POST.
func (c *WebhookConfig) HTTPMethod() string {
	if c.Method == "" {
		return "POST"
	}
	return strings.ToUpper(c.Method)
}

func (c *WebhookConfig) Type() ActionType { return ActionWebhook }

func (c *WebhookConfig) Validate() error {
	if c.URL == "" {
		return configError("url", "url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return configError("url", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return configError("url", "scheme must be http or https")
	}
	if !webhookMethods[c.HTTPMethod()] {
		return configError("method", fmt.Sprintf("unsupported method %q", c.Method))
	}
	return nil
}

func (c *WebhookConfig) Interpolate(expand func(string) string) ActionConfig {
	out := &WebhookConfig{
		URL:    expand(c.URL),
		Method: c.Method,
		Body:   expand(c.Body),
	}
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = expand(v)
		}
	}
	return out
}

// DatabaseConfig updates the documents of Collection matching Filter.
type DatabaseConfig struct {
	Collection string                 `json:"collection"`
	Filter     map[string]interface{} `json:"filter"`
	Set        map[string]interface{} `json:"set"`
	Upsert     bool                   `json:"upsert,omitempty"`
}

func (c *DatabaseConfig) Type() ActionType { return ActionDatabase }

func (c *DatabaseConfig) Validate() error {
	if c.Collection == "" {
		return configError("collection", "collection is required")
	}
	if len(c.Filter) == 0 {
		return configError("filter", "filter must name at least one field")
	}
	if len(c.Set) == 0 {
		return configError("set", "set must name at least one field")
	}
	for k := range c.Set {
		if strings.HasPrefix(k, "$") {
			return configError("set", fmt.Sprintf("operator key %q is not allowed", k))
		}
	}
	return nil
}

func (c *DatabaseConfig) Interpolate(expand func(string) string) ActionConfig {
	return &DatabaseConfig{
		Collection: c.Collection,
		Filter:     expandMap(c.Filter, expand),
		Set:        expandMap(c.Set, expand),
		Upsert:     c.Upsert,
	}
}

type NotificationConfig struct {
	Channel   string `json:"channel,omitempty"`
	Title     string `json:"title,omitempty"`
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
	Level     string `json:"level,omitempty"`
}

func (c *NotificationConfig) Type() ActionType { return ActionNotification }

func (c *NotificationConfig) Validate() error {
	if c.Message == "" && c.Title == "" {
		return configError("message", "message or title is required")
	}
	switch c.Level {
	case "", "info", "warning", "critical":
	default:
		return configError("level", fmt.Sprintf("unknown level %q", c.Level))
	}
	return nil
}

func (c *NotificationConfig) Interpolate(expand func(string) string) ActionConfig {
	return &NotificationConfig{
		Channel:   expand(c.Channel),
		Title:     expand(c.Title),
		Message:   expand(c.Message),
		Recipient: expand(c.Recipient),
		Level:     c.Level,
	}
}

func newConfig(t ActionType) (ActionConfig, bool) {
	switch t {
	case ActionEmail:
		return &EmailConfig{}, true
	case ActionSMS:
		return &SMSConfig{}, true
	case ActionWebhook:
		return &WebhookConfig{}, true
	case ActionDatabase:
		return &DatabaseConfig{}, true
	case ActionNotification:
		return &NotificationConfig{}, true
	}
	return nil, false
}

// DecodeConfig resolves a stored configuration document into the variant
// for t and validates it. Unknown fields are rejected.
func DecodeConfig(t ActionType, raw map[string]interface{}) (ActionConfig, error) {
	cfg, ok := newConfig(t)
	if !ok {
		return nil, apperrors.ErrValidation.WithDetail("message", fmt.Sprintf("unknown action type %q", t))
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrValidation)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, apperrors.ErrValidation.
			WithDetail("message", fmt.Sprintf("invalid %s config: %v", t, err)).
			WithCause(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EncodeConfig is the inverse of DecodeConfig, used when persisting.
func EncodeConfig(cfg ActionConfig) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func configError(field, message string) error {
	return apperrors.ErrValidation.
		WithDetail("field", field).
		WithDetail("message", field+": "+message)
}

func expandMap(m map[string]interface{}, expand func(string) string) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = expandValue(v, expand)
	}
	return out
}

func expandValue(v interface{}, expand func(string) string) interface{} {
	switch t := v.(type) {
	case string:
		return expand(t)
	case map[string]interface{}:
		return expandMap(t, expand)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = expandValue(item, expand)
		}
		return out
	}
	return v
}
