package delivery

import (
	"context"
	"net/http"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/internal/logger"
	"ruleflow/pkg/retry"
)

type Webhook struct {
	cfg  config.WebhookConfig
	call httpCall
}

func NewWebhook(client *http.Client, cfg config.WebhookConfig, log logger.Logger) *Webhook {
	return &Webhook{
		cfg: cfg,
		call: httpCall{
			client: client,
			policy: retry.PolicyFromConfig(cfg.Retry),
			logger: log,
			target: "webhook",
		},
	}
}

func (w *Webhook) Type() catalog.ActionType { return catalog.ActionWebhook }

func (w *Webhook) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	hook, err := configAs[*catalog.WebhookConfig](cfg)
	if err != nil {
		return nil, err
	}

	method := hook.HTTPMethod()
	if hook.Method == "" && w.cfg.DefaultMethod != "" {
		method = w.cfg.DefaultMethod
	}

	headers := make(map[string]string, len(w.cfg.Headers)+len(hook.Headers)+1)
	for k, v := range w.cfg.Headers {
		headers[k] = v
	}
	if hook.Body != "" {
		headers["Content-Type"] = "application/json"
	}
	for k, v := range hook.Headers {
		headers[k] = v
	}

	status, body, err := w.call.do(ctx, func() (*http.Request, error) {
		return newRequest(method, hook.URL, []byte(hook.Body), headers)
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"status_code": status,
		"response":    truncate(string(body)),
	}, nil
}
