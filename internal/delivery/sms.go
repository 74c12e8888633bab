package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ruleflow/internal/catalog"
	"ruleflow/internal/config"
	"ruleflow/internal/logger"
	"ruleflow/pkg/retry"
)

// SMSGateway posts messages to an HTTP SMS gateway as
// {"to", "message", "sender_id"} with a bearer API key.
type SMSGateway struct {
	cfg  config.SMSConfig
	call httpCall
}

type smsRequest struct {
	To       string `json:"to"`
	Message  string `json:"message"`
	SenderID string `json:"sender_id,omitempty"`
}

type smsResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

func NewSMSGateway(client *http.Client, cfg config.SMSConfig, log logger.Logger) *SMSGateway {
	return &SMSGateway{
		cfg: cfg,
		call: httpCall{
			client: client,
			policy: retry.PolicyFromConfig(cfg.Retry),
			logger: log,
			target: "sms_gateway",
		},
	}
}

func (g *SMSGateway) Type() catalog.ActionType { return catalog.ActionSMS }

func (g *SMSGateway) Deliver(ctx context.Context, cfg catalog.ActionConfig) (map[string]interface{}, error) {
	sms, err := configAs[*catalog.SMSConfig](cfg)
	if err != nil {
		return nil, err
	}

	sender := sms.SenderID
	if sender == "" {
		sender = g.cfg.SenderID
	}
	payload, err := json.Marshal(smsRequest{To: sms.To, Message: sms.Message, SenderID: sender})
	if err != nil {
		return nil, retry.NewFatalError(fmt.Errorf("failed to encode sms request: %w", err))
	}

	headers := map[string]string{"Content-Type": "application/json"}
	if g.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + g.cfg.APIKey
	}

	status, body, err := g.call.do(ctx, func() (*http.Request, error) {
		return newRequest(http.MethodPost, g.cfg.GatewayURL, payload, headers)
	})
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{"status_code": status}
	var resp smsResponse
	if json.Unmarshal(body, &resp) == nil {
		if resp.MessageID != "" {
			result["message_id"] = resp.MessageID
		}
		if resp.Status != "" {
			result["gateway_status"] = resp.Status
		}
	}
	return result, nil
}
