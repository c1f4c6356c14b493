package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"radiology-routing/internal/models"
	"radiology-routing/internal/routing"
)

// WebhookNotifier posts routing events to a configured HTTP endpoint. With no
// URL configured every call is a logged no-op, so deployments without a
// downstream listener keep working.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

func NewWebhookNotifier(url string, log *zap.Logger) *WebhookNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	return &WebhookNotifier{client: client, url: url, log: log}
}

var _ routing.Notifier = (*WebhookNotifier)(nil)

type event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func (n *WebhookNotifier) post(ctx context.Context, eventName string, payload any) error {
	if n.url == "" {
		n.log.Debug("webhook url not configured, skipping notification", zap.String("event", eventName))
		return nil
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event{Event: eventName, Payload: payload}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("post %s webhook: %w", eventName, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post %s webhook: status %d", eventName, resp.StatusCode())
	}
	return nil
}

func (n *WebhookNotifier) AssignmentRouted(ctx context.Context, result *models.RoutingResult) error {
	return n.post(ctx, "assignment.routed", result)
}

// RequisitionReceived confirms intake of a new requisition to the referring
// side.
func (n *WebhookNotifier) RequisitionReceived(ctx context.Context, req *models.Requisition) error {
	return n.post(ctx, "requisition.received", req)
}
