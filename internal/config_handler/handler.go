// Package config_handler reacts to catalog change events published by the
// catalog service.
package config_handler

import (
	"context"

	"ruleflow/internal/logger"
	"ruleflow/pkg/models"
)

type CatalogReloader interface {
	ReloadRules(ctx context.Context, skipJitter ...bool) error
}

type Handler struct {
	serviceType string
	reloader    CatalogReloader
	logger      logger.Logger
}

func NewHandler(serviceType string, reloader CatalogReloader, log logger.Logger) *Handler {
	return &Handler{
		serviceType: serviceType,
		reloader:    reloader,
		logger:      log,
	}
}

func relevantEvent(eventType string) bool {
	switch eventType {
	case models.EventTypeRuleUpdated, models.EventTypeActionUpdated, models.EventTypeCatalogReloaded:
		return true
	}
	return false
}

// HandleConfigUpdateEvent reloads the catalog for rule and action changes
// addressed to this service. Anything else on the topic is acknowledged and
// ignored. Reloads keep their jitter so replicas do not hit the store at once.
func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, envelope models.MessageEnvelope) error {
	if envelope.Type != "" && envelope.Type != models.EnvelopeTypeConfigUpdate {
		return nil
	}

	var event models.ConfigUpdateEvent
	if err := envelope.DecodePayload(&event); err != nil {
		h.logger.WarnwCtx(ctx, "Ignoring malformed config update event", "id", envelope.ID, "error", err)
		return nil
	}

	if event.ServiceType != h.serviceType {
		return nil
	}
	if !relevantEvent(event.EventType) {
		h.logger.DebugwCtx(ctx, "Ignoring config update event", "event_type", event.EventType)
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"entity_id", event.EntityID,
	)

	if err := h.reloader.ReloadRules(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload catalog after config update", "error", err)
		return err
	}

	h.logger.InfowCtx(ctx, "Catalog reloaded after config update", "action", event.Action)
	return nil
}
