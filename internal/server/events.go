package server

import (
	"context"
	"encoding/json"
	"log"
)

// Event type constants prevent typos in event names.
const (
	EventModeRequestCreated  = "mode_request_created"
	EventModeRequestResolved = "mode_request_resolved"
)

func (s *Server) publishUserEvent(userID uint, eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.PublishUser(context.Background(), userID, string(eventJSON)); err != nil {
			log.Printf("failed to publish %s event to user %d: %v", eventType, userID, err)
		}
	}
}

func (s *Server) publishAdminEvent(eventType string, payload map[string]interface{}) {
	event := map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}
	if s.notifier != nil {
		if err := s.notifier.PublishAdmin(context.Background(), string(eventJSON)); err != nil {
			log.Printf("failed to publish %s admin event: %v", eventType, err)
		}
	}
}
