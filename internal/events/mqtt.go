package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqttcommon "dental-ledger/common/mqtt"
)

// mqttClient the subset of common/mqtt.Client we use
type mqttClient interface {
	Publish(topic string, retained bool, payload []byte, timeout time.Duration) error
	Disconnect()
}

var _ mqttClient = (*mqttcommon.Client)(nil)

// MQTTPublisher publishes to <topicPrefix>/patients/<patient_id>/ledger
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
	timeout     time.Duration
}

// NewMQTTPublisher timeout bounds the wait for the broker ack
func NewMQTTPublisher(client *mqttcommon.Client, topicPrefix string, timeout time.Duration) *MQTTPublisher {
	return newMQTTPublisher(client, topicPrefix, timeout)
}

func newMQTTPublisher(client mqttClient, topicPrefix string, timeout time.Duration) *MQTTPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, topicPrefix: strings.TrimRight(topicPrefix, "/"), timeout: timeout}
}

var _ Publisher = (*MQTTPublisher)(nil)

// Topic for a patient's ledger events
func (p *MQTTPublisher) Topic(patientID string) string {
	return fmt.Sprintf("%s/patients/%s/ledger", p.topicPrefix, patientID)
}

// Publish sends the event as JSON, not retained
func (p *MQTTPublisher) Publish(ctx context.Context, ev LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ev.Type, err)
	}
	return p.client.Publish(p.Topic(ev.PatientID), false, payload, p.timeout)
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect()
	return nil
}
