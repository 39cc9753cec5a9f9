// Package shared holds the message contracts exchanged between the API
// gateway and the sync worker.
package shared

import "time"

// SyncEvent asks the worker to run an incremental sync for one item. It is
// published when a provider webhook announces new transaction data or when a
// client requests a refresh; the item id is also the Kafka message key, so
// events for the same item land on the same partition in order.
type SyncEvent struct {
	ItemID      string    `json:"item_id"`
	WebhookType string    `json:"webhook_type,omitempty"`
	WebhookCode string    `json:"webhook_code,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}
