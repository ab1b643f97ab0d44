package notify

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/TruwixTech/Truwix-RM-Rental-Backend/models"
	"gorm.io/gorm"
)

// Notifier is the external delivery adapter. Delivery is fire-and-forget
// from the order lifecycle's perspective; failed sends stay queued.
type Notifier interface {
	Send(recipient, topic string, context map[string]interface{}) error
}

// LogNotifier writes notifications to the application log. Stands in until
// a mail/SMS provider is wired to the outbox.
type LogNotifier struct{}

func (LogNotifier) Send(recipient, topic string, context map[string]interface{}) error {
	log.Printf("📣 notify %s → %s: %v", topic, recipient, context)
	return nil
}

// Enqueue records a notification in the outbox. Call it inside the same
// transaction as the state change it announces, so either both commit or
// neither does.
func Enqueue(tx *gorm.DB, topic, recipient string, context map[string]interface{}) error {
	payload, err := json.Marshal(context)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	return tx.Create(&models.OutboxEvent{
		Topic:     topic,
		Recipient: recipient,
		Payload:   string(payload),
	}).Error
}

// Drain delivers pending outbox events through n and marks them
// dispatched. Failures are logged and left queued for the next run; the
// whole pass is safe to invoke repeatedly.
func Drain(db *gorm.DB, n Notifier) (int, error) {
	var events []models.OutboxEvent
	if err := db.Where("dispatched = ?", false).Order("id").Find(&events).Error; err != nil {
		return 0, err
	}

	delivered := 0
	for _, ev := range events {
		var ctx map[string]interface{}
		if err := json.Unmarshal([]byte(ev.Payload), &ctx); err != nil {
			log.Printf("❌ Outbox event %d has a bad payload, skipping: %v", ev.ID, err)
			continue
		}

		if err := n.Send(ev.Recipient, ev.Topic, ctx); err != nil {
			log.Printf("❌ Failed to deliver outbox event %d (%s): %v", ev.ID, ev.Topic, err)
			db.Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).
				UpdateColumn("attempts", gorm.Expr("attempts + 1"))
			continue
		}

		if err := db.Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).
			Updates(map[string]interface{}{"dispatched": true, "attempts": gorm.Expr("attempts + 1")}).Error; err != nil {
			return delivered, err
		}
		delivered++
	}
	return delivered, nil
}
