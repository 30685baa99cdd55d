package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id,omitempty"`
	DebtID        string    `json:"debt_id,omitempty"`
	OwnerID       string    `json:"owner_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Status        string    `json:"status"`
	Details       any       `json:"details,omitempty"`
}

type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (a *Logger) LogPayment(debtID, transactionID, ownerID, amount, newBalance string) {
	event := Event{
		Timestamp:     time.Now(),
		EventType:     "DEBT_PAYMENT",
		TransactionID: transactionID,
		DebtID:        debtID,
		OwnerID:       ownerID,
		Amount:        amount,
		Status:        "SUCCESS",
		Details:       map[string]string{"new_balance": newBalance},
	}
	a.log(event)
}

func (a *Logger) LogError(debtID, ownerID string, err error) {
	event := Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		DebtID:    debtID,
		OwnerID:   ownerID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	}
	a.log(event)
}

func (a *Logger) LogOperation(ownerID, operation, details string) {
	event := Event{
		Timestamp: time.Now(),
		EventType: operation,
		OwnerID:   ownerID,
		Status:    "SUCCESS",
		Details:   map[string]string{"details": details},
	}
	a.log(event)
}

func (a *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
