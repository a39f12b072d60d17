// Package bus is the change-notification channel the live views subscribe to.
// A change event announces that a row in a watched table was inserted or
// updated; it carries row identifiers but never the row content, so
// subscribers re-read the store on delivery.
package bus

// Op is the kind of row change
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Event is a single row-change notification
type Event struct {
	Table string `json:"table"`
	Op    Op     `json:"op"`
	RowID string `json:"row_id"`
	// ConversationID is set for message events so per-conversation
	// subscriptions can filter without fetching the row.
	ConversationID string `json:"conversation_id,omitempty"`
	// PatientID is set for appointment events.
	PatientID string `json:"patient_id,omitempty"`
}

// Watched table names
const (
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableAppointments  = "appointments"
)

// Filter decides whether a subscriber wants an event. A nil Filter accepts
// everything on the subscribed table.
type Filter func(Event) bool

// Handler receives matching events. Handlers must be safe to call from the
// bus's delivery goroutine and should hand work off quickly.
type Handler func(Event)

// Subscription is a live registration on the bus
type Subscription interface {
	// Unsubscribe removes the registration. Safe to call more than once.
	Unsubscribe()
}

// Bus is the change-notification client interface. Implementations multiplex
// one underlying consumer per table, reference-counted across subscriptions.
type Bus interface {
	Subscribe(table string, filter Filter, handler Handler) (Subscription, error)
	Publish(event Event) error
	Close() error
}
