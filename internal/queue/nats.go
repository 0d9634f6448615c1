package queue

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Manager handles NATS connection and messaging
type Manager struct {
	conn    *nats.Conn
	url     string
	options []nats.Option
}

// NewManager creates a new NATS manager
func NewManager(natsURL string) (*Manager, error) {
	options := []nats.Option{
		nats.Name("M3 Scheduling Core"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("NATS connection closed")
		}),
	}

	// Connect to NATS
	conn, err := nats.Connect(natsURL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS at %s", natsURL)

	return &Manager{
		conn:    conn,
		url:     natsURL,
		options: options,
	}, nil
}

// Close closes the NATS connection
func (m *Manager) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

// Conn returns the NATS connection
func (m *Manager) Conn() *nats.Conn {
	return m.conn
}

// Publish publishes a message to a subject
func (m *Manager) Publish(subject string, data []byte) error {
	return m.conn.Publish(subject, data)
}

// Subscribe subscribes to a subject with a handler
func (m *Manager) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.Subscribe(subject, handler)
}

// QueueSubscribe creates a queue subscriber (load balanced across workers)
func (m *Manager) QueueSubscribe(subject, queue string, handler nats.MsgHandler) (*nats.Subscription, error) {
	return m.conn.QueueSubscribe(subject, queue, handler)
}

// Request sends a request and waits for a response
func (m *Manager) Request(subject string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	return m.conn.Request(subject, data, timeout)
}

// NATS Subject Patterns

const (
	// Scheduling subjects
	SubjectSchedulingRun      = "scheduling.run.%s"      // scheduling.run.{environment}
	SubjectSchedulingProgress = "scheduling.progress.%s" // scheduling.progress.{taskID}
	SubjectSchedulingComplete = "scheduling.complete.%s" // scheduling.complete.{taskID}
	SubjectSchedulingError    = "scheduling.error.%s"    // scheduling.error.{taskID}
	SubjectSchedulingCancel   = "scheduling.cancel.%s"   // scheduling.cancel.{taskID}

	// Queue group (for load balancing)
	QueueGroupScheduling = "scheduling-workers"
)

// GetSchedulingRunSubject returns the subject a scheduling worker listens
// on for a given M3 environment.
func GetSchedulingRunSubject(environment string) string {
	return fmt.Sprintf(SubjectSchedulingRun, environment)
}

// GetSchedulingProgressSubject returns the progress subject for a task.
func GetSchedulingProgressSubject(taskID string) string {
	return fmt.Sprintf(SubjectSchedulingProgress, taskID)
}

// GetSchedulingCompleteSubject returns the completion subject for a task.
func GetSchedulingCompleteSubject(taskID string) string {
	return fmt.Sprintf(SubjectSchedulingComplete, taskID)
}

// GetSchedulingErrorSubject returns the error subject for a task.
func GetSchedulingErrorSubject(taskID string) string {
	return fmt.Sprintf(SubjectSchedulingError, taskID)
}

// GetSchedulingCancelSubject returns the cancellation subject for a task.
func GetSchedulingCancelSubject(taskID string) string {
	return fmt.Sprintf(SubjectSchedulingCancel, taskID)
}
