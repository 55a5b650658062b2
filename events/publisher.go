// Package events publishes workflow lifecycle events over NATS JetStream so
// external consumers can follow runs without polling.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding workflow events.
	StreamName = "PLANFORGE"

	subjectPrefix       = "planforge.run"
	subjectStateChanged = subjectPrefix + ".state"
	subjectRunCompleted = subjectPrefix + ".completed"
	connectTimeout      = 5 * time.Second
	streamMaxAge        = 72 * time.Hour
)

// StateChangedEvent records a single orchestrator state transition.
type StateChangedEvent struct {
	RunID     string    `json:"run_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Iteration int       `json:"iteration"`
	Timestamp time.Time `json:"timestamp"`
}

// RunCompletedEvent records a terminal run outcome.
type RunCompletedEvent struct {
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	FinalScore float64   `json:"final_score"`
	Topics     int       `json:"topics"`
	Failed     int       `json:"failed_analyses"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher emits workflow events to JetStream. A nil Publisher is valid
// and drops all events, so callers never guard publishing sites.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger
}

// Connect establishes a NATS connection and ensures the event stream
// exists. An empty URL disables publishing and returns a nil Publisher.
func Connect(url string, logger *slog.Logger) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(url,
		nats.Timeout(connectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}

	return &Publisher{nc: nc, js: js, logger: logger}, nil
}

// StateChanged publishes a state transition event.
func (p *Publisher) StateChanged(runID, from, to string, iteration int) {
	if p == nil {
		return
	}
	p.publish(subjectStateChanged, StateChangedEvent{
		RunID:     runID,
		From:      from,
		To:        to,
		Iteration: iteration,
		Timestamp: time.Now().UTC(),
	})
}

// RunCompleted publishes a terminal run outcome event.
func (p *Publisher) RunCompleted(runID, status string, finalScore float64, topics, failed int) {
	if p == nil {
		return
	}
	p.publish(subjectRunCompleted, RunCompletedEvent{
		RunID:      runID,
		Status:     status,
		FinalScore: finalScore,
		Topics:     topics,
		Failed:     failed,
		Timestamp:  time.Now().UTC(),
	})
}

// publish marshals and sends the event. Publish failures are logged, never
// surfaced: event delivery must not affect workflow outcomes.
func (p *Publisher) publish(subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.logger.Warn("publish event", "subject", subject, "error", err)
	}
}

// Close drains the underlying connection. Safe on nil.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
