// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/paysync/internal/config"
	"github.com/tomtom215/paysync/internal/logging"
	"github.com/tomtom215/paysync/internal/metrics"
)

// Logger records audit events asynchronously. Log never blocks the caller;
// when the buffer is full the event is dropped and counted.
type Logger struct {
	enabled     bool
	logToStdout bool
	store       Store
	log         zerolog.Logger
	now         func() time.Time

	eventChan chan *Event
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewLogger starts a logger writing to store.
func NewLogger(store Store, cfg config.AuditConfig) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	l := &Logger{
		enabled:     cfg.Enabled,
		logToStdout: cfg.LogToStdout,
		store:       store,
		log:         logging.WithComponent("audit"),
		now:         time.Now,
		eventChan:   make(chan *Event, cfg.BufferSize),
		stopChan:    make(chan struct{}),
	}
	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.logToStdout {
		data, err := json.Marshal(event)
		if err == nil {
			l.log.Info().RawJSON("event", data).Msg("Audit event")
		}
	}
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		l.log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
	}
}

// Log records event, filling in the ID and timestamp when unset.
func (l *Logger) Log(event *Event) {
	if l == nil || !l.enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now().UTC()
	}

	select {
	case <-l.stopChan:
		return
	default:
	}
	select {
	case l.eventChan <- event:
		metrics.AuditEvents.WithLabelValues(string(event.Type)).Inc()
	default:
		metrics.AuditDropped.Inc()
		l.log.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Audit buffer full, dropping event")
	}
}

// Query reads back recorded events newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	if l == nil || l.store == nil {
		return []Event{}, nil
	}
	return l.store.Query(ctx, filter)
}

// Close drains buffered events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// LogAuth records an admin login attempt.
func (l *Logger) LogAuth(r *http.Request, username string, ok bool) {
	event := &Event{
		Type:        EventTypeAuthSuccess,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       Actor{Name: username, Type: "admin"},
		Source:      SourceFromRequest(r),
		Description: "Admin logged in",
		RequestID:   chimiddleware.GetReqID(r.Context()),
	}
	if !ok {
		event.Type = EventTypeAuthFailure
		event.Severity = SeverityWarning
		event.Outcome = OutcomeFailure
		event.Description = "Admin login rejected"
	}
	l.Log(event)
}

// LogOrderAction records an action taken on one order.
func (l *Logger) LogOrderAction(r *http.Request, eventType EventType, actor Actor, orderID, description string, metadata map[string]interface{}) {
	l.Log(&Event{
		Type:        eventType,
		Severity:    SeverityInfo,
		Outcome:     OutcomeSuccess,
		Actor:       actor,
		Target:      &Target{ID: orderID, Type: "order"},
		Source:      SourceFromRequest(r),
		Description: description,
		Metadata:    mustJSON(metadata),
		RequestID:   chimiddleware.GetReqID(r.Context()),
	})
}

func mustJSON(v map[string]interface{}) json.RawMessage {
	if len(v) == 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest reads the client address. RemoteAddr is trusted as-is;
// the router's RealIP middleware has already applied forwarding headers.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: r.UserAgent()}
}

// CustomerActor is the unauthenticated checkout user.
func CustomerActor() Actor {
	return Actor{Type: "customer"}
}

// AdminActor is an authenticated operator.
func AdminActor(username, role string) Actor {
	return Actor{Name: username, Type: "admin", Role: role}
}
