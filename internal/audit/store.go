// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// MemoryStore keeps the most recent events in a bounded buffer. Older events
// survive only in the log stream.
type MemoryStore struct {
	events []Event
	mu     sync.RWMutex
	maxLen int
}

// NewMemoryStore creates a store holding at most maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, min(maxLen, 1024)),
		maxLen: maxLen,
	}
}

// Save appends an event, evicting the oldest tenth when full.
func (s *MemoryStore) Save(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		drop := max(s.maxLen/10, 1)
		s.events = slices.Delete(s.events, 0, drop)
	}
	s.events = append(s.events, *event)
	return nil
}

// Query returns matching events newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Event, 0, min(limit, len(s.events)))
	for i := len(s.events) - 1; i >= 0 && len(results) < limit; i-- {
		if matches(&s.events[i], &filter) {
			results = append(results, s.events[i])
		}
	}
	return results, nil
}

// Len returns the number of buffered events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func matches(event *Event, filter *QueryFilter) bool {
	if len(filter.Types) > 0 && !slices.Contains(filter.Types, event.Type) {
		return false
	}
	if filter.Actor != "" && event.Actor.Name != filter.Actor {
		return false
	}
	if filter.TargetID != "" && (event.Target == nil || event.Target.ID != filter.TargetID) {
		return false
	}
	if filter.Since != nil && event.Timestamp.Before(*filter.Since) {
		return false
	}
	return true
}

// JSONExporter renders events as an indented JSON array.
type JSONExporter struct{}

// Export renders events.
func (JSONExporter) Export(events []Event) ([]byte, error) {
	return json.MarshalIndent(events, "", "  ")
}

// CEFExporter renders events in Common Event Format for SIEM ingestion.
type CEFExporter struct {
	DeviceVendor  string
	DeviceProduct string
	DeviceVersion string
}

// NewCEFExporter creates a CEF exporter tagged with version.
func NewCEFExporter(version string) *CEFExporter {
	return &CEFExporter{
		DeviceVendor:  "tomtom215",
		DeviceProduct: "Paysync",
		DeviceVersion: version,
	}
}

// Export renders one CEF line per event:
// CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(events []Event) ([]byte, error) {
	lines := make([]string, 0, len(events))
	for i := range events {
		event := &events[i]
		lines = append(lines, fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
			escapeHeader(e.DeviceVendor),
			escapeHeader(e.DeviceProduct),
			escapeHeader(e.DeviceVersion),
			escapeHeader(string(event.Type)),
			escapeHeader(event.Description),
			cefSeverity(event.Severity),
			buildExtension(event),
		))
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func cefSeverity(severity Severity) int {
	switch severity {
	case SeverityInfo:
		return 3
	case SeverityWarning:
		return 5
	case SeverityCritical:
		return 10
	default:
		return 0
	}
}

func buildExtension(event *Event) string {
	parts := []string{fmt.Sprintf("rt=%d", event.Timestamp.UnixMilli())}
	if event.Actor.Name != "" {
		parts = append(parts, "suser="+escapeExtension(event.Actor.Name))
	}
	if event.Actor.Role != "" {
		parts = append(parts, "spriv="+escapeExtension(event.Actor.Role))
	}
	if event.Source.IPAddress != "" {
		parts = append(parts, "src="+escapeExtension(event.Source.IPAddress))
	}
	if event.Target != nil {
		parts = append(parts, "cs1Label=orderId", "cs1="+escapeExtension(event.Target.ID))
	}
	parts = append(parts, "outcome="+escapeExtension(string(event.Outcome)))
	if event.RequestID != "" {
		parts = append(parts, "externalId="+escapeExtension(event.RequestID))
	}
	return strings.Join(parts, " ")
}

// Header fields escape pipes and backslashes; extension values escape
// equals signs and backslashes.
func escapeHeader(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	return flatten(s)
}

func escapeExtension(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "=", "\\=")
	return flatten(s)
}

func flatten(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}
