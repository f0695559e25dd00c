// Package testkit holds in-memory collaborators for service-level tests.
package testkit

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"evalhub/internal/domain"
	"evalhub/internal/domain/audit"
	"evalhub/internal/domain/events"
	"evalhub/internal/domain/notifications"
	"evalhub/internal/domain/staff"
)

// Epoch is the fixed clock origin used by fakes.
var Epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type StaffDirectory struct {
	mu      sync.RWMutex
	members map[string]staff.StaffMember
	order   []string
}

func NewStaffDirectory() *StaffDirectory {
	return &StaffDirectory{members: map[string]staff.StaffMember{}}
}

// Add registers an active, evaluable member and returns its id.
func (d *StaffDirectory) Add(orgID, name string) string {
	id := uuid.NewString()
	d.Put(staff.StaffMember{
		ID:                     id,
		OrganizationID:         orgID,
		FullName:               name,
		IsActive:               true,
		AvailableForEvaluation: true,
		CreatedAt:              Epoch,
	})
	return id
}

func (d *StaffDirectory) Put(m staff.StaffMember) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[m.ID]; !ok {
		d.order = append(d.order, m.ID)
	}
	d.members[m.ID] = m
}

func (d *StaffDirectory) Get(_ context.Context, id string) (staff.StaffMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.members[id]
	if !ok || m.DeletedAt != nil {
		return staff.StaffMember{}, domain.NotFound("staff member", id)
	}
	return m, nil
}

func (d *StaffDirectory) List(_ context.Context, f staff.Filter) ([]staff.StaffMember, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []staff.StaffMember
	for _, id := range d.order {
		m := d.members[id]
		if m.OrganizationID != f.OrganizationID || !m.Live() {
			continue
		}
		if f.ProgramID != nil && (m.ProgramID == nil || *m.ProgramID != *f.ProgramID) {
			continue
		}
		if f.EvaluableOnly && !m.AvailableForEvaluation {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

type EventDirectory struct {
	mu     sync.RWMutex
	events map[string]events.Event
}

func NewEventDirectory() *EventDirectory {
	return &EventDirectory{events: map[string]events.Event{}}
}

// Add registers an active event and returns its id.
func (d *EventDirectory) Add(orgID, name string) string {
	id := uuid.NewString()
	d.Put(events.Event{ID: id, OrganizationID: orgID, Name: name, Status: events.StatusActive, CreatedAt: Epoch})
	return id
}

func (d *EventDirectory) Put(evt events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events[evt.ID] = evt
}

func (d *EventDirectory) Get(_ context.Context, id string) (events.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	evt, ok := d.events[id]
	if !ok {
		return events.Event{}, domain.NotFound("event", id)
	}
	return evt, nil
}

// AuditLog captures recorded entries.
type AuditLog struct {
	mu      sync.Mutex
	Entries []audit.Entry
}

func (a *AuditLog) Record(_ context.Context, entry audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, entry)
}

func (a *AuditLog) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Action)
	}
	return out
}

// Outbox captures notification intents.
type Outbox struct {
	mu      sync.Mutex
	Intents []notifications.Intent
}

func (o *Outbox) Notify(_ context.Context, intent notifications.Intent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Intents = append(o.Intents, intent)
}

func (o *Outbox) Count(template string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, in := range o.Intents {
		if in.Template == template {
			n++
		}
	}
	return n
}
