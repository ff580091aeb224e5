// Package audit fills authorship fields and records change history.
package audit

import (
	"context"
	"sync"

	appctx "taller/internal/core/context"
	"taller/internal/core/entity"
	"taller/internal/core/id"
)

type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionStatusChange  Action = "status_change"
	ActionSaleGenerated Action = "sale_generated"
	ActionSettle        Action = "settle"
)

// Recorder appends a change record. Implemented by postgres.AuditService.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Nop discards records.
type Nop struct{}

func (Nop) LogChange(context.Context, string, id.ID, Action, map[string]any) error { return nil }

// StampCreated sets CreatedBy and UpdatedBy from the request user.
func StampCreated(ctx context.Context, doc *entity.BaseDocument) {
	if uid := appctx.GetUserID(ctx); uid != "" {
		doc.CreatedBy = uid
		doc.UpdatedBy = uid
	}
}

// StampUpdated sets UpdatedBy from the request user.
func StampUpdated(ctx context.Context, doc *entity.BaseDocument) {
	if uid := appctx.GetUserID(ctx); uid != "" {
		doc.UpdatedBy = uid
	}
}

// Memory collects records for tests.
type Memory struct {
	mu      sync.Mutex
	Records []Record
}

type Record struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

func (m *Memory) LogChange(_ context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, Record{EntityType: entityType, EntityID: entityID, Action: action, Changes: changes})
	return nil
}
