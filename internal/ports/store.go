package ports

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/stepwise/internal/domain/wizard"
)

// SnapshotStore persists wizard sessions between runs so an onboarding can be
// resumed later. Implementations should be durable and safe for concurrent
// reads/writes. Error mapping rules:
//   - Missing sessions → wizard.ErrCodeNotFound
//   - I/O or driver failures → wizard.ErrCodeInternal with wrapped cause
type SnapshotStore interface {
	Save(ctx context.Context, record SessionRecord) error
	Load(ctx context.Context, id string) (*SessionRecord, error)
	List(ctx context.Context) ([]SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// SessionRecord captures one persisted wizard session.
type SessionRecord struct {
	ID        string          `json:"id"`
	FlowName  string          `json:"flow_name"`
	FlowPath  string          `json:"flow_path"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
