package recorder

import "StakeVault/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ *model.Event) error                  { return nil }
func (n *NoopRecorder) RecordPoolSnapshot(_ *PoolSnapshot) error          { return nil }
func (n *NoopRecorder) RecentEvents(_ int) ([]model.Event, error)         { return nil, nil }
func (n *NoopRecorder) EventsSince(_ int64, _ int) ([]model.Event, error) { return nil, nil }
func (n *NoopRecorder) LatestSeq() (int64, error)                         { return 0, nil }
func (n *NoopRecorder) Close() error                                      { return nil }
