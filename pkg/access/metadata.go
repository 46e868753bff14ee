package access

import (
	"github.com/google/uuid"

	"github.com/ozanturksever/agentfs/pkg/kv"
	"github.com/ozanturksever/agentfs/pkg/store"
)

// Metadata is the composite sandbox policy record: spec.md §3 invariant 6
// requires it be stored both whole (under ooss:metadata, authoritative on
// read) and as individual shadow fields, so a caller can read one field
// without a JSON decode.
type Metadata struct {
	WorkspaceID  string                 `json:"workspaceId"`
	WorkloadID   string                 `json:"workloadId"`
	SandboxID    string                 `json:"sandboxId"`
	TrustClass   string                 `json:"trustClass"`
	AllowedPaths []string               `json:"allowedPaths"`
	DeniedPaths  []string               `json:"deniedPaths"`
	CreatedAt    int64                  `json:"createdAt"`
	UpdatedAt    int64                  `json:"updatedAt"`
	Custom       map[string]interface{} `json:"custom,omitempty"`
}

const (
	keyMetadata     = "ooss:metadata"
	keyWorkspaceID  = "ooss:workspaceId"
	keyWorkloadID   = "ooss:workloadId"
	keySandboxID    = "ooss:sandboxId"
	keyTrustClass   = "ooss:trustClass"
	keyAllowedPaths = "ooss:allowedPaths"
	keyDeniedPaths  = "ooss:deniedPaths"
)

// MetadataStore persists Metadata in the KV store under the ooss: prefix.
type MetadataStore struct {
	kv       *kv.Store
	onChange []func()
}

func NewMetadataStore(db *store.Store) *MetadataStore {
	return &MetadataStore{kv: kv.New(db)}
}

// OnChange registers a callback invoked after every successful Set/Delete.
// Policy uses this to invalidate its cached metadata immediately rather than
// waiting out the TTL, per spec.md §4.3 step 2.
func (m *MetadataStore) OnChange(cb func()) {
	m.onChange = append(m.onChange, cb)
}

func (m *MetadataStore) notifyChange() {
	for _, cb := range m.onChange {
		cb()
	}
}

// NewSandboxID generates an id for a freshly provisioned sandbox; callers
// that already have externally-assigned ids pass them directly to Set
// instead.
func NewSandboxID() string { return uuid.NewString() }

// Get returns the composite record if one has been set.
func (m *MetadataStore) Get() (Metadata, bool, error) {
	return kv.Get[Metadata](m.kv, keyMetadata)
}

// Set writes both the composite record and every shadow field; updaters
// must always go through Set so the two views never diverge.
func (m *MetadataStore) Set(meta Metadata) error {
	now := store.NowUnix()
	if meta.CreatedAt == 0 {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now

	if err := kv.Set(m.kv, keyMetadata, meta); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keyWorkspaceID, meta.WorkspaceID); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keyWorkloadID, meta.WorkloadID); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keySandboxID, meta.SandboxID); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keyTrustClass, meta.TrustClass); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keyAllowedPaths, meta.AllowedPaths); err != nil {
		return err
	}
	if err := kv.Set(m.kv, keyDeniedPaths, meta.DeniedPaths); err != nil {
		return err
	}
	m.notifyChange()
	return nil
}

// Delete removes the composite record and every shadow field.
func (m *MetadataStore) Delete() error {
	for _, key := range []string{keyMetadata, keyWorkspaceID, keyWorkloadID, keySandboxID, keyTrustClass, keyAllowedPaths, keyDeniedPaths} {
		if err := m.kv.Delete(key); err != nil {
			return err
		}
	}
	m.notifyChange()
	return nil
}

// WorkspaceID reads the shadow field directly, without decoding the
// composite record.
func (m *MetadataStore) WorkspaceID() (string, bool, error) {
	return kv.Get[string](m.kv, keyWorkspaceID)
}
