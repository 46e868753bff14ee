// Package access implements the Access Policy and Protected FS components:
// pattern-based allow/deny evaluation with a pluggable hook, and a thin
// interposer that calls it on every Inode FS entry point, per spec.md §4.3/§4.4.
package access

import (
	"time"

	"github.com/pkg/errors"

	"github.com/ozanturksever/agentfs/pkg/metrics"
	"github.com/ozanturksever/agentfs/pkg/ttlcache"
)

// Operation is the closed set of operations Access Policy evaluates.
type Operation string

const (
	OpRead     Operation = "read"
	OpWrite    Operation = "write"
	OpDelete   Operation = "delete"
	OpMkdir    Operation = "mkdir"
	OpReaddir  Operation = "readdir"
	OpStat     Operation = "stat"
	OpExecute  Operation = "execute"
	OpRename   Operation = "rename"
	OpCopy     Operation = "copy"
	OpSymlink  Operation = "symlink"
)

// Decision is what CheckAccess returns; CheckAccessOrThrow turns a deny
// into a *PermissionDenied error instead.
type Decision struct {
	Allowed bool
	Source  string // "local" or "callback"
	Reason  string
}

// HookContext is everything a Hook needs to decide.
type HookContext struct {
	Operation   Operation
	Path        string
	WorkspaceID string
	WorkloadID  string
	TrustClass  string
	Data        map[string]interface{}
}

// Hook is the caller-supplied boolean decision function. Per spec.md §9, a
// hook must never call back into a Protected FS backed by the same Policy
// instance: the core enforces no re-entrancy guard and would recurse.
type Hook func(HookContext) bool

const metadataCacheTTL = 5 * time.Second
const metadataCacheKey = "metadata"

// PermissionDenied is the error checkAccessOrThrow raises.
type PermissionDenied struct {
	Operation Operation
	Path      string
	Reason    string
}

func (e *PermissionDenied) Error() string {
	return "EACCES: " + string(e.Operation) + " " + e.Path + ": " + e.Reason
}

func (e *PermissionDenied) Code() string { return "EACCES" }

// Policy evaluates (operation, path, data) requests against cached policy
// metadata and an optional hook.
type Policy struct {
	metadata *MetadataStore
	cache    *ttlcache.Cache[string, Metadata]
	hook     Hook
	globs    *globCache
}

func NewPolicy(metadata *MetadataStore, hook Hook) *Policy {
	p := &Policy{
		metadata: metadata,
		cache:    ttlcache.New[string, Metadata](metadataCacheTTL),
		hook:     hook,
		globs:    newGlobCache(),
	}
	metadata.OnChange(p.InvalidateCache)
	return p
}

// SetHook installs or replaces the access hook (nil disables it, reverting
// to "allow everything" per spec.md §4.3 step 1).
func (p *Policy) SetHook(h Hook) { p.hook = h }

func (p *Policy) currentMetadata() (Metadata, bool, error) {
	if m, ok := p.cache.Get(metadataCacheKey); ok {
		return m, true, nil
	}
	m, found, err := p.metadata.Get()
	if err != nil {
		return Metadata{}, false, errors.Wrap(err, "load policy metadata")
	}
	if found {
		p.cache.Set(metadataCacheKey, m)
	}
	return m, found, nil
}

// InvalidateCache drops the cached metadata record immediately. NewPolicy
// subscribes this to the MetadataStore's OnChange hook, so every metadata
// set/update/delete invalidates the cache on its own — callers never need
// to call this directly.
func (p *Policy) InvalidateCache() { p.cache.Delete(metadataCacheKey) }

// CheckAccess implements the algorithm in spec.md §4.3.
func (p *Policy) CheckAccess(op Operation, path string, data map[string]interface{}) (Decision, error) {
	if p.hook == nil {
		return p.record(op, Decision{Allowed: true, Source: "local"}), nil
	}

	meta, found, err := p.currentMetadata()
	if err != nil {
		return Decision{}, err
	}
	if found {
		for _, pat := range meta.DeniedPaths {
			if p.globs.match(pat, path) {
				return p.record(op, Decision{
					Allowed: false,
					Source:  "local",
					Reason:  "Path matches denied pattern: " + pat,
				}), nil
			}
		}
		if len(meta.AllowedPaths) > 0 {
			allowed := false
			for _, pat := range meta.AllowedPaths {
				if p.globs.match(pat, path) {
					allowed = true
					break
				}
			}
			if !allowed {
				return p.record(op, Decision{
					Allowed: false,
					Source:  "local",
					Reason:  "Path does not match any allowed pattern",
				}), nil
			}
		}
	}

	ctx := HookContext{Operation: op, Path: path, Data: data}
	if found {
		ctx.WorkspaceID = meta.WorkspaceID
		ctx.WorkloadID = meta.WorkloadID
		ctx.TrustClass = meta.TrustClass
	}
	if p.hook(ctx) {
		return p.record(op, Decision{Allowed: true, Source: "callback"}), nil
	}
	return p.record(op, Decision{Allowed: false, Source: "callback", Reason: "Denied by access hook"}), nil
}

func (p *Policy) record(op Operation, d Decision) Decision {
	metrics.AccessDecisions.WithLabelValues(string(op), d.Source, boolLabel(d.Allowed)).Inc()
	return d
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// CheckAccessOrThrow wraps CheckAccess and raises PermissionDenied on deny.
func (p *Policy) CheckAccessOrThrow(op Operation, path string, data map[string]interface{}) error {
	d, err := p.CheckAccess(op, path, data)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &PermissionDenied{Operation: op, Path: path, Reason: d.Reason}
	}
	return nil
}
