// Package migration implements the phase-gated migration pipeline.
//
// A migration moves a codebase through four ordered phases (understand,
// guardrail, migrate, verify). Each migration owns one directory under the
// migrations root holding its manifest, the feature, plan and seam artifacts
// authored by upstream analysis, generated documentation and per-step
// checkpoint metadata. Pipeline serializes every read-modify-write of the
// manifest behind one mutex, evaluates phase gates against the sibling
// artifacts and coordinates version-control checkpoints through a
// CheckpointBackend. Workspace hands out one Pipeline per migration
// identifier so all in-process callers share the same lock.
package migration
