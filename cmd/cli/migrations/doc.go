// Package migrations provides the Cobra commands that drive loki-migrate pipelines:
// creating migrations, inspecting progress, moving phases and managing checkpoints.
package migrations
