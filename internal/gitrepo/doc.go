// Package gitrepo snapshots and restores Git working trees through lightweight tags.
//
// CommandSnapshotBackend drives the git executable through execshell, while
// ObjectSnapshotBackend manipulates the repository in process with go-git.
// Both satisfy the checkpoint backend contract used by migration pipelines.
package gitrepo
