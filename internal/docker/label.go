package docker

import (
	"time"
)

// Label keys put on every container this tool creates. Labels are the only
// record of what was started; there is no state file to go stale.
//
// All keys share the "fenicsx-setup." prefix to stay clear of labels set
// by other tools (Docker Compose, VS Code, etc.).
const (
	LabelPrefix = "fenicsx-setup."

	// LabelManagedBy identifies containers created by fenicsx-setup. It is
	// the key ListManaged filters on server-side.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelRepoDir is the host repository bind-mounted into the container.
	LabelRepoDir = LabelPrefix + "repo-dir"

	// LabelPurpose is what the container was started for, e.g. "selftest".
	LabelPurpose = LabelPrefix + "purpose"

	// LabelCreatedAt is the RFC3339 creation time in UTC.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value of LabelManagedBy.
const ManagedByValue = "fenicsx-setup"

// PurposeSelfTest marks self-test containers.
const PurposeSelfTest = "selftest"

// BuildLabels returns the label set for a container started for purpose
// against the repository at repoDir.
func BuildLabels(purpose, repoDir string, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelPurpose:   purpose,
		LabelRepoDir:   repoDir,
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// IsManaged reports whether labels mark a container created by this tool.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == ManagedByValue
}

// CreatedAt parses LabelCreatedAt. The zero time is returned when the
// label is missing or malformed.
func CreatedAt(labels map[string]string) time.Time {
	t, err := time.Parse(time.RFC3339, labels[LabelCreatedAt])
	if err != nil {
		return time.Time{}
	}
	return t
}

// ContainerInfo is the subset of container state the CLI reports.
type ContainerInfo struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Image   string            `json:"image"`
	State   string            `json:"state"`
	Labels  map[string]string `json:"labels,omitempty"`
	Created time.Time         `json:"createdAt"`
}

// Stale reports whether a managed container outlived the run that created
// it.
//
// Any managed container that is not running qualifies. Self-test
// containers run to completion and are never restarted, so an exited or
// created one has no further use. A running one may belong to a
// concurrent bootstrap in another notebook cell and is left alone, even
// when its created-at label is old. Unlabelled containers are never
// touched.
func (c ContainerInfo) Stale() bool {
	return IsManaged(c.Labels) && c.State != "running"
}
