package resolve

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/matzehuels/pomstack/pkg/errors"
	"github.com/matzehuels/pomstack/pkg/pom"
)

// DownloadError is a recoverable per-coordinate failure: a descriptor that
// could not be fetched, parsed, or completed (e.g. no version could be
// determined for a dependency).
type DownloadError struct {
	// GAV is the offending coordinate.
	GAV pom.GAV

	// Err is the underlying cause.
	Err error
}

// NewDownloadError creates a DownloadError for the given coordinate.
func NewDownloadError(gav pom.GAV, cause error) *DownloadError {
	return &DownloadError{GAV: gav, Err: cause}
}

// Error returns the human-readable description surfaced as a tree warning.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s failed. %s", e.GAV, errors.UserMessage(e.Err))
}

// Unwrap returns the underlying cause.
func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Aggregate collects failures from independent resolution branches (parent
// chains, management imports, submodules). It never holds zero entries: use
// [Append] to build one up from nil.
type Aggregate struct {
	failures []*DownloadError
}

// Error joins all failure descriptions, one per line.
func (a *Aggregate) Error() string {
	msgs := make([]string, len(a.failures))
	for i, f := range a.failures {
		msgs[i] = f.Error()
	}
	return strings.Join(msgs, "\n")
}

// Failures returns all collected failures in the order they were recorded.
func (a *Aggregate) Failures() []*DownloadError {
	return a.failures
}

// ByCoordinate returns the failures whose coordinate matches the given
// group/artifact.
func (a *Aggregate) ByCoordinate(ga pom.GroupArtifact) []*DownloadError {
	var out []*DownloadError
	for _, f := range a.failures {
		if f.GAV.GroupArtifact() == ga {
			out = append(out, f)
		}
	}
	return out
}

// Coordinates returns the distinct group/artifact pairs with failures, in
// first-seen order.
func (a *Aggregate) Coordinates() []pom.GroupArtifact {
	seen := make(map[pom.GroupArtifact]bool)
	var out []pom.GroupArtifact
	for _, f := range a.failures {
		ga := f.GAV.GroupArtifact()
		if !seen[ga] {
			seen[ga] = true
			out = append(out, ga)
		}
	}
	return out
}

// Merge combines two aggregates without dropping entries from either. Both
// inputs may be nil.
func (a *Aggregate) Merge(other *Aggregate) *Aggregate {
	if a == nil {
		return other
	}
	if other == nil {
		return a
	}
	return &Aggregate{failures: append(append([]*DownloadError{}, a.failures...), other.failures...)}
}

// Append adds err to the aggregate, creating it on first use. DownloadErrors
// are recorded directly, aggregates are merged, anything else is recorded
// under an empty coordinate. A nil err returns the aggregate unchanged.
func Append(a *Aggregate, err error) *Aggregate {
	if err == nil {
		return a
	}
	var (
		de  *DownloadError
		agg *Aggregate
	)
	switch {
	case stderrors.As(err, &agg):
		return a.Merge(agg)
	case stderrors.As(err, &de):
		if a == nil {
			return &Aggregate{failures: []*DownloadError{de}}
		}
		a.failures = append(a.failures, de)
		return a
	default:
		return Append(a, &DownloadError{Err: err})
	}
}
