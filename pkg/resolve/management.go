package resolve

import (
	"sync"

	"github.com/matzehuels/pomstack/pkg/pom"
)

// ManagedEntry is one row of a merged dependency-management table: the
// version, scope, type, classifier and exclusions that apply to a coordinate
// when a descriptor references it without declaring them.
type ManagedEntry struct {
	GAV        pom.GAV
	Scope      string
	Type       string
	Classifier string
	Exclusions []pom.GroupArtifact
}

type managedKey struct {
	ga         pom.GroupArtifact
	classifier string
	typ        string
}

func keyOf(ga pom.GroupArtifact, classifier, typ string) managedKey {
	if typ == "" {
		typ = "jar"
	}
	return managedKey{ga: ga, classifier: classifier, typ: typ}
}

// ManagementTable holds merged management entries in declaration order.
// Re-adding a key overwrites its row in place, so the last declaration for a
// coordinate wins while the table's order stays stable.
type ManagementTable struct {
	order []managedKey
	rows  map[managedKey]ManagedEntry
}

func newManagementTable() *ManagementTable {
	return &ManagementTable{rows: make(map[managedKey]ManagedEntry)}
}

func (t *ManagementTable) add(entry ManagedEntry) {
	key := keyOf(entry.GAV.GroupArtifact(), entry.Classifier, entry.Type)
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = entry
}

func (t *ManagementTable) lookup(ga pom.GroupArtifact, classifier, typ string) (ManagedEntry, bool) {
	entry, ok := t.rows[keyOf(ga, classifier, typ)]
	return entry, ok
}

// Entries returns the table's rows in declaration order.
func (t *ManagementTable) Entries() []ManagedEntry {
	out := make([]ManagedEntry, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.rows[key])
	}
	return out
}

// managementMemo caches fully-resolved imported management tables keyed by
// coordinate and repository fingerprint. Released descriptors are immutable,
// so entries never expire.
type managementMemo struct {
	mu     sync.RWMutex
	tables map[string]*ManagementTable
}

func newManagementMemo() *managementMemo {
	return &managementMemo{tables: make(map[string]*ManagementTable)}
}

func (m *managementMemo) get(key string) (*ManagementTable, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[key]
	return table, ok
}

func (m *managementMemo) put(key string, table *ManagementTable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[key] = table
}
