package domain

import "fmt"

// CollectionName identifies one of the per-identity record sets.
type CollectionName string

const (
	CollectionClients   CollectionName = "clients"
	CollectionProjects  CollectionName = "projects"
	CollectionTasks     CollectionName = "tasks"
	CollectionFinances  CollectionName = "finances"
	CollectionGoals     CollectionName = "goals"
	CollectionResources CollectionName = "resources"
	CollectionInvoices  CollectionName = "invoices"
)

// Collections lists every collection owned by an identity.
var Collections = []CollectionName{
	CollectionClients,
	CollectionProjects,
	CollectionTasks,
	CollectionFinances,
	CollectionGoals,
	CollectionResources,
	CollectionInvoices,
}

// Valid reports whether n names a known collection.
func (n CollectionName) Valid() bool {
	for _, c := range Collections {
		if c == n {
			return true
		}
	}
	return false
}

// CollectionPath addresses one collection inside an identity's namespace.
type CollectionPath struct {
	UID        string
	Collection CollectionName
}

// String renders the path as users/{uid}/{collection}.
func (p CollectionPath) String() string {
	return fmt.Sprintf("users/%s/%s", p.UID, p.Collection)
}

// Record renders the path of a single record.
func (p CollectionPath) Record(id string) string {
	return p.String() + "/" + id
}
