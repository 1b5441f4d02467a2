package types

import "strings"

// Standard table names, one per entity kind managed by the console.
const (
	FamiliesTable         = "families"
	WorkersTable          = "workers"
	CollectionsTable      = "collections"
	VehiclesTable         = "vehicles"
	CommunityReportsTable = "community_reports"
	RewardsFinesTable     = "rewards_fines"
	TrainingRecordsTable  = "training_records"
	SafetyKitsTable       = "safety_kits"
	TreatmentReportsTable = "treatment_reports"
	CollectionRoutesTable = "collection_routes"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	FamiliesTable,
	WorkersTable,
	CollectionsTable,
	VehiclesTable,
	CommunityReportsTable,
	RewardsFinesTable,
	TrainingRecordsTable,
	SafetyKitsTable,
	TreatmentReportsTable,
	CollectionRoutesTable,
}

// ValidateTableName rejects names that cannot be used as a table identifier.
// Table names become file names, so path separators and dot entries are
// refused. Any other non-empty string is a valid, case-sensitive name.
func ValidateTableName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidTable
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidTable
	}
	return nil
}
