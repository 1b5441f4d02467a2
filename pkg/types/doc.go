// Package types defines the Store interface, the Record type, configuration,
// and standard errors for the wasteledger record store.
//
// A store holds one table per entity kind. Tables hold schema-less records
// that carry three reserved fields: id, created_at and updated_at.
package types
