// Package store provides persistent storage for registered devices.
//
// # Architecture
//
// A single DeviceStore interface is implemented by three adapters:
//
//   - SQLiteStore: self-hosted deployments (modernc.org/sqlite, WAL mode)
//   - AirtableStore: deployments backed by a hosted Airtable table
//   - MemoryStore: tests and dev mode
//
// The store is only read in bulk (ListEnabled) by the credential cache
// refresher; token verification itself never touches the store. Mutations
// (Insert, UpdateEnabled, Delete) come from the enrollment workflow.
//
// # Concurrency
//
// UpdateEnabled and Delete return rows-affected counts so that concurrent
// admin actions on the same invite code serialize at the storage layer:
// whichever transition commits first wins and the other observes zero rows.
package store
