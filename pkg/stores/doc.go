// Package stores provides the persistence layer for ReplicoRe. It includes
// SQLite-based storage with WAL mode, connection pooling, embedded
// migrations, and the read/write operations for protection groups,
// replication targets, protected VMs, failover events, and sync-job history.
package stores
