// Package db resolves connection parameters and opens PostgreSQL pools.
//
// Resolution merges connection strings, granular flags, environment
// variables and tripload.yaml. Connectors cover password authentication
// and the cloud IAM flavors (AWS RDS, Azure Entra ID, Google Cloud SQL);
// transient connect failures are retried with exponential backoff.
package db
