// Package blob re-exports core blob abstractions and selects the evidence
// storage backend from the environment.
package blob

import (
	"context"
	"fmt"
	"os"

	"plancore/internal/blob/core"
	"plancore/internal/infra/blob/fs"
	"plancore/internal/infra/blob/memory"
	"plancore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// Open selects a blob.Store implementation using environment variables.
//
//	PLANCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLANCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 adapter)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("PLANCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("PLANCORE_BLOB_FS_ROOT")
		return fs.New(root)
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// EvidenceKey builds the canonical object key for an evidence file attached
// to a task. Keys group by plan then item number so prefix listing returns
// everything attached to one plan or one task.
func EvidenceKey(planID string, itemNumber int, filename string) string {
	return fmt.Sprintf("plans/%s/tasks/%d/%s", planID, itemNumber, filename)
}
