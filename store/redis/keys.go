package redis

// All keys are prefixed with "jobwatch:" to avoid collisions.
const keyPrefix = "jobwatch:"

// snapshotKey returns the Hash key of a job snapshot: jobwatch:snapshot:{id}
func snapshotKey(jobID string) string { return keyPrefix + "snapshot:" + jobID }

// snapshotIDsKey is the Set tracking all job IDs for enumeration.
const snapshotIDsKey = keyPrefix + "snapshot_ids"
