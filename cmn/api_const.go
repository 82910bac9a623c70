// Package cmn provides common low-level types and utilities shared across the
// download service: job/action constants, the error taxonomy, and small JSON
// helpers built on jsoniter.
/*
 * Copyright (c) 2022, Indoc Research. All rights reserved.
 */
package cmn

// container types
const (
	ContainerProject = "project"
	ContainerDataset = "dataset"
)

// item types
const (
	ItemFile   = "file"
	ItemFolder = "folder"
)

// zone labels; 0 and 1 are the only values the source system emits, but any
// other integer is passed through unchanged rather than rejected (see
// SPEC_FULL.md, cfg section).
const (
	ZoneGreen = 0
	ZoneCore  = 1
)

// ZoneLabels is the authoritative zone -> label mapping. Values other than
// ZoneGreen/ZoneCore have no entry and must be logged as-is by callers.
var ZoneLabels = map[int]string{
	ZoneGreen: "green",
	ZoneCore:  "core",
}

// job action, as embedded in the JobStore composite key.
const (
	ActionDataDownload = "data_download"
)

// job lifecycle states (spec.md §3, Job record).
type JobStatus string

const (
	JobInit               JobStatus = "INIT"
	JobZipping            JobStatus = "ZIPPING"
	JobReadyForDownloading JobStatus = "READY_FOR_DOWNLOADING"
	JobSucceed            JobStatus = "SUCCEED"
	JobCancelled          JobStatus = "CANCELLED"
)

// lock modes accepted by LockClient.Acquire/Release.
type LockMode string

const (
	LockRead  LockMode = "read"
	LockWrite LockMode = "write"
)

// bucket prefixes for project resources, keyed by zone label.
const (
	GreenBucketPrefix = "gr-"
	CoreBucketPrefix  = "core-"
)

// Kafka/activity-bus topics (spec.md §4.7).
const (
	TopicItemActivity    = "metadata.items.activity"
	TopicDatasetActivity = "dataset.activity"
)

// dataset schema standards embedded into the zip before archiving
// (spec.md §4.10).
const (
	SchemaStandardDefault   = "default"
	SchemaStandardOpenMINDS = "open_minds"
)

// JobIDPrefix is prepended to the unix-seconds timestamp to build a job_id.
const JobIDPrefix = "data-download-"
