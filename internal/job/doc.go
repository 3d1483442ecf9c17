// Package job defines the durable descriptor for one fetch job: its
// lifecycle status, progress fields, and the fixed-shape metadata record
// tracked through post-processing. Encoding to and from the persisted
// JSON document happens only at the store boundary via MarshalJob and
// UnmarshalJob.
package job
