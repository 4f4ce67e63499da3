// Package mirror copies verified observation files into object storage.
//
// Buckets are opened through gocloud.dev, so any of its URL schemes work:
//
//	file:///srv/mirror
//	s3://gnss-archive?region=us-east-1
//	gs://gnss-archive
//	mem://
//
// A file is uploaded only when the bucket lacks an object of the same size.
package mirror
