// Package config defines configuration structures for the igsfetch CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (IGSFETCH_ prefix, plus EARTHDATA_USERNAME and
//     EARTHDATA_PASSWORD for the archive login)
//   - YAML configuration file
//
// Flags override the environment, which overrides the file, which overrides
// Default.
//
// # Example file
//
//	base_url: https://cddis.nasa.gov/archive/gps/data/daily/
//	local_root: /srv/gnss/igs
//	lag_days: 40
//	stations:
//	  rate_15s: [RDSD00DOM, SFDM00USA]
//	  rate_30s: [SANT00CHL, AGGO00ARG]
//	download:
//	  max_attempts: 3
//	  chunk_size: 8KiB
//	  backoff: 2s
//	  timeout: 5m
//	mirror:
//	  bucket_url: s3://gnss-archive?region=us-east-1
//	  prefix: igs/
package config
