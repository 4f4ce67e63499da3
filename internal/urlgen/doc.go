// Package urlgen builds archive paths for daily GNSS observation files.
//
// Files are named after the RINEX 3 long-name convention and grouped by
// year and day-of-year:
//
//	{year}/{doy}/{yy}d/{STATION}_R_{year}{doy}0000_01D_{RATE}_MO.crx.gz
//
// where RATE is 15S or 30S depending on the station's sampling interval.
// The target day is the Generator's clock date minus a publication lag.
package urlgen
