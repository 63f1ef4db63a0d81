// Package geoip provides MMDB-based IP geolocation for session enrichment.
//
// The reader degrades gracefully: a missing or unconfigured database yields a
// nil *Reader, and every method on a nil Reader is a safe no-op, so the
// enrichment path can short-circuit instead of crashing.
package geoip

import (
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"github.com/homesignal/tracker/internal/models"
)

// Reader provides IP geolocation lookups using an MMDB database
// (MaxMind GeoLite2, DB-IP Lite, IP2Location LITE).
type Reader struct {
	db     *geoip2.Reader
	dbPath string
}

// NewReader opens an MMDB file.
//
// Returns nil, nil when the path is empty or the file doesn't exist
// (geo enrichment disabled). Returns an error only when the file exists
// but can't be opened.
func NewReader(mmdbPath string) (*Reader, error) {
	if mmdbPath == "" {
		return nil, nil
	}

	db, err := geoip2.Open(mmdbPath)
	if err != nil {
		if strings.Contains(err.Error(), "no such file") || strings.Contains(err.Error(), "cannot find") {
			return nil, nil
		}
		return nil, err
	}

	return &Reader{db: db, dbPath: mmdbPath}, nil
}

// Lookup resolves an IP address to location data.
//
// Returns nil if no database is loaded, the IP is invalid or private, or
// the database has nothing useful for it.
func (r *Reader) Lookup(ipStr string) *models.LocationData {
	if r == nil || r.db == nil {
		return nil
	}

	ip := net.ParseIP(strings.TrimSpace(ipStr))
	if ip == nil {
		return nil
	}

	// Private/local IPs won't be in geo databases anyway.
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() {
		return nil
	}

	record, err := r.db.City(ip)
	if err != nil {
		return nil
	}

	loc := &models.LocationData{
		Country:   record.Country.Names["en"],
		City:      record.City.Names["en"],
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
		IP:        ip.String(),
	}

	if loc.Country == "" && loc.City == "" {
		return nil
	}
	return loc
}

// Close releases the underlying database handle.
func (r *Reader) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}
