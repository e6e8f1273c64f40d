// Package geo resolves a visitor's approximate location from their IP
// address. Lookups are best-effort: any failure, loopback, or private
// address yields an empty Location and tracking proceeds without geo fields.
package geo

import (
	"log"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Location is an approximate visitor location. Zero value means unknown.
type Location struct {
	Country string
	City    string
}

// Resolver maps an IP address to a Location.
type Resolver interface {
	Resolve(ipAddress string) Location
	Close() error
}

type maxmindResolver struct {
	reader *geoip2.Reader
}

// NewMaxMindResolver opens a local MaxMind City database.
func NewMaxMindResolver(dbPath string) (Resolver, error) {
	reader, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &maxmindResolver{reader: reader}, nil
}

func (r *maxmindResolver) Resolve(ipAddress string) Location {
	ip := net.ParseIP(ipAddress)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return Location{}
	}

	record, err := r.reader.City(ip)
	if err != nil {
		log.Printf("Geolocation lookup failed for %s: %v", ipAddress, err)
		return Location{}
	}

	var loc Location
	if name, ok := record.Country.Names["en"]; ok {
		loc.Country = name
	}
	if name, ok := record.City.Names["en"]; ok {
		loc.City = name
	}
	return loc
}

func (r *maxmindResolver) Close() error {
	return r.reader.Close()
}

// NoopResolver is used when no geolocation database is configured. Every
// lookup resolves to an unknown location.
type NoopResolver struct{}

func (NoopResolver) Resolve(string) Location { return Location{} }
func (NoopResolver) Close() error            { return nil }
