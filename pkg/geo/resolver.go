package geo

import (
	"context"
	"net"

	"github.com/paulmach/orb"
)

// Location is the result of an IP geolocation lookup.
type Location struct {
	City        string    `json:"city"`
	Region      string    `json:"region"`
	Country     string    `json:"country"`
	Coordinates orb.Point `json:"coordinates"` // lon, lat
	Timezone    string    `json:"timezone"`
}

// Resolver looks up the approximate location of an IP address. Lookups may
// hit a network service or a local database and are the only other blocking
// call in the signing path besides document retrieval.
type Resolver interface {
	Lookup(ctx context.Context, ipAddress string) (*Location, error)
}

// Unknown is returned when a resolver has no data for an address.
var Unknown = Location{
	City:    "Unknown",
	Region:  "Unknown",
	Country: "Unknown",
}

// IsLocalAddress reports whether the address is loopback or RFC1918 private.
// Callers short-circuit these instead of asking the resolver.
func IsLocalAddress(ipAddress string) bool {
	if ipAddress == "localhost" || ipAddress == "" {
		return true
	}
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

type staticResolver struct {
	locations map[string]Location
}

// NewStaticResolver returns a fixture-backed resolver for development and
// tests. Unmapped addresses resolve to Unknown rather than an error.
func NewStaticResolver(locations map[string]Location) Resolver {
	return &staticResolver{locations: locations}
}

func (r *staticResolver) Lookup(ctx context.Context, ipAddress string) (*Location, error) {
	if loc, ok := r.locations[ipAddress]; ok {
		return &loc, nil
	}
	loc := Unknown
	return &loc, nil
}
