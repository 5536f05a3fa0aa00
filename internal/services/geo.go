package services

import (
	"math"

	"github.com/joshua-takyi/servicehub/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates using the Haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// IsEligible reports whether a provider can serve a customer location.
// Without a customer location only the category/service match (done by the caller) counts.
func IsEligible(p models.Provider, customer *models.GeoPoint, fallbackRadiusKm float64) bool {
	if customer == nil {
		return true
	}
	if p.Location == nil {
		return false
	}
	d := DistanceKm(customer.Latitude, customer.Longitude, p.Location.Latitude, p.Location.Longitude)
	return d <= math.Min(p.Radius(), fallbackRadiusKm)
}
