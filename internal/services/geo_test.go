package services

import (
	"math"
	"testing"

	"github.com/joshua-takyi/servicehub/internal/models"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", 5.6037, -0.1870, 5.6037, -0.1870, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.01},
		{"accra to kumasi", 5.6037, -0.1870, 6.6885, -1.6244, 199.6, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceKmPropagatesNaN(t *testing.T) {
	if got := DistanceKm(math.NaN(), 0, 0, 0); !math.IsNaN(got) {
		t.Fatalf("expected NaN, got %v", got)
	}
}

func TestIsEligible(t *testing.T) {
	customer := &models.GeoPoint{Latitude: 0, Longitude: 0}
	// 0.045 degrees of latitude is roughly 5 km
	near := &models.GeoPoint{Latitude: 0.045, Longitude: 0}

	tests := []struct {
		name     string
		provider models.Provider
		customer *models.GeoPoint
		fallback float64
		want     bool
	}{
		{"no customer location ignores distance", models.Provider{}, nil, 10, true},
		{"provider without location is excluded when customer has one", models.Provider{}, customer, 10, false},
		{"within both radii", models.Provider{Location: near, ServiceRadiusKm: 15}, customer, 10, true},
		{"outside provider radius", models.Provider{Location: near, ServiceRadiusKm: 3}, customer, 10, false},
		{"outside fallback radius", models.Provider{Location: near, ServiceRadiusKm: 15}, customer, 4, false},
		{"default provider radius applies", models.Provider{Location: near}, customer, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEligible(tt.provider, tt.customer, tt.fallback); got != tt.want {
				t.Errorf("IsEligible() = %v, want %v", got, tt.want)
			}
		})
	}
}
