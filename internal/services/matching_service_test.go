package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
)

// kmNorth returns a point roughly km kilometres north of the origin.
func kmNorth(km float64) *models.GeoPoint {
	return &models.GeoPoint{Latitude: km / 111.195, Longitude: 0}
}

func newProvider(name, category string, loc *models.GeoPoint) *models.Provider {
	return &models.Provider{
		ID:         uuid.New(),
		Name:       name,
		IsActive:   true,
		IsApproved: true,
		Category:   category,
		Location:   loc,
	}
}

func setupMatching(t *testing.T) (*memCatalog, *models.Service, *MatchingService) {
	t.Helper()
	catalog := newMemCatalog()
	service := &models.Service{ID: uuid.New(), Name: "Deep clean", Category: "cleaning", Price: 100, CommissionRate: 10, IsActive: true}
	catalog.services[service.ID] = service
	return catalog, service, NewMatchingService(catalog, catalog, DefaultMaxKm, discardLogger)
}

func TestFindCandidatesSortsByDistance(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	far := newProvider("far", "cleaning", kmNorth(7))
	near := newProvider("near", "cleaning", kmNorth(3))
	outside := newProvider("outside", "cleaning", kmNorth(12))
	catalog.providers = []*models.Provider{far, near, outside}

	got, err := ms.FindCandidates(context.Background(), service.ID, kmNorth(0))
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Provider.ID != near.ID || got[1].Provider.ID != far.ID {
		t.Errorf("unexpected order: %s, %s", got[0].Provider.Name, got[1].Provider.Name)
	}
	if got[0].DistanceKm == nil || *got[0].DistanceKm > 3.1 {
		t.Errorf("expected distance of about 3 km, got %v", got[0].DistanceKm)
	}
}

func TestFindCandidatesWithoutLocationIgnoresDistance(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	distant := newProvider("distant", "cleaning", kmNorth(500))
	noLocation := newProvider("no-location", "cleaning", nil)
	explicit := newProvider("explicit", "plumbing", nil)
	explicit.ServiceIDs = []uuid.UUID{service.ID}
	otherCategory := newProvider("other", "plumbing", kmNorth(1))
	catalog.providers = []*models.Provider{distant, noLocation, explicit, otherCategory}

	got, err := ms.FindCandidates(context.Background(), service.ID, nil)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.DistanceKm != nil {
			t.Errorf("%s: expected unknown distance, got %v", c.Provider.Name, *c.DistanceKm)
		}
		if c.Provider.ID == otherCategory.ID {
			t.Errorf("provider from another category was matched")
		}
	}
}

func TestFindCandidatesSkipsInactiveAndUnapproved(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	inactive := newProvider("inactive", "cleaning", nil)
	inactive.IsActive = false
	unapproved := newProvider("unapproved", "cleaning", nil)
	unapproved.IsApproved = false
	catalog.providers = []*models.Provider{inactive, unapproved}

	got, err := ms.FindCandidates(context.Background(), service.ID, nil)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestFindCandidatesUnknownService(t *testing.T) {
	_, _, ms := setupMatching(t)
	_, err := ms.FindCandidates(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignPicksClosestProvider(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	seven := newProvider("seven", "cleaning", kmNorth(7))
	seven.ServiceRadiusKm = 10
	three := newProvider("three", "cleaning", kmNorth(3))
	three.ServiceRadiusKm = 10
	catalog.providers = []*models.Provider{seven, three}

	got, err := ms.Assign(context.Background(), service.ID, kmNorth(0), nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got == nil || got.ID != three.ID {
		t.Fatalf("expected the 3 km provider, got %+v", got)
	}
}

func TestAssignFallsBackToCategoryMatch(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	noLocation := newProvider("no-location", "cleaning", nil)
	catalog.providers = []*models.Provider{noLocation}

	got, err := ms.Assign(context.Background(), service.ID, kmNorth(0), nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got == nil || got.ID != noLocation.ID {
		t.Fatalf("expected fallback assignment, got %+v", got)
	}
}

func TestAssignHonoursExclusions(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	three := newProvider("three", "cleaning", kmNorth(3))
	seven := newProvider("seven", "cleaning", kmNorth(7))
	catalog.providers = []*models.Provider{three, seven}

	got, err := ms.Assign(context.Background(), service.ID, kmNorth(0), []uuid.UUID{three.ID})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got == nil || got.ID != seven.ID {
		t.Fatalf("expected the 7 km provider, got %+v", got)
	}
}

func TestAssignReturnsNilWhenNobodyMatches(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	catalog.providers = []*models.Provider{newProvider("plumber", "plumbing", kmNorth(1))}

	got, err := ms.Assign(context.Background(), service.ID, kmNorth(0), nil)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if got != nil {
		t.Fatalf("expected no assignment, got %+v", got)
	}
}

func TestAssignIsDeterministic(t *testing.T) {
	catalog, service, ms := setupMatching(t)
	a := newProvider("a", "cleaning", kmNorth(4))
	b := newProvider("b", "cleaning", kmNorth(4))
	catalog.providers = []*models.Provider{a, b}

	for i := 0; i < 5; i++ {
		got, err := ms.Assign(context.Background(), service.ID, kmNorth(0), nil)
		if err != nil {
			t.Fatalf("Assign() error = %v", err)
		}
		if got.ID != a.ID {
			t.Fatalf("run %d: expected the first equally distant provider", i)
		}
	}
}
