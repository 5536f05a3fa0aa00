package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/models"
)

const DefaultMaxKm = 10.0

// Candidate is a provider that can take a booking, with its distance when it is known.
type Candidate struct {
	Provider   *models.Provider `json:"provider"`
	DistanceKm *float64         `json:"distance_km"`
}

type MatchingService struct {
	serviceRepo  models.ServiceRepo
	providerRepo models.ProviderRepo
	maxKm        float64
	logger       *slog.Logger
}

func NewMatchingService(serviceRepo models.ServiceRepo, providerRepo models.ProviderRepo, maxKm float64, logger *slog.Logger) *MatchingService {
	if maxKm <= 0 {
		maxKm = DefaultMaxKm
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchingService{
		serviceRepo:  serviceRepo,
		providerRepo: providerRepo,
		maxKm:        maxKm,
		logger:       logger,
	}
}

func (ms *MatchingService) MaxKm() float64 {
	return ms.maxKm
}

// FindCandidates lists the providers able to serve serviceID, closest first when a location is given.
func (ms *MatchingService) FindCandidates(ctx context.Context, serviceID uuid.UUID, customer *models.GeoPoint) ([]Candidate, error) {
	service, err := ms.serviceRepo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, mapRepoErr(err, "service")
	}

	providers, err := ms.providerRepo.FindMatchingProviders(ctx, service.ID, service.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}

	candidates := make([]Candidate, 0, len(providers))
	for _, p := range providers {
		if p == nil || !p.IsActive || !p.IsApproved || !p.Offers(service) {
			continue
		}
		if !IsEligible(*p, customer, ms.maxKm) {
			continue
		}
		if customer == nil {
			candidates = append(candidates, Candidate{Provider: p})
			continue
		}
		d := DistanceKm(customer.Latitude, customer.Longitude, p.Location.Latitude, p.Location.Longitude)
		candidates = append(candidates, Candidate{Provider: p, DistanceKm: &d})
	}

	if customer != nil {
		sort.SliceStable(candidates, func(i, j int) bool {
			return *candidates[i].DistanceKm < *candidates[j].DistanceKm
		})
	}
	return candidates, nil
}

// Assign picks the provider for a new booking, or nil when nobody can take it.
// An empty geo-filtered result falls back to category-only matching.
func (ms *MatchingService) Assign(ctx context.Context, serviceID uuid.UUID, customer *models.GeoPoint, excludeIDs []uuid.UUID) (*models.Provider, error) {
	candidates, err := ms.FindCandidates(ctx, serviceID, customer)
	if err != nil {
		return nil, err
	}
	candidates = excludeCandidates(candidates, excludeIDs)

	if len(candidates) == 0 && customer != nil {
		ms.logger.Debug("No providers in range, falling back to category match", "service_id", serviceID)
		candidates, err = ms.FindCandidates(ctx, serviceID, nil)
		if err != nil {
			return nil, err
		}
		candidates = excludeCandidates(candidates, excludeIDs)
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0].Provider, nil
}

func excludeCandidates(candidates []Candidate, excludeIDs []uuid.UUID) []Candidate {
	if len(excludeIDs) == 0 {
		return candidates
	}
	skip := make(map[uuid.UUID]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}
	kept := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := skip[c.Provider.ID]; ok {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
