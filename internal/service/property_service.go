package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rentease/rentease-api/internal/dto"
	"github.com/rentease/rentease-api/internal/models"
	"github.com/rentease/rentease-api/internal/repository"
	"github.com/rentease/rentease-api/pkg/geo"
)

// Ranking weights. Distance dominates because students walk to campus daily.
const (
	weightDistance = 0.40
	weightPrice    = 0.35
	weightRating   = 0.25

	amenityBonusPer = 0.02
	amenityBonusCap = 0.10
)

// ErrPropertyNotApproved indicates the listing is not visible to students.
var ErrPropertyNotApproved = errors.New("property not approved")

// GeoResolver resolves addresses and travel estimates.
type GeoResolver interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
	WalkingRoute(ctx context.Context, from, to geo.Point) geo.Route
	TransitEstimate(from, to geo.Point) geo.Route
}

// PropertyService manages listings, moderation, and ranked student search.
type PropertyService interface {
	Create(ctx context.Context, owner models.User, payload dto.PropertyCreateRequest) (models.Property, error)
	Get(ctx context.Context, id uint) (models.Property, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Property, error)
	Search(ctx context.Context, student models.User, query dto.PropertySearchQuery) (dto.PropertySearchResponse, error)
	SetStatus(ctx context.Context, id uint, status string) error
	AddRoom(ctx context.Context, owner models.User, propertyID uint, room models.Room) (models.Room, error)
}

type propertyService struct {
	properties repository.PropertyRepository
	rooms      repository.RoomRepository
	redis      *redis.Client
	geo        GeoResolver
	cacheTTL   time.Duration
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewPropertyService builds the property service.
func NewPropertyService(
	properties repository.PropertyRepository,
	rooms repository.RoomRepository,
	redisClient *redis.Client,
	resolver GeoResolver,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger zerolog.Logger,
) PropertyService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &propertyService{
		properties: properties,
		rooms:      rooms,
		redis:      redisClient,
		geo:        resolver,
		cacheTTL:   cacheTTL,
		validator:  validate,
		logger:     logger.With().Str("component", "property_service").Logger(),
	}
}

// Create registers a new listing in pending state. Missing coordinates are
// geocoded from the address; geocoding failure does not block onboarding.
func (s *propertyService) Create(ctx context.Context, owner models.User, payload dto.PropertyCreateRequest) (models.Property, error) {
	if !owner.IsOperator() {
		return models.Property{}, ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return models.Property{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	lat, lng := payload.Lat, payload.Lng
	if lat == 0 && lng == 0 && s.geo != nil {
		if point, err := s.geo.Geocode(ctx, payload.Address+", "+payload.City); err == nil {
			lat, lng = point.Lat, point.Lng
		} else {
			s.logger.Warn().Err(err).Str("city", payload.City).Msg("geocoding failed for new listing")
		}
	}

	gender := payload.GenderRestriction
	if gender == "" {
		gender = models.GenderAny
	}

	amenities, err := json.Marshal(payload.Amenities)
	if err != nil {
		return models.Property{}, err
	}

	property := models.Property{
		OwnerID:               owner.ID,
		Name:                  payload.Name,
		Address:               payload.Address,
		City:                  payload.City,
		Lat:                   lat,
		Lng:                   lng,
		BasePrice:             payload.BasePrice,
		CurrentPrice:          payload.BasePrice,
		GenderRestriction:     gender,
		Amenities:             datatypes.JSON(amenities),
		DynamicPricingEnabled: payload.DynamicPricingEnabled,
		Status:                models.PropertyStatusPending,
		Timezone:              payload.Timezone,
	}
	if err := s.properties.Create(ctx, &property); err != nil {
		return models.Property{}, err
	}

	s.invalidateSearchCache(ctx)
	s.logger.Info().Uint("property_id", property.ID).Uint("owner_id", owner.ID).Msg("listing created")

	return property, nil
}

func (s *propertyService) Get(ctx context.Context, id uint) (models.Property, error) {
	property, err := s.properties.GetByIDWithRooms(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Property{}, ErrPropertyNotFound
		}
		return models.Property{}, err
	}
	return property, nil
}

func (s *propertyService) ListByOwner(ctx context.Context, ownerID uint) ([]models.Property, error) {
	return s.properties.ListByOwner(ctx, ownerID)
}

// Search returns approved listings matching the filters, ranked by a
// weighted score of distance to the student's college, price, and rating.
// Results are cached per query shape for a short TTL.
func (s *propertyService) Search(ctx context.Context, student models.User, query dto.PropertySearchQuery) (dto.PropertySearchResponse, error) {
	cacheKey := s.searchCacheKey(ctx, student, query)
	if cached, ok := s.cachedSearch(ctx, cacheKey); ok {
		cached.CacheHit = true
		return cached, nil
	}

	filter := repository.PropertySearchFilter{City: query.City, Gender: query.Gender}
	if query.MaxBudget > 0 {
		filter.MaxBudget = &query.MaxBudget
	}

	properties, err := s.properties.ListApproved(ctx, filter)
	if err != nil {
		return dto.PropertySearchResponse{}, err
	}

	college := geo.Point{Lat: student.CollegeLat, Lng: student.CollegeLng}
	hasCollege := college.Lat != 0 || college.Lng != 0

	ranked := make([]dto.RankedProperty, 0, len(properties))
	for _, p := range properties {
		if hasCollege && (p.Lat != 0 || p.Lng != 0) {
			p.DistanceKM = geo.HaversineKM(college, geo.Point{Lat: p.Lat, Lng: p.Lng})
			if s.geo != nil {
				transit := s.geo.TransitEstimate(college, geo.Point{Lat: p.Lat, Lng: p.Lng})
				p.TravelTimeTransit = int(transit.DurationMin + 0.5)
				p.TravelTimeWalk = int(p.DistanceKM/4.5*60 + 0.5)
			}
		}
		if query.MaxDistance > 0 && p.DistanceKM > query.MaxDistance {
			continue
		}
		ranked = append(ranked, dto.RankedProperty{Property: p})
	}

	scoreProperties(ranked, query.Amenities)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	response := dto.PropertySearchResponse{
		Properties: ranked,
		Winners:    pickWinners(ranked),
	}

	s.storeSearch(ctx, cacheKey, response)

	return response, nil
}

// SetStatus moderates a listing (approve, suspend).
func (s *propertyService) SetStatus(ctx context.Context, id uint, status string) error {
	switch status {
	case models.PropertyStatusApproved, models.PropertyStatusSuspended, models.PropertyStatusPending:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, status)
	}

	if err := s.properties.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPropertyNotFound
		}
		return err
	}

	s.invalidateSearchCache(ctx)
	s.logger.Info().Uint("property_id", id).Str("status", status).Msg("listing status updated")

	return nil
}

// AddRoom attaches a room to an owner's listing.
func (s *propertyService) AddRoom(ctx context.Context, owner models.User, propertyID uint, room models.Room) (models.Room, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Room{}, ErrPropertyNotFound
		}
		return models.Room{}, err
	}
	if property.OwnerID != owner.ID {
		return models.Room{}, ErrNotPropertyOwner
	}

	room.PropertyID = propertyID
	if room.Capacity <= 0 {
		room.Capacity = 1
	}
	if room.Status == "" {
		room.Status = models.RoomStatusAvailable
	}
	if err := s.rooms.Create(ctx, &room); err != nil {
		return models.Room{}, err
	}

	return room, nil
}

func scoreProperties(ranked []dto.RankedProperty, wantedAmenities []string) {
	if len(ranked) == 0 {
		return
	}

	maxDist, maxPrice := 0.0, int64(0)
	for _, p := range ranked {
		if p.DistanceKM > maxDist {
			maxDist = p.DistanceKM
		}
		if p.CurrentPrice > maxPrice {
			maxPrice = p.CurrentPrice
		}
	}

	for i := range ranked {
		p := &ranked[i]

		distScore := 1.0
		if maxDist > 0 {
			distScore = 1 - p.DistanceKM/maxDist
		}
		priceScore := 1.0
		if maxPrice > 0 {
			priceScore = 1 - float64(p.CurrentPrice)/float64(maxPrice)
		}
		ratingScore := p.AvgRating / 5

		p.Score = weightDistance*distScore + weightPrice*priceScore + weightRating*ratingScore + amenityBonus(p.Amenities, wantedAmenities)
	}
}

func amenityBonus(have datatypes.JSON, wanted []string) float64 {
	if len(wanted) == 0 || len(have) == 0 {
		return 0
	}

	var available []string
	if err := json.Unmarshal(have, &available); err != nil {
		return 0
	}

	set := make(map[string]struct{}, len(available))
	for _, a := range available {
		set[strings.ToLower(a)] = struct{}{}
	}

	bonus := 0.0
	for _, w := range wanted {
		if _, ok := set[strings.ToLower(w)]; ok {
			bonus += amenityBonusPer
		}
	}
	if bonus > amenityBonusCap {
		bonus = amenityBonusCap
	}
	return bonus
}

func pickWinners(ranked []dto.RankedProperty) dto.CategoryWinners {
	var winners dto.CategoryWinners
	for i := range ranked {
		p := &ranked[i]
		if winners.Closest == nil || p.DistanceKM < winners.Closest.DistanceKM {
			winners.Closest = p
		}
		if winners.Cheapest == nil || p.CurrentPrice < winners.Cheapest.CurrentPrice {
			winners.Cheapest = p
		}
		if winners.BestRated == nil || p.AvgRating > winners.BestRated.AvgRating {
			winners.BestRated = p
		}
		if winners.BestValue == nil || p.Score > winners.BestValue.Score {
			winners.BestValue = p
		}
	}
	return winners
}

const searchCacheVersionKey = "properties:search:ver"

func (s *propertyService) searchCacheKey(ctx context.Context, student models.User, query dto.PropertySearchQuery) string {
	version := "0"
	if s.redis != nil {
		if v, err := s.redis.Get(ctx, searchCacheVersionKey).Result(); err == nil {
			version = v
		}
	}

	raw, _ := json.Marshal(struct {
		Query dto.PropertySearchQuery
		Lat   float64
		Lng   float64
	}{query, student.CollegeLat, student.CollegeLng})
	digest := sha256.Sum256(raw)

	return fmt.Sprintf("properties:search:%s:%s", version, hex.EncodeToString(digest[:12]))
}

func (s *propertyService) cachedSearch(ctx context.Context, key string) (dto.PropertySearchResponse, bool) {
	if s.redis == nil {
		return dto.PropertySearchResponse{}, false
	}

	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return dto.PropertySearchResponse{}, false
	}

	var response dto.PropertySearchResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return dto.PropertySearchResponse{}, false
	}
	return response, true
}

func (s *propertyService) storeSearch(ctx context.Context, key string, response dto.PropertySearchResponse) {
	if s.redis == nil {
		return
	}

	raw, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache search results")
	}
}

// invalidateSearchCache bumps the cache version so stale result sets stop
// matching their keys and age out via TTL.
func (s *propertyService) invalidateSearchCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Incr(ctx, searchCacheVersionKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to bump search cache version")
	}
}
