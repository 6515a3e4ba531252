package patient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clinic/dashboard/internal/domain/lookup"
	"github.com/clinic/dashboard/internal/platform/cache"
	"github.com/clinic/dashboard/internal/platform/metrics"
)

const (
	DefaultTTL = 5 * time.Minute

	keyAll    = "patients:all"
	keyPrefix = "patients:"
)

func patientKey(id string) string { return keyPrefix + id }

// Flight keys live in their own namespaces so a patient whose id is "all"
// never shares a load with the listing.
const flightList = "list"

func flightPatient(id string) string { return "patient/" + id }

// Service aggregates patients with their latest appointment behind a TTL
// cache. Its read operations never return errors: backend failures are
// logged and degrade to an empty list or nil.
type Service struct {
	repo    Repository
	lookups lookup.Tables
	list    cache.Store[[]Record]
	single  cache.Store[Record]
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
	flight  singleflight.Group

	// generation is bumped by ClearCache. A load only stores its result
	// when no clear happened while it ran; storeMu orders the check and
	// the store against a concurrent clear.
	generation atomic.Uint64
	storeMu    sync.Mutex

	onClear []func(patientID string)
}

type Option func(*Service)

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithStores replaces the default in-memory caches, e.g. with Redis.
func WithStores(list cache.Store[[]Record], single cache.Store[Record]) Option {
	return func(s *Service) {
		s.list = list
		s.single = single
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClearListener registers fn to run after every ClearCache call.
func WithClearListener(fn func(patientID string)) Option {
	return func(s *Service) { s.onClear = append(s.onClear, fn) }
}

func NewService(repo Repository, lookups lookup.Tables, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		lookups: lookups,
		list:    cache.New[[]Record](),
		single:  cache.New[Record](),
		ttl:     DefaultTTL,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// outcome is what a load produced and whether it may be cached. Degraded
// or failed loads are returned to the caller but not stored.
type outcome struct {
	records   []Record
	cacheable bool
}

// GetAll returns every patient, newest first. With forceRefresh the cache
// is bypassed and overwritten by a fresh backend read.
func (s *Service) GetAll(ctx context.Context, forceRefresh bool) []Record {
	if forceRefresh {
		return cloneRecords(s.refreshAll(ctx).records)
	}

	if recs, ok := s.list.Get(keyAll); ok {
		s.metrics.CacheHit("list")
		return cloneRecords(recs)
	}
	s.metrics.CacheMiss("list")

	v, _, _ := s.flight.Do(flightList, func() (interface{}, error) {
		return s.refreshAll(context.WithoutCancel(ctx)), nil
	})
	return cloneRecords(v.(outcome).records)
}

func (s *Service) refreshAll(ctx context.Context) outcome {
	start := time.Now()
	defer s.metrics.ObserveAggregation("get_all", start)
	gen := s.generation.Load()

	out, err := s.loadAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("patient listing failed, serving empty list")
		return outcome{records: []Record{}}
	}
	if out.cacheable {
		s.storeIfCurrent(gen, func() { s.list.Set(keyAll, out.records, s.ttl) })
	}
	return out
}

func (s *Service) loadAll(ctx context.Context) (outcome, error) {
	rows, err := s.repo.ListPatients(ctx)
	if err != nil {
		s.metrics.BackendError("list_patients")
		return outcome{}, err
	}
	if len(rows) == 0 {
		return outcome{records: []Record{}}, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	cacheable := true
	appts, err := s.repo.ListAppointments(ctx, ids)
	if err != nil {
		s.metrics.BackendError("list_appointments")
		s.logger.Warn().Err(err).Int("patients", len(ids)).
			Msg("appointment lookup failed, listing patients without appointments")
		appts = nil
		cacheable = false
	}

	return outcome{
		records:   BuildRecords(rows, LatestByPatient(appts), s.lookups),
		cacheable: cacheable,
	}, nil
}

// GetByID returns one patient, or nil when it does not exist or cannot be
// read. nil results are not cached.
func (s *Service) GetByID(ctx context.Context, id string) *Record {
	key := patientKey(id)
	if rec, ok := s.single.Get(key); ok {
		s.metrics.CacheHit("patient")
		out := rec.clone()
		return &out
	}
	s.metrics.CacheMiss("patient")

	v, _, _ := s.flight.Do(flightPatient(id), func() (interface{}, error) {
		return s.loadOne(context.WithoutCancel(ctx), id), nil
	})
	recs := v.(outcome).records
	if len(recs) == 0 {
		return nil
	}
	out := recs[0].clone()
	return &out
}

func (s *Service) loadOne(ctx context.Context, id string) outcome {
	start := time.Now()
	defer s.metrics.ObserveAggregation("get_by_id", start)
	gen := s.generation.Load()

	row, err := s.repo.GetPatient(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return outcome{}
	}
	if err != nil {
		s.metrics.BackendError("get_patient")
		s.logger.Error().Err(err).Str("patient_id", id).Msg("patient lookup failed")
		return outcome{}
	}

	cacheable := true
	appt, err := s.repo.LatestAppointment(ctx, id)
	if err != nil {
		s.metrics.BackendError("latest_appointment")
		s.logger.Warn().Err(err).Str("patient_id", id).
			Msg("appointment lookup failed, showing patient without appointment")
		appt = nil
		cacheable = false
	}

	rec := BuildRecord(*row, appt, s.lookups)
	if cacheable {
		s.storeIfCurrent(gen, func() { s.single.Set(patientKey(id), rec, s.ttl) })
	}
	return outcome{records: []Record{rec}, cacheable: cacheable}
}

// ClearCache drops the cached entry for patientID, when given, and always
// drops the cached listing. Loads already in flight still answer their
// callers but do not store their results, and later reads start a new load.
func (s *Service) ClearCache(patientID string) {
	s.storeMu.Lock()
	s.generation.Add(1)
	if patientID != "" {
		s.flight.Forget(flightPatient(patientID))
		s.single.Clear(patientKey(patientID))
	}
	s.flight.Forget(flightList)
	s.list.Clear(keyAll)
	s.storeMu.Unlock()

	s.logger.Debug().Str("patient_id", patientID).Msg("patient cache cleared")
	for _, fn := range s.onClear {
		fn(patientID)
	}
}

func (s *Service) storeIfCurrent(gen uint64, store func()) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.generation.Load() != gen {
		s.logger.Debug().Msg("cache cleared during load, result not stored")
		return
	}
	store()
}
