package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/metrics"
	"parking-ledger-backend/internal/model"
	"parking-ledger-backend/internal/money"
	"parking-ledger-backend/internal/store"
)

const defaultPageSize = 100

// Service keeps the local facility mirror in step with the config seed and, when
// enabled, the upstream facility registry.
type Service struct {
	cfg     *config.RegistryConfig
	store   store.Store
	client  *http.Client
	log     *logger.Logger
	metrics *metrics.Metrics
	onSync  []func()
}

// OnSync registers fn to run after every successful sync.
func (s *Service) OnSync(fn func()) {
	s.onSync = append(s.onSync, fn)
}

// NewService creates and initializes a new registry sync service.
func NewService(cfg *config.RegistryConfig, st store.Store, log *logger.Logger, m *metrics.Metrics) *Service {
	log = log.With("service", "Registry")

	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid proxy URL, registry requests will not use a proxy", "proxy", cfg.HTTPProxy, "error", err)
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:   cfg,
		store: st,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		log:     log,
		metrics: m,
	}
}

// Seed upserts the facilities declared in the config file.
func (s *Service) Seed(ctx context.Context) error {
	if len(s.cfg.Facilities) == 0 {
		return nil
	}
	facilities := make([]model.Facility, 0, len(s.cfg.Facilities))
	for _, seed := range s.cfg.Facilities {
		var ref *string
		if seed.OperatorRef != "" {
			r := seed.OperatorRef
			ref = &r
		}
		f, err := toFacility(FacilityDTO{
			ID:          seed.ID,
			Name:        seed.Name,
			Capacity:    seed.Capacity,
			HourlyRate:  seed.HourlyRate,
			OperatorRef: ref,
		})
		if err != nil {
			return fmt.Errorf("invalid facility seed %d: %w", seed.ID, err)
		}
		facilities = append(facilities, f)
	}
	if err := s.store.UpsertFacilities(ctx, facilities); err != nil {
		return err
	}
	s.log.Info("seeded facilities from config", "count", len(facilities))
	return nil
}

// Run syncs with the upstream registry in a loop until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("registry sync is disabled, not starting")
		return
	}
	s.log.Info("starting registry sync", "interval", s.cfg.Interval)

	s.SyncOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("registry sync shutting down")
			return
		case <-timer.C:
			s.SyncOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SyncOnce fetches every page from the upstream registry and upserts the mirror. A
// failed or partial fetch writes nothing.
func (s *Service) SyncOnce(ctx context.Context) error {
	err := s.syncOnce(ctx)
	s.metrics.ObserveRegistrySync(err)
	if err != nil {
		s.log.Error("registry sync failed", "error", err)
	}
	return err
}

func (s *Service) syncOnce(ctx context.Context) error {
	var all []FacilityDTO
	total := 1
	pageSize := s.cfg.Request.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page, pageSize)
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		all = append(all, resp.Data.Items...)
		s.log.Debug("fetched registry page", "page", page, "items", len(all), "total", total)
	}

	facilities := make([]model.Facility, 0, len(all))
	for _, item := range all {
		f, err := toFacility(item)
		if err != nil {
			s.log.Warn("skipping invalid facility from registry", "id", item.ID, "error", err)
			continue
		}
		facilities = append(facilities, f)
	}

	if err := s.store.UpsertFacilities(ctx, facilities); err != nil {
		return fmt.Errorf("upsert facilities: %w", err)
	}
	for _, fn := range s.onSync {
		fn()
	}
	s.log.Info("registry sync finished", "facilities", len(facilities))
	return nil
}

// fetchPage fetches a single page of facilities from the upstream registry.
func (s *Service) fetchPage(ctx context.Context, page, pageSize int) (*apiResponse, error) {
	u, err := url.Parse(s.cfg.Request.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.cfg.Request.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}

	if apiResp.Code != 0 {
		return nil, fmt.Errorf("registry returned non-zero application code %d: %s", apiResp.Code, apiResp.Msg)
	}

	return &apiResp, nil
}

func toFacility(dto FacilityDTO) (model.Facility, error) {
	name := strings.TrimSpace(dto.Name)
	switch {
	case dto.ID <= 0:
		return model.Facility{}, fmt.Errorf("id must be positive")
	case name == "":
		return model.Facility{}, fmt.Errorf("name must not be blank")
	case dto.Capacity <= 0:
		return model.Facility{}, fmt.Errorf("capacity must be positive")
	}
	rate, err := money.Parse(dto.HourlyRate)
	if err != nil {
		return model.Facility{}, fmt.Errorf("hourly rate: %w", err)
	}
	return model.Facility{
		ID:              dto.ID,
		Name:            name,
		Capacity:        dto.Capacity,
		HourlyRateCents: rate,
		OperatorRef:     dto.OperatorRef,
	}, nil
}
