// Package seed loads districts, wards, centers and candidates from a YAML
// document and writes them in one batch.
package seed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tally-backend/config"
	"tally-backend/internal/model"
	"tally-backend/internal/store"
)

// Document is the seed file layout. IDs are optional; records without one get
// a generated ID and cannot be referenced by later entries.
type Document struct {
	Districts  []District  `yaml:"districts"`
	Wards      []Ward      `yaml:"wards"`
	Centers    []Center    `yaml:"centers"`
	Candidates []Candidate `yaml:"candidates"`
}

type District struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type Ward struct {
	ID         string `yaml:"id"`
	DistrictID string `yaml:"district_id"`
	Name       string `yaml:"name"`
}

type Center struct {
	ID               string `yaml:"id"`
	WardID           string `yaml:"ward_id"`
	CenterNumber     string `yaml:"center_number"`
	Name             string `yaml:"name"`
	RegisteredVoters int    `yaml:"registered_voters"`
}

type Candidate struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Party string `yaml:"party"`
}

// Report counts what Apply wrote and what it skipped.
type Report struct {
	Districts  int
	Wards      int
	Centers    int
	Candidates int
	Skipped    int
}

// Service reads seed documents and upserts them through a store.Store.
type Service struct {
	store  store.Store
	client *http.Client
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a seed service. Remote documents are fetched with the
// configured timeout.
func NewService(cfg config.SeedConfig, s store.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		store:  s,
		client: &http.Client{Timeout: timeout},
		log:    log,
		now:    time.Now,
	}
}

// Run loads the document at source and applies it.
func (s *Service) Run(ctx context.Context, source string) (Report, error) {
	doc, err := s.Load(ctx, source)
	if err != nil {
		return Report{}, err
	}
	return s.Apply(ctx, doc)
}

// Load reads a seed document from a file path or an http(s) URL.
func (s *Service) Load(ctx context.Context, source string) (*Document, error) {
	if source == "" {
		return nil, fmt.Errorf("no seed source given")
	}

	var (
		body []byte
		err  error
	)
	if isURL(source) {
		body, err = s.fetch(ctx, source)
	} else {
		body, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed document %s: %w", source, err)
	}
	return &doc, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/yaml, text/yaml, */*")

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
	return body, nil
}

// Apply checks the document and upserts it. Entries missing required fields,
// and wards or centers whose parent is neither in the document nor stored,
// are logged and skipped.
func (s *Service) Apply(ctx context.Context, doc *Document) (Report, error) {
	var (
		report Report
		batch  store.SeedBatch
	)
	now := s.now().UTC()

	storedDistricts, err := s.store.ListDistricts(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list districts: %w", err)
	}
	storedWards, err := s.store.ListWards(ctx, "")
	if err != nil {
		return report, fmt.Errorf("failed to list wards: %w", err)
	}

	districts := make(map[string]bool, len(storedDistricts)+len(doc.Districts))
	for _, d := range storedDistricts {
		districts[d.ID] = true
	}
	wards := make(map[string]bool, len(storedWards)+len(doc.Wards))
	for _, w := range storedWards {
		wards[w.ID] = true
	}

	for _, d := range doc.Districts {
		if strings.TrimSpace(d.Name) == "" {
			s.skip(&report, "district", d.ID, "missing name")
			continue
		}
		if d.ID != "" {
			districts[d.ID] = true
		}
		batch.Districts = append(batch.Districts, model.District{ID: d.ID, Name: strings.TrimSpace(d.Name), CreatedAt: now})
	}

	for _, w := range doc.Wards {
		switch {
		case strings.TrimSpace(w.Name) == "":
			s.skip(&report, "ward", w.ID, "missing name")
			continue
		case !districts[w.DistrictID]:
			s.skip(&report, "ward", w.ID, "unknown district "+w.DistrictID)
			continue
		}
		if w.ID != "" {
			wards[w.ID] = true
		}
		batch.Wards = append(batch.Wards, model.Ward{ID: w.ID, DistrictID: w.DistrictID, Name: strings.TrimSpace(w.Name), CreatedAt: now})
	}

	for _, c := range doc.Centers {
		switch {
		case strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.CenterNumber) == "":
			s.skip(&report, "center", c.ID, "missing name or center number")
			continue
		case c.RegisteredVoters < 0:
			s.skip(&report, "center", c.ID, "negative registered voters")
			continue
		case !wards[c.WardID]:
			s.skip(&report, "center", c.ID, "unknown ward "+c.WardID)
			continue
		}
		batch.Centers = append(batch.Centers, model.Center{
			ID:               c.ID,
			WardID:           c.WardID,
			CenterNumber:     strings.TrimSpace(c.CenterNumber),
			Name:             strings.TrimSpace(c.Name),
			RegisteredVoters: c.RegisteredVoters,
			CreatedAt:        now,
		})
	}

	for _, c := range doc.Candidates {
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Party) == "" {
			s.skip(&report, "candidate", c.ID, "missing name or party")
			continue
		}
		batch.Candidates = append(batch.Candidates, model.Candidate{ID: c.ID, Name: strings.TrimSpace(c.Name), Party: strings.TrimSpace(c.Party), CreatedAt: now})
	}

	if batch.Len() == 0 {
		s.log.Info("seed document has nothing to write", zap.Int("skipped", report.Skipped))
		return report, nil
	}
	if err := s.store.UpsertSeed(ctx, batch); err != nil {
		return report, err
	}

	report.Districts = len(batch.Districts)
	report.Wards = len(batch.Wards)
	report.Centers = len(batch.Centers)
	report.Candidates = len(batch.Candidates)
	s.log.Info("seed applied",
		zap.Int("districts", report.Districts),
		zap.Int("wards", report.Wards),
		zap.Int("centers", report.Centers),
		zap.Int("candidates", report.Candidates),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (s *Service) skip(r *Report, kind, id, reason string) {
	r.Skipped++
	s.log.Warn("skipping seed entry", zap.String("kind", kind), zap.String("id", id), zap.String("reason", reason))
}
