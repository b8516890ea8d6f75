package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/llm"
	"github.com/junhopark/prdforge/internal/repository"
)

// In-memory fakes for the store interfaces. All of them copy on read so
// tests cannot mutate stored state by accident.

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]domain.Job{}}
}

func (s *memJobStore) Create(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStore) Update(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s not stored", job.ID)
	}
	job.UpdatedAt = time.Now()
	// cancel_requested only changes through RequestCancel, matching the
	// column-scoped save in the gorm repository.
	copied := *job
	copied.CancelRequested = stored.CancelRequested
	s.jobs[job.ID] = copied
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not stored", id)
	}
	copied := job
	return &copied, nil
}

func (s *memJobStore) List(_ context.Context, offset, limit int, status domain.JobStatus) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Job
	for _, job := range s.jobs {
		if status != "" && job.Status != status {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memJobStore) RequestCancel(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.IsTerminal() {
		return false, nil
	}
	job.CancelRequested = true
	s.jobs[id] = job
	return true, nil
}

type memDocumentStore struct {
	mu   sync.Mutex
	docs map[string]domain.InputDocument
}

func newMemDocumentStore() *memDocumentStore {
	return &memDocumentStore{docs: map[string]domain.InputDocument{}}
}

func (s *memDocumentStore) Create(_ context.Context, doc *domain.InputDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *memDocumentStore) GetByID(_ context.Context, id string) (*domain.InputDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s not stored", id)
	}
	copied := doc
	return &copied, nil
}

func (s *memDocumentStore) GetByIDs(_ context.Context, ids []string) ([]domain.InputDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InputDocument
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *memDocumentStore) List(_ context.Context, offset, limit int) ([]domain.InputDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InputDocument
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

type memCandidateStore struct {
	mu         sync.Mutex
	candidates map[string]domain.RequirementCandidate
}

func newMemCandidateStore() *memCandidateStore {
	return &memCandidateStore{candidates: map[string]domain.RequirementCandidate{}}
}

func (s *memCandidateStore) CreateBatch(_ context.Context, batch []domain.RequirementCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range batch {
		s.candidates[c.ID] = c
	}
	return nil
}

func (s *memCandidateStore) GetByID(_ context.Context, id string) (*domain.RequirementCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s not stored", id)
	}
	copied := c
	return &copied, nil
}

func (s *memCandidateStore) ListByJob(_ context.Context, jobID string) ([]domain.RequirementCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RequirementCandidate
	for _, c := range s.candidates {
		if c.JobID == jobID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memCandidateStore) ListApprovedByJob(ctx context.Context, jobID string) ([]domain.RequirementCandidate, error) {
	all, _ := s.ListByJob(ctx, jobID)
	var out []domain.RequirementCandidate
	for _, c := range all {
		if c.Approved {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memCandidateStore) Update(_ context.Context, c *domain.RequirementCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[c.ID]; !ok {
		return fmt.Errorf("candidate %s not stored", c.ID)
	}
	s.candidates[c.ID] = *c
	return nil
}

func (s *memCandidateStore) MarkApproved(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		c, ok := s.candidates[id]
		if !ok {
			continue
		}
		c.Approved = true
		s.candidates[id] = c
	}
	return nil
}

func (s *memCandidateStore) DeleteByIDs(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.candidates, id)
	}
	return nil
}

type memReviewStore struct {
	mu    sync.Mutex
	items map[string]domain.ReviewItem
}

func newMemReviewStore() *memReviewStore {
	return &memReviewStore{items: map[string]domain.ReviewItem{}}
}

func (s *memReviewStore) CreateBatch(_ context.Context, batch []domain.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range batch {
		s.items[item.ID] = item
	}
	return nil
}

func (s *memReviewStore) GetByID(_ context.Context, jobID, itemID string) (*domain.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.JobID != jobID {
		return nil, fmt.Errorf("review item %s not stored for job %s", itemID, jobID)
	}
	copied := item
	return &copied, nil
}

func (s *memReviewStore) ListByJob(_ context.Context, jobID string) ([]domain.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ReviewItem
	for _, item := range s.items {
		if item.JobID == jobID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memReviewStore) PendingCount(ctx context.Context, jobID string) (int64, error) {
	items, _ := s.ListByJob(ctx, jobID)
	var n int64
	for _, item := range items {
		if !item.Resolved() {
			n++
		}
	}
	return n, nil
}

func (s *memReviewStore) ResolvedCount(ctx context.Context, jobID string) (int64, error) {
	items, _ := s.ListByJob(ctx, jobID)
	var n int64
	for _, item := range items {
		if item.Resolved() {
			n++
		}
	}
	return n, nil
}

func (s *memReviewStore) Resolve(_ context.Context, jobID, itemID string, decision domain.ReviewDecision, notes string, modified domain.JSONMap) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.JobID != jobID {
		return false, nil
	}
	if item.Decision != domain.DecisionPending {
		return false, nil
	}
	now := time.Now()
	item.Decision = decision
	item.DecisionNotes = notes
	item.ModifiedFields = modified
	item.ResolvedAt = &now
	s.items[itemID] = item
	return true, nil
}

type memGeneratedStore struct {
	mu   sync.Mutex
	docs map[string]domain.GeneratedDocument
}

func newMemGeneratedStore() *memGeneratedStore {
	return &memGeneratedStore{docs: map[string]domain.GeneratedDocument{}}
}

func (s *memGeneratedStore) Create(_ context.Context, doc *domain.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

func (s *memGeneratedStore) GetByID(_ context.Context, id string) (*domain.GeneratedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("generated document %s not stored", id)
	}
	copied := doc
	return &copied, nil
}

func (s *memGeneratedStore) List(_ context.Context, kind domain.GeneratedKind, offset, limit int) ([]domain.GeneratedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GeneratedDocument
	for _, doc := range s.docs {
		if kind != "" && doc.Kind != kind {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memGeneratedStore) ListByParent(_ context.Context, parentID string) ([]domain.GeneratedDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GeneratedDocument
	for _, doc := range s.docs {
		if doc.ParentID == parentID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *memGeneratedStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false, nil
	}
	delete(s.docs, id)
	return true, nil
}

// memObjectStorage implements storage.ObjectStorage in memory.
type memObjectStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjectStorage() *memObjectStorage {
	return &memObjectStorage{objects: map[string][]byte{}}
}

func (s *memObjectStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memObjectStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not stored", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memObjectStorage) GetURL(key string) string {
	return "mem://" + key
}

func (s *memObjectStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

// fakeModel stands in for the llm client on both the extraction and
// generation sides.
type fakeModel struct {
	mu         sync.Mutex
	extractFn  func(text string) ([]llm.ExtractedRequirement, error)
	extractErr error
	calls      int
}

func (m *fakeModel) ExtractRequirements(_ context.Context, text string) ([]llm.ExtractedRequirement, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	if m.extractFn != nil {
		return m.extractFn(text)
	}
	return nil, nil
}

func (m *fakeModel) GenerateOverview(_ context.Context, _ []domain.RequirementCandidate) (*domain.Overview, error) {
	return &domain.Overview{
		Background: "generated background",
		Goals:      []string{"generated goal"},
		Scope:      "generated scope",
	}, nil
}

func (m *fakeModel) GenerateMilestones(_ context.Context, _ []domain.RequirementCandidate) ([]domain.Milestone, error) {
	return []domain.Milestone{{ID: "m1", Name: "first", Description: "cut", Order: 1}}, nil
}

func (m *fakeModel) GenerateDerivative(_ context.Context, kind domain.GeneratedKind, _ string) ([]domain.GeneratedSection, error) {
	return []domain.GeneratedSection{{Title: "section for " + string(kind), Content: "body"}}, nil
}

// fakeIndexer records indexed requirement counts per PRD.
type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]int
	removed []string
	err     error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{indexed: map[string]int{}}
}

func (f *fakeIndexer) IndexRequirements(_ context.Context, _, prdID string, reqs []domain.RequirementCandidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed[prdID] = len(reqs)
	return nil
}

func (f *fakeIndexer) RemoveRequirements(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ids...)
	return nil
}

// fakeVectorStore backs the search service tests.
type fakeVectorStore struct {
	mu      sync.Mutex
	points  map[string]*repository.RequirementPayload
	results []repository.SearchResult
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{points: map[string]*repository.RequirementPayload{}}
}

func (f *fakeVectorStore) Upsert(_ context.Context, pointID string, _ []float32, payload *repository.RequirementPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points[pointID] = payload
	return nil
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, topK int, _ *repository.SearchFilters) ([]repository.SearchResult, error) {
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func (f *fakeVectorStore) DeletePoints(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.points, id)
	}
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
