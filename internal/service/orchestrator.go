package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/junhopark/prdforge/internal/domain"
	"github.com/junhopark/prdforge/internal/extract"
	"github.com/junhopark/prdforge/internal/llm"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/storage"
)

// RequirementExtractor is the slice of the model client the pipeline uses
// to turn normalized text into requirement candidates.
type RequirementExtractor interface {
	ExtractRequirements(ctx context.Context, text string) ([]llm.ExtractedRequirement, error)
}

// Indexer pushes approved requirements into the similarity index after a
// PRD completes. Indexing failures never fail the job.
type Indexer interface {
	IndexRequirements(ctx context.Context, jobID, prdID string, reqs []domain.RequirementCandidate) error
}

// OrchestratorConfig tunes the pipeline orchestrator.
type OrchestratorConfig struct {
	MaxConcurrentJobs int
	ParseWorkers      int
	ReviewEnabled     bool
}

// Orchestrator drives jobs through the pipeline state machine:
// pending -> parsing -> normalizing -> validating -> {generating | pm_review}
// -> completed, with failed reachable from any non-terminal state.
type Orchestrator struct {
	jobs       JobStore
	documents  DocumentStore
	candidates CandidateStore
	reviews    ReviewStore
	objects    storage.ObjectStorage
	registry   *extract.Registry
	extractor  RequirementExtractor
	gate       *QualityGate
	generator  *Generator
	indexer    Indexer

	parseWorkers  int
	reviewEnabled bool
	sem           chan struct{}
	wg            sync.WaitGroup
}

// NewOrchestrator wires the pipeline orchestrator.
func NewOrchestrator(
	jobs JobStore,
	documents DocumentStore,
	candidates CandidateStore,
	reviews ReviewStore,
	objects storage.ObjectStorage,
	registry *extract.Registry,
	extractor RequirementExtractor,
	gate *QualityGate,
	generator *Generator,
	indexer Indexer,
	cfg OrchestratorConfig,
) *Orchestrator {
	maxJobs := cfg.MaxConcurrentJobs
	if maxJobs <= 0 {
		maxJobs = 10
	}
	workers := cfg.ParseWorkers
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		jobs:          jobs,
		documents:     documents,
		candidates:    candidates,
		reviews:       reviews,
		objects:       objects,
		registry:      registry,
		extractor:     extractor,
		gate:          gate,
		generator:     generator,
		indexer:       indexer,
		parseWorkers:  workers,
		reviewEnabled: cfg.ReviewEnabled,
		sem:           make(chan struct{}, maxJobs),
	}
}

// Start validates the input set, creates a job, and dispatches it to a
// worker slot. The returned job is in pending state; processing is async.
// Parameters:
//   - ctx: request context, used only for the synchronous validation part.
//   - documentIDs: uploaded document IDs, at least one.
//
// Returns:
//   - *domain.Job: the created job.
//   - error: ErrInvalidInput for an empty or unsupported input set,
//     ErrNotFound when a referenced document does not exist.
func (o *Orchestrator) Start(ctx context.Context, documentIDs []string) (*domain.Job, error) {
	if len(documentIDs) == 0 {
		return nil, fmt.Errorf("%w: no documents given", ErrInvalidInput)
	}

	docs, err := o.documents.GetByIDs(ctx, documentIDs)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) != len(documentIDs) {
		return nil, fmt.Errorf("%w: unknown document in input set", ErrNotFound)
	}

	filenames := make([]string, len(docs))
	for i, doc := range docs {
		if !o.registry.Supports(doc.Kind) {
			return nil, fmt.Errorf("%w: no extractor for %s (%s)", ErrInvalidInput, doc.Filename, doc.Kind)
		}
		filenames[i] = doc.Filename
	}

	job := &domain.Job{
		ID:             uuid.New().String(),
		Status:         domain.JobStatusPending,
		InputRefs:      domain.StringArray(documentIDs),
		InputFilenames: domain.StringArray(filenames),
		StageResults:   domain.JSONMap{},
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sem <- struct{}{}
		defer func() { <-o.sem }()

		runCtx := logger.SetJobID(context.Background(), job.ID)
		if err := o.Run(runCtx, job.ID); err != nil {
			logger.CtxError(runCtx, "pipeline run ended with error: %v", err)
		}
	}()

	return job, nil
}

// Wait blocks until all dispatched jobs have finished. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run advances the job until it reaches a terminal state or the pm_review
// hold.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	for {
		job, err := o.Advance(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() || job.Status == domain.JobStatusPMReview {
			return nil
		}
	}
}

// Advance performs exactly one pipeline stage and persists the outcome
// before returning. Terminal and pm_review jobs are returned unchanged, so
// repeated calls are safe.
func (o *Orchestrator) Advance(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := o.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.IsTerminal() || job.Status == domain.JobStatusPMReview {
		return job, nil
	}

	if job.CancelRequested {
		return o.failJob(ctx, job, fmt.Errorf("cancelled"))
	}

	if job.CompletedStages >= len(domain.PipelineStages) {
		return nil, fmt.Errorf("job %s has no stages left in status %s", job.ID, job.Status)
	}
	stage := domain.PipelineStages[job.CompletedStages]

	if job.Status != stage {
		if !job.Status.CanTransitionTo(stage) {
			return nil, fmt.Errorf("illegal transition %s -> %s for job %s", job.Status, stage, job.ID)
		}
		job.Status = stage
		job.CurrentStage = stage
		if err := o.jobs.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("persist stage start: %w", err)
		}
	}

	stageCtx := logger.SetStage(logger.SetJobID(ctx, job.ID), stage.String())
	logger.CtxInfo(stageCtx, "stage started")
	start := time.Now()

	detail, hold, err := o.runStage(stageCtx, job, stage)
	if err != nil {
		logger.CtxError(stageCtx, "stage failed: %v", err)
		return o.failJob(ctx, job, err)
	}

	durationMs := time.Since(start).Milliseconds()
	job.RecordStageResult(stage, durationMs, detail)

	switch {
	case hold:
		job.Status = domain.JobStatusPMReview
		job.CurrentStage = domain.JobStatusPMReview
	case stage == domain.JobStatusGenerating:
		job.Status = domain.JobStatusCompleted
		job.CurrentStage = domain.JobStatusCompleted
	}

	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist stage result: %w", err)
	}

	logger.With(logger.Fields{logger.FieldStage: stage.String()}).
		WithDuration(durationMs).
		Info(stageCtx, "stage finished, job now %s", job.Status)
	return job, nil
}

// runStage executes one working stage. hold is true when validating routed
// candidates to pm_review.
func (o *Orchestrator) runStage(ctx context.Context, job *domain.Job, stage domain.JobStatus) (detail map[string]interface{}, hold bool, err error) {
	switch stage {
	case domain.JobStatusParsing:
		detail, err = o.runParsing(ctx, job)
	case domain.JobStatusNormalizing:
		detail, err = o.runNormalizing(ctx, job)
	case domain.JobStatusValidating:
		detail, hold, err = o.runValidating(ctx, job)
	case domain.JobStatusGenerating:
		detail, err = o.runGenerating(ctx, job)
	default:
		err = fmt.Errorf("unknown stage %s", stage)
	}
	return detail, hold, err
}

// Cancel requests cooperative cancellation. Running jobs observe the flag
// at the next stage boundary; jobs held in pm_review fail immediately since
// no worker will visit them again before resume.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	job, err := o.loadJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s already %s", ErrInvalidInput, jobID, job.Status)
	}

	ok, err := o.jobs.RequestCancel(ctx, jobID)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: job %s already finished", ErrInvalidInput, jobID)
	}

	if job.Status == domain.JobStatusPMReview {
		job.CancelRequested = true
		if _, err := o.failJob(ctx, job, fmt.Errorf("cancelled")); err != nil {
			return err
		}
	}
	logger.CtxInfo(logger.SetJobID(ctx, jobID), "cancellation requested")
	return nil
}

// ResumeAfterReview applies review decisions and moves the job from
// pm_review to generating, running the rest of the pipeline synchronously.
// Returns ErrReviewIncomplete while any review item is still pending.
func (o *Orchestrator) ResumeAfterReview(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := o.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusPMReview {
		return nil, fmt.Errorf("%w: job %s is %s, not pm_review", ErrInvalidInput, jobID, job.Status)
	}
	if job.CancelRequested {
		return o.failJob(ctx, job, fmt.Errorf("cancelled"))
	}

	pending, err := o.reviews.PendingCount(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("count pending reviews: %w", err)
	}
	if pending > 0 {
		return nil, fmt.Errorf("%w: %d items still pending", ErrReviewIncomplete, pending)
	}

	if err := o.applyDecisions(ctx, jobID); err != nil {
		return o.failJob(ctx, job, fmt.Errorf("apply review decisions: %w", err))
	}

	job.Status = domain.JobStatusGenerating
	job.CurrentStage = domain.JobStatusGenerating
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist resume: %w", err)
	}
	logger.CtxInfo(logger.SetJobID(ctx, jobID), "review complete, resuming pipeline")

	if err := o.Run(ctx, jobID); err != nil {
		return nil, err
	}
	return o.loadJob(ctx, jobID)
}

// applyDecisions folds resolved review items back into the candidate set:
// rejected candidates are removed, modified ones get their fields merged,
// approved ones are marked approved.
func (o *Orchestrator) applyDecisions(ctx context.Context, jobID string) error {
	items, err := o.reviews.ListByJob(ctx, jobID)
	if err != nil {
		return err
	}

	var rejected, approved []string
	for _, item := range items {
		switch item.Decision {
		case domain.DecisionRejected:
			rejected = append(rejected, item.RequirementID)
		case domain.DecisionApproved:
			approved = append(approved, item.RequirementID)
		case domain.DecisionModified:
			if err := o.applyModification(ctx, &item); err != nil {
				return err
			}
			approved = append(approved, item.RequirementID)
		}
	}

	if len(rejected) > 0 {
		if err := o.candidates.DeleteByIDs(ctx, rejected); err != nil {
			return err
		}
	}
	if len(approved) > 0 {
		if err := o.candidates.MarkApproved(ctx, approved); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) applyModification(ctx context.Context, item *domain.ReviewItem) error {
	c, err := o.candidates.GetByID(ctx, item.RequirementID)
	if err != nil {
		return err
	}
	for field, value := range item.ModifiedFields {
		switch field {
		case "title":
			if s, ok := value.(string); ok {
				c.Title = s
			}
		case "description":
			if s, ok := value.(string); ok {
				c.Description = s
			}
		case "kind":
			if s, ok := value.(string); ok {
				c.Kind = domain.RequirementKind(s)
			}
		case "priority":
			if s, ok := value.(string); ok {
				c.Priority = domain.Priority(s)
			}
		case "user_story":
			if s, ok := value.(string); ok {
				c.UserStory = s
			}
		case "acceptance_criteria":
			if list, ok := value.([]interface{}); ok {
				criteria := make(domain.StringArray, 0, len(list))
				for _, v := range list {
					if s, ok := v.(string); ok {
						criteria = append(criteria, s)
					}
				}
				c.AcceptanceCriteria = criteria
			}
		}
	}
	return o.candidates.Update(ctx, c)
}

// Status returns the externally visible snapshot of a job.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*domain.JobSnapshot, error) {
	job, err := o.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.JobSnapshot{
		JobID:        job.ID,
		Status:       job.Status,
		CurrentStage: job.CurrentStage,
		Progress:     job.Progress(),
		Documents:    job.InputFilenames,
		PRDID:        job.PRDID,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}

	if job.Status == domain.JobStatusPMReview {
		pending, err := o.reviews.PendingCount(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("count pending reviews: %w", err)
		}
		resolved, err := o.reviews.ResolvedCount(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("count resolved reviews: %w", err)
		}
		snapshot.PendingReviews = int(pending)
		snapshot.ResolvedReviews = int(resolved)
	}
	return snapshot, nil
}

// ListJobs returns jobs newest first, optionally filtered by status.
func (o *Orchestrator) ListJobs(ctx context.Context, offset, limit int, status domain.JobStatus) ([]domain.Job, error) {
	return o.jobs.List(ctx, offset, limit, status)
}

func (o *Orchestrator) loadJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	return job, nil
}

func (o *Orchestrator) failJob(ctx context.Context, job *domain.Job, cause error) (*domain.Job, error) {
	job.Status = domain.JobStatusFailed
	job.Error = cause.Error()
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("persist failure: %w", err)
	}
	return job, nil
}

// ---- stages ----

type parseOutcome struct {
	docID    string
	filename string
	err      error
	chars    int
}

// runParsing extracts text from every input document and stores the parsed
// artifacts next to the job. Documents are processed by a small worker pool;
// any single failure fails the job, partial results are not kept secret from
// the stage detail.
func (o *Orchestrator) runParsing(ctx context.Context, job *domain.Job) (map[string]interface{}, error) {
	docs, err := o.documents.GetByIDs(ctx, job.InputRefs)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) != len(job.InputRefs) {
		return nil, fmt.Errorf("input document vanished from store")
	}

	jobs := make(chan domain.InputDocument, len(docs))
	results := make(chan parseOutcome, len(docs))

	var wg sync.WaitGroup
	for i := 0; i < o.parseWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				results <- o.parseDocument(ctx, job.ID, doc)
			}
		}()
	}
	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)
	wg.Wait()
	close(results)

	totalChars := 0
	for outcome := range results {
		if outcome.err != nil {
			return nil, fmt.Errorf("parse %s: %w", outcome.filename, outcome.err)
		}
		totalChars += outcome.chars
	}

	return map[string]interface{}{
		"documents": len(docs),
		"chars":     totalChars,
	}, nil
}

func (o *Orchestrator) parseDocument(ctx context.Context, jobID string, doc domain.InputDocument) parseOutcome {
	outcome := parseOutcome{docID: doc.ID, filename: doc.Filename}

	reader, err := o.objects.Download(ctx, doc.StorageKey)
	if err != nil {
		outcome.err = fmt.Errorf("download: %w", err)
		return outcome
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		outcome.err = fmt.Errorf("read: %w", err)
		return outcome
	}

	parsed, err := o.registry.Extract(ctx, doc.Kind, data, doc.Filename)
	if err != nil {
		outcome.err = err
		return outcome
	}

	key := parsedKey(jobID, doc.ID)
	body := []byte(parsed.Text)
	if err := o.objects.Upload(ctx, key, bytes.NewReader(body), int64(len(body)), "text/markdown"); err != nil {
		outcome.err = fmt.Errorf("store parsed text: %w", err)
		return outcome
	}

	outcome.chars = len(parsed.Text)
	return outcome
}

// runNormalizing merges the parsed artifacts into one corpus and runs
// requirement extraction per document. Candidates keep their source
// document so reviewers can trace every requirement back.
func (o *Orchestrator) runNormalizing(ctx context.Context, job *domain.Job) (map[string]interface{}, error) {
	docs, err := o.documents.GetByIDs(ctx, job.InputRefs)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	var corpus strings.Builder
	var candidates []domain.RequirementCandidate
	now := time.Now()

	for _, doc := range docs {
		text, err := o.readParsed(ctx, job.ID, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("read parsed %s: %w", doc.Filename, err)
		}

		fmt.Fprintf(&corpus, "## Source: %s\n\n%s\n\n", doc.Filename, text)

		extracted, err := o.extractor.ExtractRequirements(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("extract requirements from %s: %w", doc.Filename, err)
		}
		for _, r := range extracted {
			candidates = append(candidates, domain.RequirementCandidate{
				ID:                 uuid.New().String(),
				JobID:              job.ID,
				Kind:               domain.RequirementKind(r.Kind),
				Title:              r.Title,
				Description:        r.Description,
				AcceptanceCriteria: domain.StringArray(r.AcceptanceCriteria),
				Priority:           domain.Priority(r.Priority),
				Confidence:         r.Confidence,
				ConfidenceReason:   r.ConfidenceReason,
				SourceDocumentID:   doc.ID,
				SourceExcerpt:      r.SourceExcerpt,
				ConflictsWith:      domain.StringArray(r.ConflictsWith),
				MissingInfo:        domain.StringArray(r.MissingInfo),
				Ambiguous:          r.Ambiguous,
				CreatedAt:          now,
			})
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no requirements found in any input document")
	}

	body := []byte(corpus.String())
	if err := o.objects.Upload(ctx, normalizedKey(job.ID), bytes.NewReader(body), int64(len(body)), "text/markdown"); err != nil {
		return nil, fmt.Errorf("store normalized corpus: %w", err)
	}

	if err := o.candidates.CreateBatch(ctx, candidates); err != nil {
		return nil, fmt.Errorf("persist candidates: %w", err)
	}

	return map[string]interface{}{
		"candidates": len(candidates),
	}, nil
}

// runValidating runs the quality gate. A non-empty review set holds the
// job in pm_review when review is enabled; with review disabled flagged
// candidates are simply left unapproved.
func (o *Orchestrator) runValidating(ctx context.Context, job *domain.Job) (map[string]interface{}, bool, error) {
	candidates, err := o.candidates.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, false, fmt.Errorf("load candidates: %w", err)
	}

	result := o.gate.Evaluate(job.ID, candidates)

	if len(result.ApprovedIDs) > 0 {
		if err := o.candidates.MarkApproved(ctx, result.ApprovedIDs); err != nil {
			return nil, false, fmt.Errorf("approve candidates: %w", err)
		}
	}

	detail := map[string]interface{}{
		"approved": len(result.ApprovedIDs),
		"flagged":  len(result.ReviewItems),
	}

	if len(result.ReviewItems) == 0 {
		return detail, false, nil
	}
	if !o.reviewEnabled {
		logger.CtxWarn(ctx, "review disabled, %d flagged candidates proceed unapproved", len(result.ReviewItems))
		return detail, false, nil
	}

	if err := o.reviews.CreateBatch(ctx, result.ReviewItems); err != nil {
		return nil, false, fmt.Errorf("persist review items: %w", err)
	}
	return detail, true, nil
}

// runGenerating builds the PRD from approved candidates and links it to
// the job. Similarity indexing is best effort.
func (o *Orchestrator) runGenerating(ctx context.Context, job *domain.Job) (map[string]interface{}, error) {
	approved, err := o.candidates.ListApprovedByJob(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("load approved candidates: %w", err)
	}
	if len(approved) == 0 {
		return nil, fmt.Errorf("no approved requirements to generate from")
	}

	prd, err := o.generator.GeneratePRD(ctx, job, approved)
	if err != nil {
		return nil, err
	}
	job.PRDID = &prd.ID

	if o.indexer != nil {
		if err := o.indexer.IndexRequirements(ctx, job.ID, prd.ID, approved); err != nil {
			logger.CtxWarn(ctx, "similarity indexing failed: %v", err)
		}
	}

	return map[string]interface{}{
		"prd_id":       prd.ID,
		"requirements": len(approved),
	}, nil
}

func (o *Orchestrator) readParsed(ctx context.Context, jobID, docID string) (string, error) {
	reader, err := o.objects.Download(ctx, parsedKey(jobID, docID))
	if err != nil {
		return "", err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func parsedKey(jobID, docID string) string {
	return fmt.Sprintf("jobs/%s/parsed/%s.md", jobID, docID)
}

func normalizedKey(jobID string) string {
	return fmt.Sprintf("jobs/%s/normalized.md", jobID)
}
