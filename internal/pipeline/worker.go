package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lzbgt/saint-cai-crawler/internal/chapter"
	"github.com/lzbgt/saint-cai-crawler/internal/finalize"
	"github.com/lzbgt/saint-cai-crawler/internal/imagestore"
	"github.com/lzbgt/saint-cai-crawler/internal/mathfmt"
	"github.com/lzbgt/saint-cai-crawler/internal/parser"
	"github.com/lzbgt/saint-cai-crawler/internal/render"
)

// Worker processes a single chapter job.
type Worker struct {
	images *imagestore.Client
	log    *slog.Logger
}

// NewWorker creates a worker. images may be nil, in which case jobs that
// request remote image resolution fall back to their inline mapping.
func NewWorker(images *imagestore.Client, log *slog.Logger) *Worker {
	return &Worker{
		images: images,
		log:    log,
	}
}

// Process runs the full parse pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "chapter_id", job.ChapterID)

	markup, imageFiles, resolveImages := job.Input()

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	ch, err := parser.Parse(markup, job.ChapterID)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	questions := 0
	for _, sec := range ch.Sections {
		for _, item := range sec.Items {
			if _, ok := item.(*chapter.QAItem); ok {
				questions++
			}
		}
	}
	job.SetCounts(len(ch.Sections), questions, len(ch.Images))
	log.Info("parsed chapter", "sections", len(ch.Sections), "questions", questions, "images", len(ch.Images))

	// Phase 2: Normalize math and markup.
	job.SetStatus(StatusNormalizing, "normalizing")
	mathfmt.Apply(ch)

	// Phase 3: Finalize questions.
	job.SetStatus(StatusFinalizing, "finalizing")
	for _, warning := range finalize.Apply(ch) {
		log.Warn("finalize warning", "warning", warning)
		job.AddError(warning)
	}

	// Phase 4: Resolve image URLs to local files.
	job.SetStatus(StatusResolving, "resolving_images")
	files := make(map[string]string, len(imageFiles))
	for url, file := range imageFiles {
		files[url] = file
	}
	if resolveImages && w.images != nil {
		var missing []string
		for _, img := range ch.Images {
			if files[img.URL] == "" {
				missing = append(missing, img.URL)
			}
		}
		if len(missing) > 0 {
			resolved, err := w.resolveWithRetry(ctx, log, job.ChapterID, missing)
			if err != nil {
				// Unresolved images degrade to placeholders in the output,
				// so a resolution failure is recorded but not fatal.
				log.Error("image resolution failed", "urls", len(missing), "error", err)
				job.AddError(fmt.Sprintf("resolve images: %s", err))
			}
			for url, file := range resolved {
				if files[url] == "" {
					files[url] = file
				}
			}
		}
	}
	resolvedCount := 0
	for _, img := range ch.Images {
		if files[img.URL] != "" {
			resolvedCount++
		}
	}
	job.SetImagesResolved(resolvedCount)

	finalize.AttachImages(ch, files)
	log.Info("images resolved", "resolved", resolvedCount, "total", len(ch.Images))

	// Phase 5: Render markdown.
	job.SetStatus(StatusRendering, "rendering")
	markdown := render.Markdown(ch)

	job.SetResult(ch, markdown)
	job.SetStatus(StatusCompleted, "done")
	log.Info("chapter complete", "markdown_bytes", len(markdown))
}

// resolveWithRetry asks the image store for the URL→file mapping, retrying
// transient failures with backoff.
func (w *Worker) resolveWithRetry(ctx context.Context, log *slog.Logger, chapterID string, urls []string) (map[string]string, error) {
	var files map[string]string
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		files, lastErr = w.images.Resolve(ctx, chapterID, urls)
		if lastErr == nil || !IsRetryable(lastErr) {
			break
		}
		log.Warn("retryable image store error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return files, nil
}
