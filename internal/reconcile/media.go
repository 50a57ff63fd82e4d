package reconcile

import (
	"context"
	"log/slog"
	"path"

	"github.com/starford/journalsync/internal/models"
	"github.com/starford/journalsync/internal/setdiff"
	"github.com/starford/journalsync/internal/storage"
)

// syncMedia drops attachments whose image is gone from the document and
// records new images that live in the managed namespace.
func (e *Engine) syncMedia(ctx context.Context, log *slog.Logger, req SaveRequest, urls []string, stats *Stats) {
	base, ok := storage.BaseURL(e.blobs)
	if !ok {
		log.Error("reconcile: storage has no public base URL, skipping media sync")
		return
	}

	existing, err := e.store.GetMediaAttachments(ctx, req.EntryID)
	if err != nil {
		log.Error("reconcile: list attachments failed, skipping media sync", slog.String("error", err.Error()))
		return
	}
	inDoc := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		inDoc[u] = struct{}{}
	}
	for _, a := range existing {
		if _, ok := inDoc[a.FileURLCached]; ok {
			continue
		}
		if a.FilePath != "" {
			if err := e.blobs.Delete(ctx, []string{a.FilePath}); err != nil {
				log.Warn("reconcile: delete stored file failed", slog.String("path", a.FilePath), slog.String("error", err.Error()))
			}
		}
		if err := e.store.DeleteMediaAttachment(ctx, a.ID); err != nil {
			log.Error("reconcile: delete attachment failed", slog.String("attachment_id", a.ID), slog.String("error", err.Error()))
			continue
		}
		stats.AttachmentsDeleted++
	}

	current, err := e.store.GetMediaAttachments(ctx, req.EntryID)
	if err != nil {
		log.Error("reconcile: refetch attachments failed, skipping new images", slog.String("error", err.Error()))
		return
	}
	attached := make([]string, 0, len(current))
	for _, a := range current {
		attached = append(attached, a.FileURLCached)
	}
	fresh, _ := setdiff.Diff(attached, urls)
	for _, u := range fresh {
		rel, ok := storage.RelativePath(base, u)
		if !ok {
			log.Debug("reconcile: image outside managed storage ignored", slog.String("url", u))
			continue
		}
		name := path.Base(rel)
		_, err := e.store.CreateMediaAttachment(ctx, models.MediaAttachment{
			UserID:           req.UserID,
			EntryID:          req.EntryID,
			FilePath:         rel,
			FileURLCached:    u,
			FileNameOriginal: name,
			FileType:         models.FileTypeImage,
			MimeType:         storage.MimeType(name),
			FileSizeBytes:    e.probeSize(ctx, log, u),
		})
		if err != nil {
			log.Error("reconcile: create attachment failed", slog.String("url", u), slog.String("error", err.Error()))
			continue
		}
		stats.AttachmentsCreated++
	}
}

func (e *Engine) probeSize(ctx context.Context, log *slog.Logger, url string) int64 {
	head, err := e.blobs.Head(ctx, url)
	if err != nil {
		log.Warn("reconcile: size probe failed", slog.String("url", url), slog.String("error", err.Error()))
		return models.UnknownFileSize
	}
	if !head.Known {
		log.Warn("reconcile: size probe returned no content length", slog.String("url", url))
		return models.UnknownFileSize
	}
	return head.ContentLength
}
