// internal/catalog/photos.go
package catalog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bookstudio/internal/blob"
	"bookstudio/internal/ctxlog"
)

// photoExt maps the accepted photo media types to object key extensions.
var photoExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func photoPrefix(id int64) string {
	return "authors/" + strconv.FormatInt(id, 10) + "/"
}

// SetAuthorPhoto stores body as the author's photo and points the author at
// it through a regular whole-record update.
func (s *service) SetAuthorPhoto(ctx context.Context, id int64, contentType string, body io.Reader) (AuthorInfo, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.set_author_photo",
		trace.WithAttributes(attribute.Int64("id", id), attribute.String("content_type", contentType)))
	defer span.End()

	if s.blobs == nil {
		return AuthorInfo{}, ErrPhotosDisabled
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	ext, ok := photoExt[mediaType]
	if err != nil || !ok {
		return AuthorInfo{}, &ValidationError{Kind: KindAuthor, Errors: map[string]string{
			"photo": "must be a jpeg, png, webp or gif image",
		}}
	}

	data := bufio.NewReader(body)
	if _, err := data.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return AuthorInfo{}, &ValidationError{Kind: KindAuthor, Errors: map[string]string{
				"photo": "must not be empty",
			}}
		}
		return AuthorInfo{}, fmt.Errorf("read photo: %w", err)
	}

	author, err := s.store.Authors().Get(ctx, id)
	if err != nil {
		return AuthorInfo{}, fmt.Errorf("author %d: %w", id, err)
	}

	key := photoPrefix(id) + uuid.NewString() + ext
	if _, err := s.blobs.Put(ctx, key, data, blob.PutOptions{
		ContentType: mediaType,
		Metadata:    map[string]string{"author_id": strconv.FormatInt(id, 10)},
	}); err != nil {
		span.RecordError(err)
		return AuthorInfo{}, fmt.Errorf("store photo: %w", err)
	}

	author.PhotoURL = key
	info, err := s.authors.Update(ctx, id, author)
	if err != nil {
		if _, derr := s.blobs.Delete(ctx, key); derr != nil {
			ctxlog.FromContext(ctx).Warn("remove orphaned photo", "key", key, "error", derr)
		}
		return AuthorInfo{}, err
	}
	return info, nil
}

// dropReplacedPhoto deletes the stored photo an author update stopped
// pointing at. References outside the author's prefix are left alone.
func (s *service) dropReplacedPhoto(ctx context.Context, prev, next Author) {
	if s.blobs == nil || prev.PhotoURL == next.PhotoURL || !strings.HasPrefix(prev.PhotoURL, photoPrefix(prev.ID)) {
		return
	}
	if _, err := s.blobs.Delete(ctx, prev.PhotoURL); err != nil {
		ctxlog.FromContext(ctx).Warn("remove replaced photo", "key", prev.PhotoURL, "error", err)
	}
}

// AuthorPhoto opens the stored photo of an author. An author without a photo
// is reported as not found.
func (s *service) AuthorPhoto(ctx context.Context, id int64) (blob.Info, io.ReadCloser, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.author_photo", trace.WithAttributes(attribute.Int64("id", id)))
	defer span.End()

	if s.blobs == nil {
		return blob.Info{}, nil, ErrPhotosDisabled
	}
	author, err := s.store.Authors().Get(ctx, id)
	if err != nil {
		return blob.Info{}, nil, fmt.Errorf("author %d: %w", id, err)
	}
	if author.PhotoURL == "" {
		return blob.Info{}, nil, fmt.Errorf("author %d photo: %w", id, ErrNotFound)
	}
	info, rc, err := s.blobs.Get(ctx, author.PhotoURL)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, fmt.Errorf("author %d photo: %w", id, ErrNotFound)
	}
	if err != nil {
		return blob.Info{}, nil, err
	}
	return info, rc, nil
}
