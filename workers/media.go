package workers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"atlas_scraper/models"
)

// S3Uploader is the slice of the storage uploader this worker needs.
type S3Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string) error
	PublicURL(key string) string
}

type imageJob struct {
	platform models.Platform
	urls     []string
}

// ImageArchiver downloads listing photos off the request path, hashes them
// and stores them content-addressed in S3. Jobs are dropped when the queue is
// full; archiving is best-effort.
type ImageArchiver struct {
	httpClient *http.Client
	uploader   S3Uploader
	log        *logrus.Logger
	jobs       chan imageJob
	done       chan struct{}
}

func NewImageArchiver(httpClient *http.Client, uploader S3Uploader, log *logrus.Logger) *ImageArchiver {
	return &ImageArchiver{
		httpClient: httpClient,
		uploader:   uploader,
		log:        log,
		jobs:       make(chan imageJob, 64),
		done:       make(chan struct{}),
	}
}

// Archive queues a listing's images. Never blocks the caller.
func (w *ImageArchiver) Archive(platform models.Platform, urls []string) {
	select {
	case w.jobs <- imageJob{platform: platform, urls: urls}:
	default:
		w.log.Warn("image archive queue full, dropping job")
	}
}

// Run processes queued jobs until ctx is done.
func (w *ImageArchiver) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("image archiver stopping")
			return
		case job := <-w.jobs:
			w.processJob(ctx, job)
		}
	}
}

// Wait blocks until Run has exited.
func (w *ImageArchiver) Wait() {
	<-w.done
}

func (w *ImageArchiver) processJob(ctx context.Context, job imageJob) {
	uploaded := 0
	for _, url := range job.urls {
		if ctx.Err() != nil {
			return
		}

		key, err := w.processOne(ctx, job.platform, url)
		if err != nil {
			w.log.WithError(err).WithField("url", url).Debug("image archive failed")
			continue
		}
		uploaded++
		w.log.WithFields(logrus.Fields{
			"url":      url,
			"location": w.uploader.PublicURL(key),
		}).Debug("image archived")

		// gentle pacing between downloads
		select {
		case <-ctx.Done():
			return
		case <-time.After(200 * time.Millisecond):
		}
	}

	if uploaded > 0 {
		w.log.WithFields(logrus.Fields{
			"platform": job.platform,
			"uploaded": uploaded,
			"total":    len(job.urls),
		}).Info("listing images archived")
	}
}

func (w *ImageArchiver) processOne(ctx context.Context, platform models.Platform, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "image/*,*/*")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])
	ext := guessExtension(url, resp.Header.Get("Content-Type"))
	key := fmt.Sprintf("images/%s/%s/%s%s", platform, contentHash[:2], contentHash, ext)

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	if err := w.uploader.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return key, nil
}

func guessExtension(url, contentType string) string {
	ext := strings.ToLower(path.Ext(url))
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if isImageExt(ext) {
		return ext
	}

	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
