// Package hub downloads model artifacts from a Hugging Face style hub into a
// local cache, reporting per-file progress.
package hub

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/whisper-llama/types"
)

// DefaultURL is the public Hugging Face hub.
const DefaultURL = "https://huggingface.co"

// Fetcher mirrors model files into CacheDir/<model id>/<file>.
type Fetcher struct {
	baseURL  string
	cacheDir string
	client   *http.Client
	log      *slog.Logger
}

func NewFetcher(baseURL, cacheDir string, client *http.Client, log *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		client:   client,
		log:      log,
	}
}

// Dir returns the cache directory holding a model's files.
func (f *Fetcher) Dir(modelID string) string {
	return filepath.Join(f.cacheDir, filepath.FromSlash(modelID))
}

// Fetch makes sure every file of modelID is cached. Files already on disk are
// reported done without touching the network.
func (f *Fetcher) Fetch(ctx context.Context, modelID string, files []string, progress func(types.DownloadProgress)) error {
	if progress == nil {
		progress = func(types.DownloadProgress) {}
	}
	for _, file := range files {
		if err := f.fetchFile(ctx, modelID, file, progress); err != nil {
			return errors.Wrapf(err, "fetch %s/%s", modelID, file)
		}
	}
	return nil
}

func (f *Fetcher) fetchFile(ctx context.Context, modelID, file string, progress func(types.DownloadProgress)) error {
	progress(types.DownloadProgress{Status: types.StatusInitializing, File: file})

	dest := filepath.Join(f.Dir(modelID), filepath.FromSlash(file))
	if info, err := os.Stat(dest); err == nil {
		f.log.Debug("using cached model file", slog.String("file", dest))
		progress(types.DownloadProgress{
			Status: types.StatusDone, File: file,
			Loaded: info.Size(), Total: info.Size(), Progress: 100,
		})
		return nil
	}

	url := f.baseURL + "/" + modelID + "/resolve/main/" + file
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "download")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download: HTTP %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "create cache directory")
	}
	part := dest + ".part"
	out, err := os.Create(part)
	if err != nil {
		return errors.Wrap(err, "create file")
	}

	pw := &progressWriter{file: file, total: resp.ContentLength, report: progress}
	if _, err := io.Copy(out, io.TeeReader(resp.Body, pw)); err != nil {
		out.Close()
		os.Remove(part)
		return errors.Wrap(err, "write file")
	}
	if err := out.Close(); err != nil {
		os.Remove(part)
		return errors.Wrap(err, "close file")
	}
	if err := os.Rename(part, dest); err != nil {
		return errors.Wrap(err, "move file into cache")
	}

	f.log.Info("model file downloaded", slog.String("file", dest), slog.Int64("bytes", pw.loaded))
	total := pw.total
	if total <= 0 {
		total = pw.loaded
	}
	progress(types.DownloadProgress{
		Status: types.StatusDone, File: file,
		Loaded: pw.loaded, Total: total, Progress: 100,
	})
	return nil
}

// progressWriter reports whenever the whole-percent value moves forward.
type progressWriter struct {
	file    string
	total   int64
	loaded  int64
	percent int
	report  func(types.DownloadProgress)
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	pw.loaded += int64(len(p))
	if pw.total <= 0 {
		return len(p), nil
	}
	pct := int(pw.loaded * 100 / pw.total)
	if pct > pw.percent || pw.loaded == int64(len(p)) {
		pw.percent = pct
		pw.report(types.DownloadProgress{
			Status: types.StatusDownloading, File: pw.file,
			Loaded: pw.loaded, Total: pw.total, Progress: float64(pct),
		})
	}
	return len(p), nil
}
