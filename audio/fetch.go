package audio

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// ErrTooLarge is returned when a download exceeds the size limit.
var ErrTooLarge = errors.New("audio file too large")

// ProgressFunc receives the downloaded fraction in [0, 1].
type ProgressFunc func(fraction float64)

// Fetch downloads an audio file of at most limit bytes, reporting progress
// when the server sends a content length. A limit <= 0 means no limit. The
// returned mime type is normalized.
func Fetch(ctx context.Context, client *http.Client, url string, limit int64, progress ProgressFunc) ([]byte, string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", errors.Wrap(err, "download audio")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", errors.Errorf("download audio: HTTP %d", resp.StatusCode)
	}

	if limit > 0 && resp.ContentLength > limit {
		return nil, "", errors.Wrapf(ErrTooLarge, "%d bytes, limit %d", resp.ContentLength, limit)
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	pr := &progressReader{r: body, total: resp.ContentLength, fn: progress}
	data, err := io.ReadAll(pr)
	if err != nil {
		return nil, "", errors.Wrap(err, "read audio")
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, "", errors.Wrapf(ErrTooLarge, "limit %d", limit)
	}
	if progress != nil {
		progress(1)
	}
	return data, NormalizeMimeType(resp.Header.Get("Content-Type")), nil
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.fn != nil && p.total > 0 && n > 0 {
		p.fn(float64(p.read) / float64(p.total))
	}
	return n, err
}
