package tabledata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/aces/bvlfeedback/internal/domain/entities"
	"github.com/aces/bvlfeedback/internal/infrastructure/observability"
)

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 4 << 10

// ProgressFunc receives the cumulative number of body bytes read so far and the
// expected total, or -1 when the server did not send a Content-Length.
type ProgressFunc func(loaded, total int64)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("table data request returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("table data request returned status %d", e.StatusCode)
}

// DecodeError is returned when the response body is not a JSON table document.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode table data: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// HTTPClient fetches table documents over HTTP.
type HTTPClient struct {
	httpClient *http.Client
}

// NewClient creates a table data client. A nil httpClient uses a client with
// no overall timeout; deadlines come from the caller's context.
func NewClient(httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPClient{httpClient: httpClient}
}

// FetchTable issues a GET for endpoint and decodes the Headers/Data document,
// reporting body progress to onProgress as bytes arrive.
func (c *HTTPClient) FetchTable(ctx context.Context, endpoint string, onProgress ProgressFunc) (_ *entities.TableDataset, err error) {
	ctx, span := observability.StartSpan(ctx, "tabledata.fetch")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("http.url", endpoint))
	defer func() { observability.RecordError(span, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	observability.SetSpanAttributes(span, attribute.Int("http.status_code", resp.StatusCode))

	body := &progressReader{r: resp.Body, total: resp.ContentLength, onProgress: onProgress}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var dataset entities.TableDataset
	if err := json.NewDecoder(body).Decode(&dataset); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecodeError{Err: err}
	}

	observability.SetSpanAttributes(span,
		attribute.Int("table.columns", len(dataset.Headers)),
		attribute.Int("table.rows", len(dataset.Data)),
		attribute.Int64("http.response_bytes", body.loaded),
	)
	return &dataset, nil
}

type progressReader struct {
	r          io.Reader
	loaded     int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.loaded, p.total)
		}
	}
	return n, err
}
