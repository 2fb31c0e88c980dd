package clients

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kij-exe/hypr-ledger/internal/domain"
	"github.com/kij-exe/hypr-ledger/pkg/retrier"
)

// DefaultBuilderFillsURL is the root of the published builder fill reports.
const DefaultBuilderFillsURL = "https://stats-data.hyperliquid.xyz/Mainnet/builder_fills"

// BuilderFillsClient downloads daily builder fill reports (lz4 framed CSV).
type BuilderFillsClient struct {
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
	l          *zap.Logger
}

// NewBuilderFillsClient creates a client for reports under baseURL.
func NewBuilderFillsClient(baseURL string, opts HTTPOptions, l *zap.Logger) *BuilderFillsClient {
	if baseURL == "" {
		baseURL = DefaultBuilderFillsURL
	}
	if l == nil {
		l = zap.NewNop()
	}
	opts = opts.withDefaults()
	return &BuilderFillsClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		retrier:    newRetrier(opts, l, "builder_fills"),
		l:          l,
	}
}

// Day downloads the report of builder for date (YYYYMMDD). A report that is
// missing or forbidden yields domain.ErrNotFound. Rows that fail to parse
// are skipped.
func (c *BuilderFillsClient) Day(ctx context.Context, builder string, date string) ([]domain.BuilderFill, error) {
	url := fmt.Sprintf("%s/%s/%s.csv.lz4", c.baseURL, strings.ToLower(builder), date)

	body, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]byte, error) {
		return c.download(ctx, url)
	})
	if err != nil {
		return nil, err
	}

	rows, err := c.decode(body)
	if err != nil {
		return nil, errors.Wrapf(err, "decode builder report %s", date)
	}
	return rows, nil
}

func (c *BuilderFillsClient) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden:
		return nil, domain.ErrNotFound
	default:
		return nil, newStatusError(resp)
	}

	return io.ReadAll(resp.Body)
}

func (c *BuilderFillsClient) decode(body []byte) ([]domain.BuilderFill, error) {
	r := csv.NewReader(lz4.NewReader(bytes.NewReader(body)))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return []domain.BuilderFill{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.BuilderFill, 0, 256)
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read row")
		}
		if len(rec) < len(header) {
			skipped++
			continue
		}

		f, err := domain.NewBuilderFill(
			rec[cols[0]], rec[cols[1]], rec[cols[2]], rec[cols[3]],
			rec[cols[4]], rec[cols[5]], rec[cols[6]], rec[cols[7]],
		)
		if err != nil {
			skipped++
			c.l.Debug("skipping malformed builder row", zap.Error(err))
			continue
		}
		rows = append(rows, f)
	}

	if skipped > 0 {
		c.l.Warn("skipped malformed builder rows", zap.Int("skipped", skipped), zap.Int("rows", len(rows)))
	}

	return rows, nil
}

// columnIndex maps domain.BuilderFillColumns onto header positions.
func columnIndex(header []string) ([]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	cols := make([]int, len(domain.BuilderFillColumns))
	for i, name := range domain.BuilderFillColumns {
		p, ok := pos[name]
		if !ok {
			return nil, errors.Wrapf(domain.ErrMalformedRecord, "builder report has no %q column", name)
		}
		cols[i] = p
	}
	return cols, nil
}
