package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"sensorita-alert/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrMalformedResponse is wrapped by every failure to interpret the site payload.
var ErrMalformedResponse = errors.New("malformed measurement response")

const (
	sitePath = "/get-site"

	// The API stamps readings as "2006-01-02 15:04:05 +1". The suffix is
	// constant and the wall-clock value is UTC.
	apiTimeLayout = "2006-01-02 15:04:05"
	apiTimeSuffix = " +1"
)

// Options selects the site and lookback window of the measurement request
type Options struct {
	BaseURL      string
	SiteID       string
	StartTimeAgo string
	GetPhotos    bool
	Timeout      time.Duration
}

// Fetcher measurement API client
type Fetcher struct {
	httpClient *resty.Client
	opts       Options
	logger     *zap.Logger
}

// New creates a fetcher. Requests are never retried.
func New(opts Options, logger *zap.Logger) *Fetcher {
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Fetcher{
		httpClient: client,
		opts:       opts,
		logger:     logger,
	}
}

// Fetch requests the site measurements and flattens them into readings sorted by time.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.Reading, error) {
	resp, err := f.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"site_id":        f.opts.SiteID,
			"start_time_ago": f.opts.StartTimeAgo,
			"get_photos":     strconv.FormatBool(f.opts.GetPhotos),
		}).
		Get(sitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to call measurement API: %w", err)
	}

	if resp.IsError() {
		f.logger.Error("Measurement API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("site_id", f.opts.SiteID),
		)
		return nil, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode())
	}

	readings, err := ParseSite(resp.Body())
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Measurements fetched",
		zap.String("site_id", f.opts.SiteID),
		zap.Int("reading_count", len(readings)),
		zap.Duration("latency", resp.Time()),
	)

	return readings, nil
}

type sitePayload struct {
	Containers *[]containerPayload `json:"containers"`
}

type containerPayload struct {
	SensorID    *flexibleID         `json:"sensor_id"`
	ContainerID *flexibleID         `json:"container_id"`
	Fill        *map[string]float64 `json:"fill"`
}

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*id = flexibleID(t)
	case json.Number:
		*id = flexibleID(t.String())
	default:
		return fmt.Errorf("id must be a string or number, got %s", string(b))
	}
	return nil
}

// ParseSite flattens a get-site response body into readings sorted by time.
func ParseSite(body []byte) ([]models.Reading, error) {
	var payload sitePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Containers == nil {
		return nil, fmt.Errorf("%w: missing \"containers\"", ErrMalformedResponse)
	}

	readings := make([]models.Reading, 0)
	for i, c := range *payload.Containers {
		switch {
		case c.SensorID == nil:
			return nil, fmt.Errorf("%w: container %d: missing \"sensor_id\"", ErrMalformedResponse, i)
		case c.ContainerID == nil:
			return nil, fmt.Errorf("%w: container %d: missing \"container_id\"", ErrMalformedResponse, i)
		case c.Fill == nil:
			return nil, fmt.Errorf("%w: container %d: missing \"fill\"", ErrMalformedResponse, i)
		}

		stamps := make([]string, 0, len(*c.Fill))
		for stamp := range *c.Fill {
			stamps = append(stamps, stamp)
		}
		sort.Strings(stamps)

		for _, stamp := range stamps {
			ts, err := ParseTimestamp(stamp)
			if err != nil {
				return nil, fmt.Errorf("container %d: %w", i, err)
			}
			readings = append(readings, models.Reading{
				SensorID:    string(*c.SensorID),
				ContainerID: string(*c.ContainerID),
				Time:        ts,
				FillLevel:   (*c.Fill)[stamp],
			})
		}
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Time.Before(readings[j].Time)
	})

	return readings, nil
}

// ParseTimestamp parses an API fill timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	raw, ok := strings.CutSuffix(s, apiTimeSuffix)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: timestamp %q lacks %q suffix", ErrMalformedResponse, s, apiTimeSuffix)
	}
	ts, err := time.ParseInLocation(apiTimeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedResponse, s, err)
	}
	return ts, nil
}
