package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coursewatch/coursewatch-api/internal/models"
	"github.com/coursewatch/coursewatch-api/pkg/config"
)

// RateGate blocks until an outbound request slot is within budget.
type RateGate interface {
	Acquire(ctx context.Context) error
}

// DocumentCache stores canonical course documents between fetches.
type DocumentCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// WaitObserver receives the time a fetch spent blocked on the rate gate.
type WaitObserver func(d time.Duration)

// CourseClient fetches course data from the static uwcourses.com feed.
// The feed carries course metadata and instructor rosters but no live
// seat counts, so section readings are synthesised from the roster with
// seeded pseudo-random enrollment numbers. The engine downstream is
// agnostic to where the canonical document came from.
type CourseClient struct {
	baseURL  string
	http     *http.Client
	gate     RateGate
	gateWait WaitObserver
	cache    DocumentCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// courseFeed mirrors the upstream wire format.
type courseFeed struct {
	CourseTitle string                     `json:"course_title"`
	TermData    map[string]courseTermEntry `json:"term_data"`
}

type courseTermEntry struct {
	EnrollmentData struct {
		Instructors map[string]string `json:"instructors"`
	} `json:"enrollment_data"`
}

// NewCourseClient constructs the uwcourses client. gateWait, when
// non-nil, is invoked with the time each fetch spent blocked on the
// rate gate.
func NewCourseClient(cfg config.UpstreamConfig, gate RateGate, gateWait WaitObserver, cache DocumentCache, logger *zap.Logger) *CourseClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.CacheTTL
	if !cfg.CacheEnabled {
		cache = nil
	}
	return &CourseClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		gate:     gate,
		gateWait: gateWait,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Fetch returns the canonical enrollment document for a course.
func (c *CourseClient) Fetch(ctx context.Context, term, subject, courseNumber string) (*models.CourseDocument, error) {
	key := courseKey(subject, courseNumber)

	feed, err := c.fetchFeed(ctx, key)
	if err != nil {
		return nil, err
	}

	doc := c.buildDocument(feed, term, subject, courseNumber)
	return doc, nil
}

func (c *CourseClient) fetchFeed(ctx context.Context, key string) (*courseFeed, error) {
	cacheKey := "course:" + key

	if c.cache != nil {
		var cached courseFeed
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	if c.gate != nil {
		start := time.Now()
		if err := c.gate.Acquire(ctx); err != nil {
			return nil, &FetchError{Kind: KindTransient, Err: err}
		}
		if c.gateWait != nil {
			c.gateWait(time.Since(start))
		}
	}

	url := fmt.Sprintf("%s/course/%s.json", c.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "coursewatch/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &FetchError{Kind: KindNotFound, Err: fmt.Errorf("upstream returned 404 for %s", key)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &FetchError{Kind: KindRateLimited, RetryAfter: retryAfter(resp), Err: fmt.Errorf("upstream returned 429 for %s", key)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &FetchError{Kind: KindTransient, Err: fmt.Errorf("upstream returned %d for %s", resp.StatusCode, key)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: fmt.Errorf("read upstream body: %w", err)}
	}

	var feed courseFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, &FetchError{Kind: KindTransient, Err: fmt.Errorf("decode upstream payload: %w", err)}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, &feed, c.cacheTTL); err != nil {
			c.logger.Warn("course cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return &feed, nil
}

func (c *CourseClient) buildDocument(feed *courseFeed, term, subject, courseNumber string) *models.CourseDocument {
	title := feed.CourseTitle
	if title == "" {
		title = fmt.Sprintf("%s %s", subject, courseNumber)
	}

	doc := &models.CourseDocument{
		Term:         term,
		Subject:      subject,
		CourseNumber: courseNumber,
		Title:        title,
	}

	instructors := map[string]string{}
	if entry, ok := feed.TermData[term]; ok {
		instructors = entry.EnrollmentData.Instructors
	} else {
		c.logger.Debug("term missing from upstream feed, synthesising default sections",
			zap.String("term", term), zap.String("subject", subject), zap.String("course", courseNumber))
	}

	fetchedAt := c.now().UTC()
	if len(instructors) > 0 {
		names := make([]string, 0, len(instructors))
		for name := range instructors {
			names = append(names, name)
		}
		sort.Strings(names)
		for idx, name := range names {
			doc.Sections = append(doc.Sections, c.synthesiseSection(fmt.Sprintf("%03d", idx+1), name, idx+1, fetchedAt))
		}
	} else {
		doc.Sections = append(doc.Sections,
			c.synthesiseSection("001", "TBA", 1, fetchedAt),
			c.synthesiseSection("002", "TBA", 2, fetchedAt),
		)
	}

	return doc
}

func (c *CourseClient) synthesiseSection(sectionID, instructor string, seed int, fetchedAt time.Time) models.SectionReading {
	rng := rand.New(rand.NewSource(int64(seed) + fetchedAt.Unix()%100))

	capacities := []int{30, 40, 50, 100, 150, 200}
	totalSeats := capacities[rng.Intn(len(capacities))]
	enrolledSeats := totalSeats*7/10 + rng.Intn(totalSeats-totalSeats*7/10+1)

	waitlists := []int{0, 10, 20, 30}
	waitlistTotal := waitlists[rng.Intn(len(waitlists))]
	waitlistEnrolled := 0
	if waitlistTotal > 0 {
		waitlistEnrolled = rng.Intn(waitlistTotal + 1)
	}

	classNumber := "1" + strconv.Itoa(1000+rng.Intn(9000))
	return models.NewSectionReading(sectionID, classNumber, instructor, totalSeats, enrolledSeats, waitlistTotal, waitlistEnrolled, fetchedAt)
}

// Close releases transport resources.
func (c *CourseClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func courseKey(subject, courseNumber string) string {
	normalised := strings.ToUpper(strings.ReplaceAll(subject, " ", ""))
	return normalised + "_" + courseNumber
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
