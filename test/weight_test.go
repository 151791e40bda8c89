//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/weightcontrol/internal/middleware"
	"github.com/2beens/weightcontrol/internal/weight"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) doRequest(ctx context.Context, method, path, body string, withToken bool) (*http.Response, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		req.Header.Set(middleware.AuthTokenHeader, testAPIToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBody
}

func (s *IntegrationTestSuite) TestAddEntry() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := s.T()

	entry := `{"date":"2025-01-12","weight":87.5,"food":4,"exercised":true}`
	resp, _ := s.doRequest(ctx, http.MethodPost, "/weight/entries?unit=kgs", entry, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.doRequest(ctx, http.MethodPost, "/weight/entries?unit=kgs", entry, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var addResp weight.AddEntryResponse
	require.NoError(t, json.Unmarshal(body, &addResp))
	assert.Equal(t, "updated", addResp.Result)
	assert.Equal(t, "2025-01-12", addResp.Entry.Date)

	// stored in pounds
	var storedWeight float64
	require.NoError(t, s.DB.QueryRow(ctx, `SELECT weight FROM weight_entry WHERE date = '2025-01-12'`).Scan(&storedWeight))
	assert.InDelta(t, 87.5*weight.LbsPerKg, storedWeight, 1e-6)

	resp, _ = s.doRequest(ctx, http.MethodPost, "/weight/entries", `{"date":"2025-01-03","weight":150,"food":1,"exercised":false}`, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var count int
	require.NoError(t, s.DB.QueryRow(ctx, `SELECT count(*) FROM weight_entry`).Scan(&count))
	assert.Equal(t, 11, count)

	// reload picks up rows written behind the service's back
	_, err := s.DB.Exec(ctx, `INSERT INTO weight_entry (date, weight, food, exercised) VALUES ('2025-01-11', 188, 5, false)`)
	require.NoError(t, err)
	resp, _ = s.doRequest(ctx, http.MethodPost, "/weight/reload", "", true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = s.doRequest(ctx, http.MethodGet, "/weight/missing?asOf=2025-01-12", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var missing weight.MissingResponse
	require.NoError(t, json.Unmarshal(body, &missing))
	assert.Equal(t, 0, missing.Count)
}

func (s *IntegrationTestSuite) TestForecast() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := s.T()

	resp, body := s.doRequest(ctx, http.MethodGet, "/weight/forecast?weeks=3", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var forecast weight.ForecastResponse
	require.NoError(t, json.Unmarshal(body, &forecast))
	assert.Equal(t, 3, forecast.Weeks)
	assert.Len(t, forecast.Expected, 22)
	assert.Less(t, forecast.Scenarios.Good, forecast.Scenarios.Bad)

	resp, _ = s.doRequest(ctx, http.MethodGet, "/weight/forecast?weeks=11", "", false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.doRequest(ctx, http.MethodGet, "/weight/chart/forecast.png?weeks=2", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))
}

func (s *IntegrationTestSuite) TestRateLimit() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := s.T()

	limited := false
	for i := 0; i <= addEntryRateLimitPerMin; i++ {
		// conflicting entry: never changes the dataset
		resp, _ := s.doRequest(ctx, http.MethodPost, "/weight/entries", `{"date":"2025-01-01","weight":150,"food":1,"exercised":false}`, true)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
		assert.Equal(t, http.StatusConflict, resp.StatusCode, fmt.Sprintf("request %d", i))
	}
	assert.True(t, limited, "expected a 429 within %d requests", addEntryRateLimitPerMin+1)
}

func (s *IntegrationTestSuite) TestSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t := s.T()

	resp, body := s.doRequest(ctx, http.MethodGet, "/weight/summary", "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var summary weight.SummaryResponse
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.Equal(t, "postgres:weight_entry", summary.Source)
	assert.Equal(t, "2025-01-01", summary.FirstDate)
	assert.GreaterOrEqual(t, summary.Entries, 10)
}
