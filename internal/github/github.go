// Package github fetches contribution calendars from the GitHub GraphQL API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/verte-zerg/ghstreak/internal/logging"
	"github.com/verte-zerg/ghstreak/internal/model"
)

// DefaultEndpoint is the public GitHub GraphQL endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

const calendarQuery = `query($login: String!) {
  user(login: $login) {
    contributionsCollection {
      contributionCalendar {
        totalContributions
        weeks {
          contributionDays {
            date
            contributionCount
          }
        }
      }
    }
  }
}`

const calendarPath = "data.user.contributionsCollection.contributionCalendar"

// ErrUserNotFound is returned when the API resolves the login to no user.
var ErrUserNotFound = errors.New("github user not found")

// APIError reports a non-200 HTTP response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("github API error %d", e.StatusCode)
	}
	return fmt.Sprintf("github API error %d: %s", e.StatusCode, body)
}

// GraphQLError reports query-level errors returned with a 200 response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "github GraphQL error: " + strings.Join(e.Messages, "; ")
}

// Client fetches calendars for a login.
type Client struct {
	endpoint string
	token    string
	http     *retryablehttp.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithRetries sets the retry budget and the minimum backoff between attempts.
func WithRetries(maxRetries int, minWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = maxRetries
		c.http.RetryWaitMin = minWait
		if c.http.RetryWaitMax < minWait {
			c.http.RetryWaitMax = minWait
		}
	}
}

// WithLogger routes retry diagnostics to logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.http.Logger = logging.RetryLogger{Logger: logger}
	}
}

// New returns a Client authenticating with token.
func New(token string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.RetryMax = 3
	rc.RetryWaitMin = 2 * time.Second
	rc.RetryWaitMax = 30 * time.Second
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logging.RetryLogger{Logger: log.Logger}

	c := &Client{
		endpoint: DefaultEndpoint,
		token:    token,
		http:     rc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// FetchCalendar returns the nested contribution calendar of login.
func (c *Client) FetchCalendar(ctx context.Context, login string) (model.RawCalendar, error) {
	if strings.TrimSpace(login) == "" {
		return model.RawCalendar{}, fmt.Errorf("github login is empty")
	}
	if c.token == "" {
		return model.RawCalendar{}, fmt.Errorf("github token is empty")
	}

	payload, err := json.Marshal(graphQLRequest{
		Query:     calendarQuery,
		Variables: map[string]any{"login": login},
	})
	if err != nil {
		return model.RawCalendar{}, fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return model.RawCalendar{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.RawCalendar{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RawCalendar{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.RawCalendar{}, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	cal, err := decodeCalendar(body)
	if err != nil {
		return model.RawCalendar{}, err
	}
	log.Debug().
		Str("login", login).
		Int("weeks", len(cal.Weeks)).
		Int("total", cal.TotalContributions).
		Dur("took", time.Since(started)).
		Msg("fetched contribution calendar")
	return cal, nil
}

func decodeCalendar(body []byte) (model.RawCalendar, error) {
	if !gjson.ValidBytes(body) {
		return model.RawCalendar{}, fmt.Errorf("failed to decode response: invalid JSON")
	}
	root := gjson.ParseBytes(body)

	if errs := root.Get("errors"); errs.IsArray() && len(errs.Array()) > 0 {
		var messages []string
		errs.ForEach(func(_, e gjson.Result) bool {
			messages = append(messages, e.Get("message").String())
			return true
		})
		return model.RawCalendar{}, &GraphQLError{Messages: messages}
	}

	user := root.Get("data.user")
	if !user.Exists() || user.Type == gjson.Null {
		return model.RawCalendar{}, ErrUserNotFound
	}

	node := root.Get(calendarPath)
	if !node.Exists() || !node.Get("weeks").IsArray() {
		return model.RawCalendar{}, fmt.Errorf("failed to decode response: missing %s", calendarPath)
	}

	cal := model.RawCalendar{
		TotalContributions: int(node.Get("totalContributions").Int()),
	}
	var decodeErr error
	node.Get("weeks").ForEach(func(_, week gjson.Result) bool {
		var w model.RawWeek
		week.Get("contributionDays").ForEach(func(_, day gjson.Result) bool {
			count := day.Get("contributionCount")
			if count.Type != gjson.Number {
				decodeErr = fmt.Errorf("failed to decode response: non-numeric contributionCount for %q", day.Get("date").String())
				return false
			}
			if count.Num != math.Trunc(count.Num) || math.Abs(count.Num) > math.MaxInt32 {
				decodeErr = fmt.Errorf("failed to decode response: non-integral contributionCount %s for %q", count.Raw, day.Get("date").String())
				return false
			}
			w.Days = append(w.Days, model.RawDay{
				Date:  day.Get("date").String(),
				Count: int(count.Int()),
			})
			return true
		})
		cal.Weeks = append(cal.Weeks, w)
		return decodeErr == nil
	})
	if decodeErr != nil {
		return model.RawCalendar{}, decodeErr
	}
	return cal, nil
}
