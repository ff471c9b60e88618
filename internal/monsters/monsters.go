// Package monsters looks up monster names by id for the migration.
package monsters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-intelligence/tokenshelf/internal/metrics"
)

// Monster is the subset of monster data the store needs.
type Monster struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnmarshalJSON accepts numeric or string ids.
func (m *Monster) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		var strID struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err2 := json.Unmarshal(data, &strID); err2 != nil {
			return err
		}
		m.ID, m.Name = strID.ID, strID.Name
		return nil
	}
	m.ID, m.Name = raw.ID.String(), raw.Name
	return nil
}

// Source fetches monster records for a set of ids. Ids it does not know
// are simply absent from the result.
type Source interface {
	FetchMonsters(ctx context.Context, ids []string) ([]Monster, error)
}

// ErrUnexpectedStatus is returned when the monster service answers with a
// non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected monster service status")

// HTTPSource queries a monster service: GET <Endpoint>?ids=1,2,3. The body
// is either {"data": [...]} or a bare array of monsters.
type HTTPSource struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPSource returns a source with a client timeout.
func NewHTTPSource(endpoint string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: timeout},
	}
}

// FetchMonsters implements Source.
func (s *HTTPSource) FetchMonsters(ctx context.Context, ids []string) ([]Monster, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	defer metrics.ObserveMonsterFetch(time.Now())

	reqURL, err := buildURL(s.Endpoint, ids)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building monster request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching monsters: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading monster response: %w", err)
	}
	return decodeMonsters(body)
}

func buildURL(endpoint string, ids []string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing monster endpoint: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(ids, ","))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decodeMonsters(body []byte) ([]Monster, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []Monster
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decoding monster list: %w", err)
		}
		return list, nil
	}
	var wrapped struct {
		Data []Monster `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding monster response: %w", err)
	}
	return wrapped.Data, nil
}

// StaticSource answers from a fixed id to name map, such as the
// monsters.names config key.
type StaticSource map[string]string

// FetchMonsters implements Source.
func (s StaticSource) FetchMonsters(_ context.Context, ids []string) ([]Monster, error) {
	var out []Monster
	for _, id := range ids {
		if name, ok := s[id]; ok {
			out = append(out, Monster{ID: id, Name: name})
		}
	}
	return out, nil
}

// SortIDs orders ids numerically where possible so requests are stable.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, errA := strconv.ParseInt(ids[i], 10, 64)
		b, errB := strconv.ParseInt(ids[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		if (errA == nil) != (errB == nil) {
			return errA == nil
		}
		return ids[i] < ids[j]
	})
}
