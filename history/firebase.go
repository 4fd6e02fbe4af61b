package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yhkl-dev/SonicCLI/domain"
)

// FirebaseStore pushes entries to a Firebase Realtime Database over its REST API.
// Each entry becomes a child of play_history/<user> with a server-side timestamp.
type FirebaseStore struct {
	databaseURL string
	auth        string
	userID      string
	httpClient  *http.Client
}

// NewFirebaseStore creates a store for the database at databaseURL. auth may be empty.
func NewFirebaseStore(databaseURL, auth, userID string, timeout time.Duration) *FirebaseStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FirebaseStore{
		databaseURL: strings.TrimRight(databaseURL, "/"),
		auth:        auth,
		userID:      userID,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type firebaseEntry struct {
	SongID    string            `json:"songId"`
	Title     string            `json:"title"`
	Timestamp map[string]string `json:"timestamp"`
}

func (s *FirebaseStore) endpoint() string {
	u := fmt.Sprintf("%s/play_history/%s.json", s.databaseURL, url.PathEscape(s.userID))
	if s.auth != "" {
		u += "?" + url.Values{"auth": {s.auth}}.Encode()
	}
	return u
}

// Record pushes entry. The entry timestamp is replaced by the server's clock.
func (s *FirebaseStore) Record(ctx context.Context, entry domain.HistoryEntry) error {
	body, err := json.Marshal(firebaseEntry{
		SongID:    entry.SongID,
		Title:     entry.Title,
		Timestamp: map[string]string{".sv": "timestamp"},
	})
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push history entry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push history entry: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func (s *FirebaseStore) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
