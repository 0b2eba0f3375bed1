package services

import (
	"encoding/json"
	"sync"
	"time"
)

// AnonymousUser is used when no user id is supplied
const AnonymousUser = "anonymous"

// DemoItem is a watchlist entry as posted by the front end. Fields other than id and
// type are kept verbatim.
type DemoItem map[string]any

// Key returns the (id, type) pair, or ok=false when either is missing
func (d DemoItem) Key() (id string, mediaType string, ok bool) {
	rawID, hasID := d["id"]
	rawType, hasType := d["type"].(string)
	if !hasID || rawID == nil || !hasType || rawType == "" {
		return "", "", false
	}
	switch v := rawID.(type) {
	case float64:
		if v == 0 {
			return "", "", false
		}
	case string:
		if v == "" {
			return "", "", false
		}
	case json.Number:
		if v.String() == "0" {
			return "", "", false
		}
	}
	encoded, err := json.Marshal(rawID)
	if err != nil {
		return "", "", false
	}
	return string(encoded), rawType, true
}

// DemoWatchlistService is the server-side watchlist shown in the demo routes. It lives
// in memory and is lost on restart.
type DemoWatchlistService struct {
	mu    sync.Mutex
	lists map[string][]DemoItem
	now   func() time.Time
}

func NewDemoWatchlistService() *DemoWatchlistService {
	return &DemoWatchlistService{lists: make(map[string][]DemoItem), now: time.Now}
}

func userOrAnonymous(userID string) string {
	if userID == "" {
		return AnonymousUser
	}
	return userID
}

// List returns a copy of the user's list
func (s *DemoWatchlistService) List(userID string) []DemoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DemoItem{}, s.lists[userOrAnonymous(userID)]...)
}

// Toggle appends the item with addedAt, or removes it when already present. Returns the
// user-facing message and the resulting list. ok is false for items without id or type.
func (s *DemoWatchlistService) Toggle(userID string, item DemoItem) (message string, list []DemoItem, ok bool) {
	id, mediaType, valid := item.Key()
	if !valid {
		return "", nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user := userOrAnonymous(userID)
	current := s.lists[user]
	for i, existing := range current {
		if eid, etype, _ := existing.Key(); eid == id && etype == mediaType {
			next := make([]DemoItem, 0, len(current)-1)
			next = append(next, current[:i]...)
			next = append(next, current[i+1:]...)
			s.lists[user] = next
			return "Removed from watchlist", append([]DemoItem{}, next...), true
		}
	}

	added := make(DemoItem, len(item)+1)
	for k, v := range item {
		added[k] = v
	}
	added["addedAt"] = s.now().UTC().Format(time.RFC3339Nano)

	next := append(append([]DemoItem{}, current...), added)
	s.lists[user] = next
	return "Added to watchlist", append([]DemoItem{}, next...), true
}

// Clear removes the user's list
func (s *DemoWatchlistService) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, userOrAnonymous(userID))
}
