package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/genquiz/internal/domain"
)

const maxConcurrent = 100

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	Standings struct {
		QuizID  string           `json:"quiz_id"`
		Entries []StandingsEntry `json:"entries"`
	}

	StandingsEntry struct {
		OwnerID string `json:"owner_id"`
		Score   string `json:"score"`
	}
)

func viewStandings(st domain.Standings) Standings {
	data := Standings{
		QuizID:  st.QuizID,
		Entries: make([]StandingsEntry, 0, len(st.Entries)),
	}

	for _, entry := range st.Entries {
		data.Entries = append(data.Entries, StandingsEntry{
			OwnerID: entry.OwnerID,
			Score:   strconv.FormatFloat(entry.Score, 'f', -1, 64),
		})
	}

	return data
}

// PublishStandingsUpdated notifies every owner on the standings that their
// position may have changed.
func (a *API) PublishStandingsUpdated(ctx context.Context, e domain.EventStandingsUpdated) error {
	data := viewStandings(e.Standings)

	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)

	for _, entry := range data.Entries {
		entry := entry
		eg.Go(func() error {
			return a.publishNotification(ctx, entry.OwnerID, e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, owner, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, fmt.Sprintf("%s:owner:%s", a.prefix, owner), b).Err()
}
