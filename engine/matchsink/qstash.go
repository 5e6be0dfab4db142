// Package matchsink delivers completed intake snapshots to the
// downstream matching service.
package matchsink

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/stepmatch/onboarding/engine/contract"
	qstashx "github.com/stepmatch/onboarding/pkg/qstash"
)

// QStashSink publishes MatchSnapshot payloads through QStash so the
// matching service consumes them with at-least-once delivery. The
// snapshot's subject id makes redelivery safe to deduplicate there.
type QStashSink struct {
	client      *qstashx.Client
	destination string
}

var _ contractx.MatchSink = (*QStashSink)(nil)

func NewQStashSink(client *qstashx.Client, destination string) (*QStashSink, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("qstash destination is required")
	}
	return &QStashSink{client: client, destination: destination}, nil
}

func (s *QStashSink) Ready(ctx context.Context, snapshot contractx.MatchSnapshot) error {
	if err := s.client.PublishJSON(ctx, s.destination, snapshot); err != nil {
		return err
	}
	log.Info().
		Str("subject_id", snapshot.SubjectID).
		Str("mission", snapshot.SelectedMission).
		Msg("intake complete, snapshot published for matching")
	return nil
}
