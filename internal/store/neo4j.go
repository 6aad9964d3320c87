package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "sociogram/pkg/errors"
	"sociogram/pkg/logger"
)

// Neo4jRecorder appends relationship-change events as :InteractionEvent
// nodes. One node per change; nothing is ever updated or deleted here.
type Neo4jRecorder struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewNeo4jRecorder creates a recorder over an already-verified driver.
func NewNeo4jRecorder(driver neo4j.DriverWithContext) *Neo4jRecorder {
	return &Neo4jRecorder{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the underlying driver connection.
func (r *Neo4jRecorder) Close() error {
	return r.driver.Close(context.Background())
}

// Record writes one event. The event ID is assigned here if the caller left
// it empty.
func (r *Neo4jRecorder) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		CREATE (e:InteractionEvent {
			id: $id,
			ts: $ts,
			guild_id: $guildID,
			channel_id: $channelID,
			source_id: $sourceID,
			target_id: $targetID,
			reason: $reason
		})
	`

	_, err := session.Run(ctx, query, map[string]interface{}{
		"id":        event.ID,
		"ts":        event.Timestamp,
		"guildID":   event.GuildID,
		"channelID": event.ChannelID,
		"sourceID":  event.SourceID,
		"targetID":  event.TargetID,
		"reason":    event.Reason,
	})
	if err != nil {
		return apperrors.NewPersistenceWriteFailed(event.GuildID, err)
	}

	return nil
}
