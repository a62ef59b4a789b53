package store

import (
	"database/sql"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/playone/server/internal/game"
)

// Hooks is the sqlx/lib/pq-backed game.LifecycleHooks implementation: it
// writes game_history, game_history_participants, and player_stats exactly
// once per finished Session, mirroring the teacher's
// GameManager.SaveFinalGameState write-through pattern.
type Hooks struct {
	db *sqlx.DB
}

func NewHooks(db *sqlx.DB) *Hooks {
	return &Hooks{db: db}
}

// RecordGameEnd is invoked on a detached goroutine by the Session (spec §5
// — the writer never blocks on I/O), so a failure here is logged and
// swallowed; it can never roll back a finished game.
func (h *Hooks) RecordGameEnd(summary game.GameEndSummary) {
	tx, err := h.db.Beginx()
	if err != nil {
		log.Printf("[STORE] begin tx failed for room %s: %v", summary.RoomCode, err)
		return
	}
	defer tx.Rollback()

	var winner sql.NullString
	if summary.Winner != "" {
		winner = sql.NullString{String: summary.Winner, Valid: true}
	}

	var historyID int64
	err = tx.QueryRow(
		`INSERT INTO game_history (room_code, started_at, ended_at, duration_minutes, winner_external_user_id, total_cards_played)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		summary.RoomCode, summary.StartedAt, summary.EndedAt, summary.DurationMinutes, winner, summary.TotalCardsPlayed,
	).Scan(&historyID)
	if err != nil {
		log.Printf("[STORE] insert game_history failed for room %s: %v", summary.RoomCode, err)
		return
	}

	for _, userID := range summary.ParticipantUserIDs {
		result, ok := summary.FinalScores[userID]
		if !ok {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO game_history_participants (game_history_id, external_user_id, final_position, remaining_cards, hand_points, points_earned)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			historyID, userID, result.Position, result.RemainingCards, result.HandPoints, result.PointsEarned,
		); err != nil {
			log.Printf("[STORE] insert game_history_participants failed for room %s user %s: %v", summary.RoomCode, userID, err)
			return
		}

		won := 0
		if result.Position == 1 {
			won = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO player_stats (external_user_id, games_played, games_won, total_points, updated_at)
			 VALUES ($1, 1, $2, $3, now())
			 ON CONFLICT (external_user_id) DO UPDATE SET
			   games_played = player_stats.games_played + 1,
			   games_won = player_stats.games_won + $2,
			   total_points = player_stats.total_points + $3,
			   updated_at = now()`,
			userID, won, result.PointsEarned,
		); err != nil {
			log.Printf("[STORE] upsert player_stats failed for room %s user %s: %v", summary.RoomCode, userID, err)
			return
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[STORE] commit failed for room %s: %v", summary.RoomCode, err)
	}
}
