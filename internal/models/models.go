package models

import (
	"database/sql"
	"time"
)

// PlayerStats is the running per-player ledger, updated once per finished
// game via internal/store's LifecycleHooks implementation.
type PlayerStats struct {
	ExternalUserID string    `db:"external_user_id" json:"externalUserId"`
	GamesPlayed    int       `db:"games_played" json:"gamesPlayed"`
	GamesWon       int       `db:"games_won" json:"gamesWon"`
	TotalPoints    int       `db:"total_points" json:"totalPoints"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// GameHistory is one finished Session's summary row.
type GameHistory struct {
	ID                   int64          `db:"id" json:"id"`
	RoomCode             string         `db:"room_code" json:"roomCode"`
	StartedAt            time.Time      `db:"started_at" json:"startedAt"`
	EndedAt              time.Time      `db:"ended_at" json:"endedAt"`
	DurationMinutes      int            `db:"duration_minutes" json:"durationMinutes"`
	WinnerExternalUserID sql.NullString `db:"winner_external_user_id" json:"winnerExternalUserId,omitempty"`
	TotalCardsPlayed     int            `db:"total_cards_played" json:"totalCardsPlayed"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
}

// GameHistoryParticipant is one human player's outcome within a GameHistory
// row.
type GameHistoryParticipant struct {
	GameHistoryID  int64  `db:"game_history_id" json:"gameHistoryId"`
	ExternalUserID string `db:"external_user_id" json:"externalUserId"`
	FinalPosition  int    `db:"final_position" json:"finalPosition"`
	RemainingCards int    `db:"remaining_cards" json:"remainingCards"`
	HandPoints     int    `db:"hand_points" json:"handPoints"`
	PointsEarned   int    `db:"points_earned" json:"pointsEarned"`
}
