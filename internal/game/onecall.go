package game

import "time"

// defaultOneCallWindow is the wall-clock grace period a seat has to call ONE
// after dropping to a single card. While it is open, opponents can catch the
// seat for not calling; when it expires uncalled, the penalty applies
// automatically (spec §4.6 Open Question, resolved: fixed wall-clock window
// rather than "until next turn start").
const defaultOneCallWindow = 3 * time.Second

// openOneCallWindow is invoked whenever a seat's hand size transitions to
// exactly one card (after a play, never after a draw — drawing can't reduce
// hand size). It records the window start and clears any stale call flag
// from a previous single-card stretch that was later added back to. The
// sequence counter invalidates expiry timers armed for earlier windows.
func openOneCallWindow(s *Seat, now time.Time) {
	s.CalledOne = false
	s.CallWindowOpenedAt = now
	s.callWindowSeq++
}

// callOne marks the seat as having announced ONE. It is legal any time the
// seat holds exactly one card; calling late just means racing the expiry
// penalty.
func callOne(s *Seat) error {
	if s.HandSize() != 1 {
		return newErr(ErrNotEligible, "can only call ONE while holding exactly one card")
	}
	s.CalledOne = true
	return nil
}

// catchable reports whether target can currently be penalized for failing to
// call ONE: they hold exactly one card, haven't called it, and the catch
// window is still open. Once the window lapses, the automatic expiry penalty
// takes over and a manual catch is no longer eligible.
func catchable(target *Seat, now time.Time, window time.Duration) bool {
	if target.HandSize() != 1 || target.CalledOne {
		return false
	}
	return now.Sub(target.CallWindowOpenedAt) < window
}

// callWindowExpired reports whether the uncalled window has lapsed, meaning
// the automatic penalty should fire.
func callWindowExpired(target *Seat, now time.Time, window time.Duration) bool {
	if target.HandSize() != 1 || target.CalledOne {
		return false
	}
	return now.Sub(target.CallWindowOpenedAt) >= window
}
