package modes

import (
	"github.com/hanq-games/baduk-server/internal/game"
	"github.com/hanq-games/baduk-server/pkg/gamedto"
)

// Color-assignment fairness mechanics shared by the PvP handlers. AI and
// single-player games bypass them: the human takes Black directly.

func assignColors(sess *game.Session, blackSeat int) {
	if blackSeat == 1 {
		sess.Black, sess.White = sess.P1, sess.P2
	} else {
		sess.Black, sess.White = sess.P2, sess.P1
	}
	sess.Setup = nil
}

// assignDirect gives the human Black against an AI seat; P1 takes Black
// when both seats are the same kind.
func assignDirect(sess *game.Session) {
	if sess.P1.IsAI && !sess.P2.IsAI {
		assignColors(sess, 2)
		return
	}
	assignColors(sess, 1)
}

// beginNigiri arms the coin-guess: seat 1 grabs a hidden handful, seat 2
// calls odd or even.
func beginNigiri(sess *game.Session, env *Env, nowMs int64) {
	sess.Setup = &game.SetupPhase{
		NigiriHolder: 1,
		NigiriCount:  1 + env.Intn(10),
	}
	armTimer(sess, game.StatusNigiri, nowMs, transitionalDeadlineMs)
}

// handleNigiriGuess resolves the guess. done reports that colors are now
// assigned and the caller should advance to its next phase.
func handleNigiriGuess(sess *game.Session, userID string, act gamedto.Action) (done bool, reply *gamedto.ActionReply, err error) {
	if sess.Seat(userID) != 2 {
		return false, nil, gamedto.Rejectf("only the non-holding player guesses")
	}
	if act.Guess != "odd" && act.Guess != "even" {
		return false, nil, gamedto.Rejectf("guess must be odd or even")
	}

	correct := (sess.Setup.NigiriCount%2 == 1) == (act.Guess == "odd")
	if correct {
		assignColors(sess, 2)
	} else {
		assignColors(sess, 1)
	}
	msg := "guess wrong: opponent takes black"
	if correct {
		msg = "guess right: you take black"
	}
	return true, &gamedto.ActionReply{Message: msg}, nil
}

func beginTurnPreference(sess *game.Session, nowMs int64) {
	sess.Setup = &game.SetupPhase{}
	armTimer(sess, game.StatusTurnPreference, nowMs, transitionalDeadlineMs)
}

// handleTurnPreference records a seat's color choice. Matching choices
// settle immediately; a clash moves to the rock-paper-scissors tiebreak
// within the same status.
func handleTurnPreference(sess *game.Session, env *Env, userID string, act gamedto.Action, nowMs int64) (done bool, reply *gamedto.ActionReply, err error) {
	seat := sess.Seat(userID)
	if seat == 0 {
		return false, nil, gamedto.Rejectf("you are not a player in this game")
	}
	switch act.Type {
	case gamedto.ActTurnPref:
		return recordPreference(sess, env, seat, act, nowMs)
	case gamedto.ActRPS:
		return recordRPS(sess, seat, act, nowMs)
	}
	return false, nil, gamedto.Rejectf("action not available while %s", sess.Status)
}

func recordPreference(sess *game.Session, env *Env, seat int, act gamedto.Action, nowMs int64) (bool, *gamedto.ActionReply, error) {
	if act.Choice != "black" && act.Choice != "white" {
		return false, nil, gamedto.Rejectf("choice must be black or white")
	}
	su := sess.Setup
	if seat == 1 {
		if su.Pref1 != "" {
			return false, nil, gamedto.Rejectf("preference already submitted")
		}
		su.Pref1 = act.Choice
	} else {
		if su.Pref2 != "" {
			return false, nil, gamedto.Rejectf("preference already submitted")
		}
		su.Pref2 = act.Choice
	}
	if su.Pref1 == "" || su.Pref2 == "" {
		return false, &gamedto.ActionReply{Message: "waiting for opponent"}, nil
	}

	if su.Pref1 != su.Pref2 {
		if su.Pref1 == "black" {
			assignColors(sess, 1)
		} else {
			assignColors(sess, 2)
		}
		return true, &gamedto.ActionReply{Message: "preferences matched"}, nil
	}

	// Both want the same color; rock-paper-scissors decides it. The
	// deadline restarts for the tiebreak.
	sess.Timer = &game.PendingTimer{For: sess.Status, DeadlineMs: nowMs + transitionalDeadlineMs}
	return false, &gamedto.ActionReply{Message: "both chose " + su.Pref1 + ": rock-paper-scissors"}, nil
}

func recordRPS(sess *game.Session, seat int, act gamedto.Action, nowMs int64) (bool, *gamedto.ActionReply, error) {
	su := sess.Setup
	if su.Pref1 == "" || su.Pref2 == "" || su.Pref1 != su.Pref2 {
		return false, nil, gamedto.Rejectf("no tiebreak in progress")
	}
	switch act.Choice {
	case "rock", "paper", "scissors":
	default:
		return false, nil, gamedto.Rejectf("choice must be rock, paper or scissors")
	}
	if seat == 1 {
		su.RPS1 = act.Choice
	} else {
		su.RPS2 = act.Choice
	}
	if su.RPS1 == "" || su.RPS2 == "" {
		return false, &gamedto.ActionReply{Message: "waiting for opponent"}, nil
	}

	winner := rpsWinner(su.RPS1, su.RPS2)
	if winner == 0 {
		su.RPS1, su.RPS2 = "", ""
		sess.Timer = &game.PendingTimer{For: sess.Status, DeadlineMs: nowMs + transitionalDeadlineMs}
		return false, &gamedto.ActionReply{Message: "tie: throw again"}, nil
	}

	contested := su.Pref1
	loser := 3 - winner
	if contested == "black" {
		assignColors(sess, winner)
	} else {
		assignColors(sess, loser)
	}
	return true, &gamedto.ActionReply{Message: "tiebreak resolved"}, nil
}

// rpsWinner returns the winning seat, 0 on a tie.
func rpsWinner(a, b string) int {
	if a == b {
		return 0
	}
	beats := map[string]string{"rock": "scissors", "paper": "rock", "scissors": "paper"}
	if beats[a] == b {
		return 1
	}
	return 2
}

// negotiationTimeout assigns colors randomly when a negotiation deadline
// lapses.
func negotiationTimeout(sess *game.Session, env *Env) {
	assignColors(sess, 1+env.Intn(2))
}

// aiFillNegotiation answers on behalf of AI seats so a human opponent is
// never blocked on an AI's negotiation input. PvP-only mechanics still
// work unchanged for two humans.
func aiFillNegotiation(sess *game.Session, env *Env, nowMs int64) {
	if sess.Setup == nil {
		return
	}
	switch sess.Status {
	case game.StatusNigiri:
		// Only seat 2 acts during nigiri; an AI there guesses at random.
		if sess.P2 != nil && sess.P2.IsAI {
			guess := "odd"
			if env.Intn(2) == 0 {
				guess = "even"
			}
			done, _, _ := handleNigiriGuess(sess, sess.P2.ID, gamedto.Action{Type: gamedto.ActNigiriGuess, Guess: guess})
			if done {
				sess.Timer = nil
			}
		}
	case game.StatusTurnPreference:
		for _, pl := range []*game.Player{sess.P1, sess.P2} {
			if pl == nil || !pl.IsAI {
				continue
			}
			act := gamedto.Action{Type: gamedto.ActTurnPref, Choice: "black"}
			if sess.Setup.Pref1 != "" && sess.Setup.Pref2 != "" {
				choices := []string{"rock", "paper", "scissors"}
				act = gamedto.Action{Type: gamedto.ActRPS, Choice: choices[env.Intn(3)]}
			}
			done, _, _ := handleTurnPreference(sess, env, pl.ID, act, nowMs)
			if done {
				sess.Timer = nil
				return
			}
		}
	}
}

// colorsAssigned reports whether negotiation has finished.
func colorsAssigned(sess *game.Session) bool {
	return sess.Black != nil && sess.White != nil
}
