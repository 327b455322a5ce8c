package game

import (
	"fmt"

	"github.com/faizsupianwork/temberang/domain"
)

// Event is one server→client push message. The "type" key discriminates;
// everything else sits flat at the top level, matching the poll snapshot
// field names.
type Event map[string]any

func evError(message string) Event {
	return Event{"type": "error", "message": message}
}

func evJoined(snap domain.RoomSnapshot, playerID string) Event {
	return Event{"type": "joined", "room": snap, "player_id": playerID}
}

func evReconnected(snap domain.RoomSnapshot, playerID string) Event {
	return Event{"type": "reconnected", "room": snap, "player_id": playerID}
}

func evPlayerJoined(snap domain.RoomSnapshot) Event {
	return Event{"type": "player_joined", "room": snap}
}

func evPlayerLeft(snap domain.RoomSnapshot, playerID string) Event {
	return Event{"type": "player_left", "room": snap, "player_id": playerID}
}

func evNewHost(hostID string) Event {
	return Event{"type": "new_host", "host_id": hostID}
}

func evSettingsUpdated(settings domain.Settings) Event {
	return Event{"type": "settings_updated", "settings": settings}
}

// evGameStarted is the only per-player event: each player learns their own
// role and word. Mr. White gets no word; an imposter is told they are one
// only when the room has imposter awareness on.
func evGameStarted(role domain.Role, gs *domain.GameState, players []domain.Player, aware bool) Event {
	ev := Event{
		"type": "game_started",
		"role": role,
		"game_state": Event{
			"phase":           gs.Phase,
			"round":           gs.Round,
			"current_speaker": gs.CurrentSpeaker(),
			"speaking_order":  gs.SpeakingOrder,
			"players":         players,
		},
	}

	switch role {
	case domain.RoleMajority:
		ev["word"] = gs.MajorityWord
		ev["message"] = fmt.Sprintf("You are a majority player. Your word: %s", gs.MajorityWord)
	case domain.RoleImposter:
		ev["word"] = gs.ImposterWord
		if aware {
			ev["message"] = fmt.Sprintf("You are the imposter! Your word: %s", gs.ImposterWord)
		} else {
			ev["message"] = fmt.Sprintf("Your word: %s", gs.ImposterWord)
		}
	case domain.RoleMrWhite:
		ev["word"] = nil
		ev["message"] = "You are Mr. White. You receive no word. Act like you know it!"
	}
	return ev
}

func evNextSpeaker(currentSpeaker string) Event {
	return Event{"type": "next_speaker", "current_speaker": currentSpeaker}
}

func evPhaseChange(phase domain.Phase, players []domain.Player) Event {
	return Event{"type": "phase_change", "phase": phase, "players": players}
}

func evVoteUpdate(votesCount, totalVoters int) Event {
	return Event{"type": "vote_update", "votes_count": votesCount, "total_voters": totalVoters}
}

func evTieVote(candidates, candidateNames []string) Event {
	return Event{"type": "tie_vote", "candidates": candidates, "candidate_names": candidateNames}
}

func evPlayerEliminated(id, name string, voteCounts map[string]int) Event {
	return Event{
		"type":            "player_eliminated",
		"eliminated_id":   id,
		"eliminated_name": name,
		"vote_counts":     voteCounts,
	}
}

func evRoleRevealed(playerID, playerName string, role domain.Role) Event {
	return Event{
		"type":        "role_revealed",
		"player_id":   playerID,
		"player_name": playerName,
		"role":        role,
	}
}

func evContinueGame() Event {
	return Event{"type": "continue_game"}
}

func evGameOver(winner domain.Winner, majorityWord, imposterWord string) Event {
	return Event{
		"type":          "game_over",
		"winner":        winner,
		"majority_word": majorityWord,
		"imposter_word": imposterWord,
	}
}

func evBackToLobby(snap domain.RoomSnapshot) Event {
	return Event{"type": "back_to_lobby", "room": snap}
}
