package game

import (
	"math/rand"
	"sort"

	"github.com/faizsupianwork/temberang/domain"
)

const (
	MinPlayers = 3
	MaxPlayers = 10
)

// imposterCountFor is 1 for small rooms, 2 once a seventh player is in.
func imposterCountFor(playerCount int) int {
	if playerCount <= 6 {
		return 1
	}
	return 2
}

// assignRoles shuffles the player ids and deals roles in order: imposters
// first, then Mr. White if enabled and anyone is left, majority for the rest.
func assignRoles(playerIDs []string, enableMrWhite bool, rng *rand.Rand) map[string]domain.Role {
	shuffled := shuffledOrder(playerIDs, rng)
	roles := make(map[string]domain.Role, len(shuffled))

	imposters := imposterCountFor(len(shuffled))
	for i, id := range shuffled {
		switch {
		case i < imposters:
			roles[id] = domain.RoleImposter
		case enableMrWhite && i == imposters:
			roles[id] = domain.RoleMrWhite
		default:
			roles[id] = domain.RoleMajority
		}
	}
	return roles
}

// shuffledOrder returns a uniformly shuffled copy, leaving the input alone.
func shuffledOrder(playerIDs []string, rng *rand.Rand) []string {
	out := append([]string(nil), playerIDs...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

func newGameState(pair domain.WordPair, speakingOrder []string) *domain.GameState {
	return &domain.GameState{
		Round:         1,
		Phase:         domain.PhaseDiscussion,
		MajorityWord:  pair.MajorityWord,
		ImposterWord:  pair.ImposterWord,
		Category:      pair.Category,
		SpeakingOrder: speakingOrder,
		Votes:         map[string]string{},
		Eliminated:    []string{},
		RevealedRoles: map[string]domain.Role{},
	}
}

// advanceTurn moves the speaker index forward. Once every speaker has taken a
// turn the room enters voting with a cleared ballot. Called with
// phase=next_round it instead starts the next discussion round. Reports
// whether the phase changed.
func advanceTurn(gs *domain.GameState) bool {
	if gs.Phase == domain.PhaseNextRound {
		gs.Round++
		gs.Phase = domain.PhaseDiscussion
		gs.CurrentSpeakerIndex = 0
		gs.Votes = map[string]string{}
		gs.RevoteCandidates = nil
		return true
	}

	gs.CurrentSpeakerIndex++
	if gs.CurrentSpeakerIndex >= len(gs.SpeakingOrder) {
		gs.Phase = domain.PhaseVoting
		gs.Votes = map[string]string{}
		return true
	}
	return false
}

// tally counts votes per target and returns the set of targets holding the
// maximum count, sorted for determinism.
func tally(votes map[string]string) (counts map[string]int, top []string) {
	counts = make(map[string]int, len(votes))
	for _, target := range votes {
		counts[target]++
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}
	for target, n := range counts {
		if n == max {
			top = append(top, target)
		}
	}
	sort.Strings(top)
	return counts, top
}

// resolveVotes applies a completed ballot: a unique top target is eliminated,
// a tie restricts the next ballot to the tied candidates. Returns the
// eliminated id, or "" on a tie.
func resolveVotes(gs *domain.GameState, top []string) string {
	if len(top) > 1 {
		gs.Phase = domain.PhaseRevote
		gs.RevoteCandidates = top
		gs.Votes = map[string]string{}
		return ""
	}

	eliminated := top[0]
	gs.Eliminated = append(gs.Eliminated, eliminated)
	gs.LastEliminated = eliminated
	gs.Phase = domain.PhaseElimination
	gs.RevoteCandidates = nil
	return eliminated
}

// checkWin decides the game from the alive role counts. Majority wins once
// every imposter and Mr. White is out; the imposter side wins once it matches
// or outnumbers the majority.
func checkWin(players []domain.Player) (domain.Winner, bool) {
	var imposters, mrWhites, majority int
	for _, p := range players {
		if !p.IsAlive {
			continue
		}
		switch p.Role {
		case domain.RoleImposter:
			imposters++
		case domain.RoleMrWhite:
			mrWhites++
		case domain.RoleMajority:
			majority++
		}
	}

	if imposters == 0 && mrWhites == 0 {
		return domain.WinnerMajority, true
	}
	if imposters+mrWhites >= majority {
		return domain.WinnerImposter, true
	}
	return "", false
}
