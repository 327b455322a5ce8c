package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/faizsupianwork/temberang/domain"
)

// Store is the durable side of every mutation. Writes that change what a
// poller can observe take the updatedAt value the registry will commit, so
// both copies carry the same timestamp.
type Store interface {
	RoomByCode(ctx context.Context, code string) (domain.RoomRecord, error)
	PlayersByRoom(ctx context.Context, roomID int64) ([]domain.Player, error)
	Snapshot(ctx context.Context, code string) (domain.RoomSnapshot, error)

	CreateRoom(ctx context.Context, code, hostID string, settings domain.Settings, updatedAt int64) (int64, error)
	InsertPlayer(ctx context.Context, roomID int64, playerID, name string, isHost bool, updatedAt int64) error
	DeletePlayer(ctx context.Context, roomID int64, playerID, newHostID string, updatedAt int64) error
	UpdateSettings(ctx context.Context, roomID int64, settings domain.Settings, updatedAt int64) error
	SaveGameState(ctx context.Context, roomID int64, status domain.RoomStatus, gs *domain.GameState, updatedAt int64) error
	SetPlayerRoles(ctx context.Context, roles map[string]domain.Role) error
	SetPlayerAlive(ctx context.Context, playerID string, alive bool) error
	ResetPlayers(ctx context.Context, roomID int64) error
	Heartbeat(ctx context.Context, playerID string) error

	PickWordPair(ctx context.Context, categories []string, anyCategory bool) (domain.WordPair, error)
}

type ServiceConfig struct {
	PollInterval time.Duration
	PollTimeout  time.Duration
	Seed         int64
}

// Service drives every room mutation through the same discipline: stage the
// next state on copies under the room lock, write the durable rows, commit to
// the registry, then fan out events. A failed write aborts with the in-memory
// state untouched.
type Service struct {
	store Store
	reg   *Registry
	codes *CodeGenerator
	log   zerolog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	clock        func() time.Time
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewService(store Store, cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 25 * time.Second
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Service{
		store:        store,
		reg:          NewRegistry(),
		codes:        NewCodeGenerator(cfg.Seed),
		log:          log,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		clock:        time.Now,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
}

func (s *Service) Registry() *Registry {
	return s.reg
}

// room returns the resident room for code, loading it from the store on a
// miss. Rooms survive durably across restarts; residency is rebuilt on first
// touch.
func (s *Service) room(ctx context.Context, code string) (*Room, error) {
	if r := s.reg.Lookup(code); r != nil {
		return r, nil
	}

	rec, err := s.store.RoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	players, err := s.store.PlayersByRoom(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	return s.reg.LoadOrStore(code, newRoom(rec, players)), nil
}

// CreateRoom inserts the durable room and host rows and hands back the join
// credentials. The room becomes resident lazily, on its first action.
func (s *Service) CreateRoom(ctx context.Context, playerName string) (code, playerID string, err error) {
	if playerName == "" {
		return "", "", domain.ErrMissingField
	}

	playerID = NewPlayerID()
	now := s.clock().Unix()

	var roomID int64
	for attempt := 0; attempt < 5; attempt++ {
		code = s.codes.Generate()
		roomID, err = s.store.CreateRoom(ctx, code, playerID, domain.DefaultSettings(), now)
		if err == nil {
			break
		}
		if err != domain.ErrDuplicateRoomCode {
			return "", "", err
		}
	}
	if err != nil {
		return "", "", err
	}

	if err := s.store.InsertPlayer(ctx, roomID, playerID, playerName, true, now); err != nil {
		return "", "", err
	}

	s.log.Info().Str("room", code).Str("player", playerID).Msg("room created")
	return code, playerID, nil
}

// Join adds a player to a lobby room. Joining with a player id the room
// already knows reattaches instead, so the poll transport's rejoin stays
// idempotent.
func (s *Service) Join(ctx context.Context, code, playerID, name string, sess Session) (domain.RoomSnapshot, error) {
	if playerID == "" || name == "" {
		return domain.RoomSnapshot{}, domain.ErrMissingField
	}

	r, err := s.room(ctx, code)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing := r.playerByID(playerID); existing != nil {
		if sess != nil {
			s.attachLocked(r, playerID, sess)
			r.sendTo(playerID, evReconnected(r.snapshot(), playerID))
		}
		return r.snapshot(), nil
	}

	if r.status != domain.StatusLobby {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	if len(r.players) >= MaxPlayers {
		return domain.RoomSnapshot{}, domain.ErrRoomFull
	}

	now := s.clock()
	if err := s.store.InsertPlayer(ctx, r.rowID, playerID, name, false, now.Unix()); err != nil {
		return domain.RoomSnapshot{}, err
	}

	r.players = append(r.players, &roomPlayer{
		id:       playerID,
		name:     name,
		isAlive:  true,
		joinedAt: now,
		lastSeen: now,
	})
	r.updatedAt = now.Unix()
	if sess != nil {
		s.attachLocked(r, playerID, sess)
	}

	snap := r.snapshot()
	r.broadcast(evPlayerJoined(snap))
	if sess != nil {
		r.sendTo(playerID, evJoined(snap, playerID))
	}

	s.log.Info().Str("room", code).Str("player", playerID).Int("players", len(r.players)).Msg("player joined")
	return snap, nil
}

// Register reattaches a push transport to an existing player after a
// reconnect. The reply is always a full snapshot; the client resynchronizes
// from it no matter how many events it missed.
func (s *Service) Register(ctx context.Context, code, playerID string, sess Session) (domain.RoomSnapshot, error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.playerByID(playerID) == nil {
		return domain.RoomSnapshot{}, domain.ErrPlayerNotFound
	}

	s.attachLocked(r, playerID, sess)
	snap := r.snapshot()
	r.sendTo(playerID, evReconnected(snap, playerID))

	s.log.Info().Str("room", code).Str("player", playerID).Msg("player reconnected")
	return snap, nil
}

// attachLocked binds a session to a player, closing any stale one.
func (s *Service) attachLocked(r *Room, playerID string, sess Session) {
	if old, ok := r.sessions[playerID]; ok && old != sess {
		old.Close()
	}
	r.sessions[playerID] = sess
}

// Leave removes a player entirely: session, registry entry, durable row.
// Host departure promotes the earliest-joined survivor; the last departure
// drops the room from the registry, leaving the durable row as the record of
// what happened.
func (s *Service) Leave(ctx context.Context, code, playerID string) error {
	r, err := s.room(ctx, code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.playerByID(playerID) == nil {
		return domain.ErrPlayerNotFound
	}

	wasHost := r.hostID == playerID

	var newHost string
	if wasHost && len(r.players) > 1 {
		for _, p := range r.players {
			if p.id != playerID {
				newHost = p.id
				break
			}
		}
	}

	// Delete and host handover commit atomically, so a failed write can be
	// retried without the two durable halves diverging.
	now := s.clock().Unix()
	if err := s.store.DeletePlayer(ctx, r.rowID, playerID, newHost, now); err != nil {
		return err
	}

	if sess, ok := r.sessions[playerID]; ok {
		delete(r.sessions, playerID)
		sess.Close()
	}
	r.removePlayerByID(playerID)
	if newHost != "" {
		r.hostID = newHost
	}
	r.updatedAt = now

	if len(r.players) == 0 {
		s.reg.Remove(code)
		s.log.Info().Str("room", code).Msg("room emptied, dropped from registry")
		return nil
	}

	r.broadcast(evPlayerLeft(r.snapshot(), playerID))
	if newHost != "" {
		r.broadcast(evNewHost(newHost))
	}

	s.log.Info().Str("room", code).Str("player", playerID).Bool("was_host", wasHost).Msg("player left")
	return nil
}

// Disconnect is the connection-drop path. It only acts if sess is still the
// player's bound transport; a reconnect that already replaced it wins.
func (s *Service) Disconnect(ctx context.Context, code, playerID string, sess Session) {
	r := s.reg.Lookup(code)
	if r == nil {
		return
	}

	r.mu.Lock()
	current, ok := r.sessions[playerID]
	r.mu.Unlock()
	if !ok || current != sess {
		return
	}

	if err := s.Leave(ctx, code, playerID); err != nil {
		s.log.Warn().Err(err).Str("room", code).Str("player", playerID).Msg("disconnect cleanup failed")
	}
}

func (s *Service) UpdateSettings(ctx context.Context, code string, settings domain.Settings) error {
	r, err := s.room(ctx, code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := s.clock().Unix()
	if err := s.store.UpdateSettings(ctx, r.rowID, settings, now); err != nil {
		return err
	}

	r.settings = settings
	r.updatedAt = now
	r.broadcast(evSettingsUpdated(settings))
	return nil
}

// StartGame deals roles, fixes the speaking order for the whole game, samples
// a word pair and moves the room into the discussion phase. Each push session
// receives its own game_started event carrying that player's role and word.
func (s *Service) StartGame(ctx context.Context, code, playerID string) (*domain.GameState, error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusLobby {
		return nil, domain.ErrRoomStarted
	}
	if playerID != "" && playerID != r.hostID {
		return nil, domain.ErrNotHost
	}
	if len(r.players) < MinPlayers {
		return nil, domain.ErrNotEnoughPlayers
	}

	ids := make([]string, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.id)
	}

	s.rngMu.Lock()
	roles := assignRoles(ids, r.settings.EnableMrWhite, s.rng)
	order := shuffledOrder(ids, s.rng)
	s.rngMu.Unlock()

	pair, err := s.store.PickWordPair(ctx, r.settings.Categories, r.settings.CustomWordpackID != nil)
	if err != nil {
		return nil, err
	}

	gs := newGameState(pair, order)
	now := s.clock().Unix()

	if err := s.store.SetPlayerRoles(ctx, roles); err != nil {
		return nil, err
	}
	if err := s.store.SaveGameState(ctx, r.rowID, domain.StatusPlaying, gs, now); err != nil {
		return nil, err
	}

	for _, p := range r.players {
		p.role = roles[p.id]
		p.isAlive = true
	}
	r.status = domain.StatusPlaying
	r.game = gs
	r.updatedAt = now

	players := r.playerList()
	for _, p := range r.players {
		r.sendTo(p.id, evGameStarted(p.role, gs, players, r.settings.ImposterAwareness))
	}

	s.log.Info().Str("room", code).Int("players", len(r.players)).Str("category", pair.Category).Msg("game started")
	return gs.Clone(), nil
}

// NextTurn advances the speaking order; after the last speaker the room
// votes. Called while the phase is next_round it opens the next discussion
// round instead.
func (s *Service) NextTurn(ctx context.Context, code string) (*domain.GameState, error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return nil, domain.ErrNoActiveGame
	}

	gs := r.game.Clone()
	phaseChanged := advanceTurn(gs)

	now := s.clock().Unix()
	if err := s.store.SaveGameState(ctx, r.rowID, r.status, gs, now); err != nil {
		return nil, err
	}

	r.game = gs
	r.updatedAt = now

	switch {
	case phaseChanged && gs.Phase == domain.PhaseVoting:
		r.broadcast(evPhaseChange(domain.PhaseVoting, r.playerList()))
	case phaseChanged && gs.Phase == domain.PhaseDiscussion:
		r.broadcast(evPhaseChange(domain.PhaseDiscussion, r.playerList()))
		r.broadcast(evNextSpeaker(gs.CurrentSpeaker()))
	default:
		r.broadcast(evNextSpeaker(gs.CurrentSpeaker()))
	}

	return gs.Clone(), nil
}

// SubmitVote records one ballot and, once every alive player has voted,
// resolves the tally: a unique top target is eliminated, a tie forces a
// revote among the tied candidates only. The revote loop carries no
// termination bound; a persistent tie keeps cycling.
func (s *Service) SubmitVote(ctx context.Context, code, voterID, targetID string) (votesCount, totalVoters int, err error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return 0, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return 0, 0, domain.ErrNoActiveGame
	}
	if r.game.Phase != domain.PhaseVoting && r.game.Phase != domain.PhaseRevote {
		return 0, 0, domain.ErrInvalidVote
	}

	voter := r.playerByID(voterID)
	target := r.playerByID(targetID)
	if voter == nil || target == nil {
		return 0, 0, domain.ErrPlayerNotFound
	}
	if !voter.isAlive || !target.isAlive {
		return 0, 0, domain.ErrInvalidVote
	}
	if r.game.Phase == domain.PhaseRevote && !contains(r.game.RevoteCandidates, targetID) {
		return 0, 0, domain.ErrInvalidVote
	}

	gs := r.game.Clone()
	gs.Votes[voterID] = targetID

	alive := r.aliveCount()
	votesCount = len(gs.Votes)

	var (
		events     []Event
		eliminated string
		counts     map[string]int
	)
	events = append(events, evVoteUpdate(votesCount, alive))

	if votesCount >= alive {
		var top []string
		counts, top = tally(gs.Votes)
		eliminated = resolveVotes(gs, top)
		if eliminated == "" {
			names := make([]string, 0, len(top))
			for _, id := range top {
				if p := r.playerByID(id); p != nil {
					names = append(names, p.name)
				}
			}
			events = append(events, evTieVote(top, names))
		} else {
			name := ""
			if p := r.playerByID(eliminated); p != nil {
				name = p.name
			}
			events = append(events, evPlayerEliminated(eliminated, name, counts))
		}
	}

	now := s.clock().Unix()
	if eliminated != "" {
		if err := s.store.SetPlayerAlive(ctx, eliminated, false); err != nil {
			return 0, 0, err
		}
	}
	if err := s.store.SaveGameState(ctx, r.rowID, r.status, gs, now); err != nil {
		return 0, 0, err
	}

	if eliminated != "" {
		if p := r.playerByID(eliminated); p != nil {
			p.isAlive = false
		}
	}
	r.game = gs
	r.updatedAt = now

	for _, ev := range events {
		r.broadcast(ev)
	}

	return votesCount, alive, nil
}

// RevealRole records the eliminated player's role and runs the win check:
// a winner ends the game, otherwise the room moves to next_round.
func (s *Service) RevealRole(ctx context.Context, code, playerID string) (domain.Role, domain.Winner, error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return domain.RoleNone, "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.game == nil {
		return domain.RoleNone, "", domain.ErrNoActiveGame
	}
	player := r.playerByID(playerID)
	if player == nil {
		return domain.RoleNone, "", domain.ErrPlayerNotFound
	}

	gs := r.game.Clone()
	gs.RevealedRoles[playerID] = player.role

	winner, over := checkWin(r.playerList())
	status := r.status
	if over {
		gs.Winner = winner
		gs.Phase = domain.PhaseGameOver
		status = domain.StatusEnded
	} else {
		gs.Phase = domain.PhaseNextRound
	}

	now := s.clock().Unix()
	if err := s.store.SaveGameState(ctx, r.rowID, status, gs, now); err != nil {
		return domain.RoleNone, "", err
	}

	r.game = gs
	r.status = status
	r.updatedAt = now

	r.broadcast(evRoleRevealed(playerID, player.name, player.role))
	if over {
		r.broadcast(evGameOver(winner, gs.MajorityWord, gs.ImposterWord))
		s.log.Info().Str("room", code).Str("winner", string(winner)).Msg("game over")
	} else {
		r.broadcast(evContinueGame())
	}

	return player.role, winner, nil
}

// PlayAgain resets the room to the lobby: game state cleared, every player
// alive with no role, ready for another start_game.
func (s *Service) PlayAgain(ctx context.Context, code string) (domain.RoomSnapshot, error) {
	r, err := s.room(ctx, code)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := s.clock().Unix()
	if err := s.store.ResetPlayers(ctx, r.rowID); err != nil {
		return domain.RoomSnapshot{}, err
	}
	if err := s.store.SaveGameState(ctx, r.rowID, domain.StatusLobby, nil, now); err != nil {
		return domain.RoomSnapshot{}, err
	}

	for _, p := range r.players {
		p.isAlive = true
		p.role = domain.RoleNone
	}
	r.game = nil
	r.status = domain.StatusLobby
	r.updatedAt = now

	snap := r.snapshot()
	r.broadcast(evBackToLobby(snap))

	s.log.Info().Str("room", code).Msg("room reset to lobby")
	return snap, nil
}

// Heartbeat records a poll client's last-seen time. Nothing evicts on it;
// the primitive is exposed, the policy is not.
func (s *Service) Heartbeat(ctx context.Context, code, playerID string) error {
	if err := s.store.Heartbeat(ctx, playerID); err != nil {
		return err
	}
	if r := s.reg.Lookup(code); r != nil {
		r.mu.Lock()
		if p := r.playerByID(playerID); p != nil {
			p.lastSeen = s.clock()
		}
		r.mu.Unlock()
	}
	return nil
}

// Snapshot reads the room's current observable state, preferring the
// resident copy.
func (s *Service) Snapshot(ctx context.Context, code string) (domain.RoomSnapshot, error) {
	if r := s.reg.Lookup(code); r != nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.snapshot(), nil
	}
	return s.store.Snapshot(ctx, code)
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
