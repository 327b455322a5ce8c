package game

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/faizsupianwork/temberang/domain"
)

const maxWordpackBytes = 5 << 20

// ReferenceStore serves the read-mostly reference data the handlers need
// outside the mutation path.
type ReferenceStore interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	SaveWordPack(ctx context.Context, id, name string, pairs []domain.WordPackPair) error
}

type Handler struct {
	svc      *Service
	refs     ReferenceStore
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc *Service, refs ReferenceStore, log zerolog.Logger) *Handler {
	return &Handler{
		svc:  svc,
		refs: refs,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// statusFor maps the domain error taxonomy onto HTTP statuses: absent things
// are 404, state conflicts 409, bad input 400, everything else 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRoomFull), errors.Is(err, domain.ErrRoomStarted),
		errors.Is(err, domain.ErrDuplicateRoomCode):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrInvalidVote),
		errors.Is(err, domain.ErrNotEnoughPlayers), errors.Is(err, domain.ErrNotHost),
		errors.Is(err, domain.ErrNoActiveGame), errors.Is(err, domain.ErrNoWordPairs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"success": false, "error": err.Error()})
}

// --- CRUD ---

func (h *Handler) CreateRoomHandler(c *gin.Context) {
	var req struct {
		PlayerName string `json:"player_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PlayerName) == "" {
		fail(c, domain.ErrMissingField)
		return
	}

	code, playerID, err := h.svc.CreateRoom(c.Request.Context(), strings.TrimSpace(req.PlayerName))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"room_code":   code,
		"player_id":   playerID,
		"player_name": req.PlayerName,
		"is_host":     true,
	})
}

func (h *Handler) GetRoomHandler(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	snap, err := h.svc.Snapshot(c.Request.Context(), code)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})
}

func (h *Handler) GetCategoriesHandler(c *gin.Context) {
	categories, err := h.refs.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "categories": categories})
}

// UploadWordpackHandler ingests a CSV of word pairs. The header must carry
// "majoriti" and "imposter" columns; rows missing either side are skipped.
func (h *Handler) UploadWordpackHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWordpackBytes)

	file, header, err := c.Request.FormFile("wordpack")
	if err != nil {
		fail(c, domain.ErrMissingField)
		return
	}
	defer file.Close()

	pairs, err := parseWordpackCSV(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	id := uuid.NewString()
	if err := h.refs.SaveWordPack(c.Request.Context(), id, header.Filename, pairs); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"wordpack_id": id,
		"word_count":  len(pairs),
	})
}

func parseWordpackCSV(r io.Reader) ([]domain.WordPackPair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.New("invalid CSV: header row required")
	}

	majoritiIdx, imposterIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "majoriti":
			majoritiIdx = i
		case "imposter":
			imposterIdx = i
		}
	}
	if majoritiIdx < 0 || imposterIdx < 0 {
		return nil, errors.New(`invalid CSV: header must contain "majoriti" and "imposter"`)
	}

	var pairs []domain.WordPackPair
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.New("invalid CSV: malformed row")
		}
		if len(row) <= majoritiIdx || len(row) <= imposterIdx {
			continue
		}
		majoriti := strings.TrimSpace(row[majoritiIdx])
		imposter := strings.TrimSpace(row[imposterIdx])
		if majoriti == "" || imposter == "" {
			continue
		}
		pairs = append(pairs, domain.WordPackPair{Majoriti: majoriti, Imposter: imposter})
	}
	if len(pairs) == 0 {
		return nil, errors.New("no valid word pairs found")
	}
	return pairs, nil
}

// --- Poll transport ---

type pollRequest struct {
	Action     string           `json:"action"`
	RoomCode   string           `json:"room_code"`
	PlayerID   string           `json:"player_id"`
	PlayerName string           `json:"player_name"`
	Settings   *domain.Settings `json:"settings"`
	VoterID    string           `json:"voter_id"`
	TargetID   string           `json:"target_id"`
	LastUpdate int64            `json:"last_update"`
}

// PollActionHandler dispatches the shared action vocabulary for clients that
// cannot hold a websocket open. get_updates blocks up to the poll ceiling.
func (h *Handler) PollActionHandler(c *gin.Context) {
	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, domain.ErrMissingField)
		return
	}
	req.RoomCode = strings.ToUpper(req.RoomCode)
	ctx := c.Request.Context()

	switch req.Action {
	case "join_room":
		snap, err := h.svc.Join(ctx, req.RoomCode, req.PlayerID, strings.TrimSpace(req.PlayerName), nil)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "room": snap})

	case "update_settings":
		if req.Settings == nil {
			fail(c, domain.ErrMissingField)
			return
		}
		if err := h.svc.UpdateSettings(ctx, req.RoomCode, *req.Settings); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "settings": req.Settings})

	case "start_game":
		gs, err := h.svc.StartGame(ctx, req.RoomCode, req.PlayerID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "game_state": gs})

	case "next_turn":
		gs, err := h.svc.NextTurn(ctx, req.RoomCode)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "game_state": gs})

	case "submit_vote":
		votes, total, err := h.svc.SubmitVote(ctx, req.RoomCode, req.VoterID, req.TargetID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "votes_count": votes, "total_voters": total})

	case "reveal_role":
		role, winner, err := h.svc.RevealRole(ctx, req.RoomCode, req.PlayerID)
		if err != nil {
			fail(c, err)
			return
		}
		resp := gin.H{"success": true, "role": role}
		if winner != "" {
			resp["winner"] = winner
		}
		c.JSON(http.StatusOK, resp)

	case "play_again":
		if _, err := h.svc.PlayAgain(ctx, req.RoomCode); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	case "get_updates":
		snap, ts, err := h.svc.WaitForUpdate(ctx, req.RoomCode, req.LastUpdate)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "room": snap, "timestamp": ts})

	case "heartbeat":
		if err := h.svc.Heartbeat(ctx, req.RoomCode, req.PlayerID); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown action"})
	}
}

// --- Push transport ---

type clientMessage struct {
	Type       string           `json:"type"`
	RoomCode   string           `json:"room_code"`
	PlayerID   string           `json:"player_id"`
	PlayerName string           `json:"player_name"`
	Settings   *domain.Settings `json:"settings"`
	VoterID    string           `json:"voter_id"`
	TargetID   string           `json:"target_id"`
}

// WebsocketHandler owns one connection for its whole life: upgrade, dispatch
// loop, disconnect cleanup. The session binds to a player on the first
// successful register or join_room and the room takes it from there.
func (h *Handler) WebsocketHandler(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("ip", c.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	netConn := NewWebsocketConn(conn)
	sess := newPushSession(netConn)
	go sess.WritePump()

	var boundRoom, boundPlayer string
	limiter := rate.NewLimiter(rate.Limit(10), 20)
	ctx := context.Background()

	defer func() {
		if boundRoom != "" {
			h.svc.Disconnect(ctx, boundRoom, boundPlayer, sess)
		}
		sess.Close()
	}()

	for {
		data, err := netConn.Read()
		if err != nil {
			return
		}
		if !limiter.Allow() {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			continue
		}
		msg.RoomCode = strings.ToUpper(msg.RoomCode)

		switch msg.Type {
		case "register":
			if _, err := h.svc.Register(ctx, msg.RoomCode, msg.PlayerID, sess); err != nil {
				sess.Send(evError(err.Error()))
				continue
			}
			boundRoom, boundPlayer = msg.RoomCode, msg.PlayerID

		case "join_room":
			if _, err := h.svc.Join(ctx, msg.RoomCode, msg.PlayerID, strings.TrimSpace(msg.PlayerName), sess); err != nil {
				sess.Send(evError(err.Error()))
				continue
			}
			boundRoom, boundPlayer = msg.RoomCode, msg.PlayerID

		case "leave_room":
			if err := h.svc.Leave(ctx, msg.RoomCode, msg.PlayerID); err != nil {
				sess.Send(evError(err.Error()))
				continue
			}
			if msg.RoomCode == boundRoom && msg.PlayerID == boundPlayer {
				boundRoom, boundPlayer = "", ""
			}

		case "update_settings":
			if msg.Settings == nil {
				sess.Send(evError(domain.ErrMissingField.Error()))
				continue
			}
			if err := h.svc.UpdateSettings(ctx, msg.RoomCode, *msg.Settings); err != nil {
				sess.Send(evError(err.Error()))
			}

		case "start_game":
			if _, err := h.svc.StartGame(ctx, msg.RoomCode, msg.PlayerID); err != nil {
				sess.Send(evError(err.Error()))
			}

		case "next_turn":
			if _, err := h.svc.NextTurn(ctx, msg.RoomCode); err != nil {
				sess.Send(evError(err.Error()))
			}

		case "submit_vote":
			if _, _, err := h.svc.SubmitVote(ctx, msg.RoomCode, msg.VoterID, msg.TargetID); err != nil {
				sess.Send(evError(err.Error()))
			}

		case "reveal_role":
			if _, _, err := h.svc.RevealRole(ctx, msg.RoomCode, msg.PlayerID); err != nil {
				sess.Send(evError(err.Error()))
			}

		case "play_again":
			if _, err := h.svc.PlayAgain(ctx, msg.RoomCode); err != nil {
				sess.Send(evError(err.Error()))
			}
		}
	}
}
