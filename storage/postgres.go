package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/faizsupianwork/temberang/domain"
)

// "23505" is the PostgreSQL error code for unique_violation
const pgUniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (repo *PostgresRepo) Close() {
	repo.pool.Close()
}

func wrapDBErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
}

func (repo *PostgresRepo) RoomByCode(ctx context.Context, code string) (domain.RoomRecord, error) {
	row := repo.pool.QueryRow(ctx, `
		SELECT id, room_code, host_id, status, settings, game_state,
		       EXTRACT(EPOCH FROM updated_at)::bigint
		FROM rooms WHERE room_code = $1`, code)

	var (
		rec          domain.RoomRecord
		settingsJSON []byte
		gameJSON     []byte
	)
	err := row.Scan(&rec.ID, &rec.Code, &rec.HostID, &rec.Status, &settingsJSON, &gameJSON, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RoomRecord{}, domain.ErrRoomNotFound
		}
		return domain.RoomRecord{}, wrapDBErr(err)
	}

	if err := json.Unmarshal(settingsJSON, &rec.Settings); err != nil {
		return domain.RoomRecord{}, wrapDBErr(err)
	}
	if len(gameJSON) > 0 {
		rec.GameState = &domain.GameState{}
		if err := json.Unmarshal(gameJSON, rec.GameState); err != nil {
			return domain.RoomRecord{}, wrapDBErr(err)
		}
	}
	return rec, nil
}

func (repo *PostgresRepo) PlayersByRoom(ctx context.Context, roomID int64) ([]domain.Player, error) {
	rows, err := repo.pool.Query(ctx, `
		SELECT player_id, player_name, is_host, is_alive, role, joined_at
		FROM players WHERE room_id = $1 ORDER BY joined_at, player_id`, roomID)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var (
			p    domain.Player
			role *string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.IsHost, &p.IsAlive, &role, &p.JoinedAt); err != nil {
			return nil, wrapDBErr(err)
		}
		if role != nil {
			p.Role = domain.Role(*role)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(err)
	}
	return players, nil
}

func (repo *PostgresRepo) Snapshot(ctx context.Context, code string) (domain.RoomSnapshot, error) {
	rec, err := repo.RoomByCode(ctx, code)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	players, err := repo.PlayersByRoom(ctx, rec.ID)
	if err != nil {
		return domain.RoomSnapshot{}, err
	}
	return domain.RoomSnapshot{
		RoomCode:  rec.Code,
		HostID:    rec.HostID,
		Status:    rec.Status,
		Settings:  rec.Settings,
		GameState: rec.GameState,
		Players:   players,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (repo *PostgresRepo) CreateRoom(ctx context.Context, code, hostID string, settings domain.Settings, updatedAt int64) (int64, error) {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return 0, wrapDBErr(err)
	}

	row := repo.pool.QueryRow(ctx, `
		INSERT INTO rooms (room_code, host_id, status, settings, updated_at)
		VALUES ($1, $2, 'lobby', $3, to_timestamp($4))
		RETURNING id`, code, hostID, settingsJSON, updatedAt)

	var id int64
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, domain.ErrDuplicateRoomCode
		}
		return 0, wrapDBErr(err)
	}
	return id, nil
}

// InsertPlayer upserts on player_id so a rejoin with the same id does not
// fail, and bumps the room's updated_at in the same transaction so pollers
// observe the membership change.
func (repo *PostgresRepo) InsertPlayer(ctx context.Context, roomID int64, playerID, name string, isHost bool, updatedAt int64) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO players (player_id, room_id, player_name, is_host)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO UPDATE SET player_name = $3, room_id = $2`,
		playerID, roomID, name, isHost)
	if err != nil {
		return wrapDBErr(err)
	}

	if err := touchRoom(ctx, tx, roomID, updatedAt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// DeletePlayer removes the player row and, with newHostID set, hands the
// room over to the new host in the same transaction. Either everything
// commits or nothing does, so a failed departure can simply be retried.
func (repo *PostgresRepo) DeletePlayer(ctx context.Context, roomID int64, playerID, newHostID string, updatedAt int64) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr(err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM players WHERE player_id = $1`, playerID)
	if err != nil {
		return wrapDBErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}

	if newHostID != "" {
		_, err = tx.Exec(ctx, `UPDATE rooms SET host_id = $1 WHERE id = $2`, newHostID, roomID)
		if err != nil {
			return wrapDBErr(err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE players SET is_host = (player_id = $1) WHERE room_id = $2`, newHostID, roomID)
		if err != nil {
			return wrapDBErr(err)
		}
	}

	if err := touchRoom(ctx, tx, roomID, updatedAt); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (repo *PostgresRepo) UpdateSettings(ctx context.Context, roomID int64, settings domain.Settings, updatedAt int64) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return wrapDBErr(err)
	}
	_, err = repo.pool.Exec(ctx, `
		UPDATE rooms SET settings = $1, updated_at = to_timestamp($2) WHERE id = $3`,
		settingsJSON, updatedAt, roomID)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// SaveGameState writes status and game state together; a nil state clears
// the column (back to lobby).
func (repo *PostgresRepo) SaveGameState(ctx context.Context, roomID int64, status domain.RoomStatus, gs *domain.GameState, updatedAt int64) error {
	var gameJSON []byte
	if gs != nil {
		var err error
		gameJSON, err = json.Marshal(gs)
		if err != nil {
			return wrapDBErr(err)
		}
	}
	_, err := repo.pool.Exec(ctx, `
		UPDATE rooms SET status = $1, game_state = $2, updated_at = to_timestamp($3) WHERE id = $4`,
		status, gameJSON, updatedAt, roomID)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (repo *PostgresRepo) SetPlayerRoles(ctx context.Context, roles map[string]domain.Role) error {
	tx, err := repo.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr(err)
	}
	defer tx.Rollback(ctx)

	for playerID, role := range roles {
		if _, err := tx.Exec(ctx, `UPDATE players SET role = $1 WHERE player_id = $2`, string(role), playerID); err != nil {
			return wrapDBErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (repo *PostgresRepo) SetPlayerAlive(ctx context.Context, playerID string, alive bool) error {
	tag, err := repo.pool.Exec(ctx, `UPDATE players SET is_alive = $1 WHERE player_id = $2`, alive, playerID)
	if err != nil {
		return wrapDBErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (repo *PostgresRepo) ResetPlayers(ctx context.Context, roomID int64) error {
	_, err := repo.pool.Exec(ctx, `
		UPDATE players SET role = NULL, is_alive = TRUE WHERE room_id = $1`, roomID)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func (repo *PostgresRepo) Heartbeat(ctx context.Context, playerID string) error {
	tag, err := repo.pool.Exec(ctx, `UPDATE players SET updated_at = now() WHERE player_id = $1`, playerID)
	if err != nil {
		return wrapDBErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// PickWordPair samples one pair uniformly. With anyCategory set (a custom
// wordpack is selected) it ignores the category filter and samples across
// every pair on file.
func (repo *PostgresRepo) PickWordPair(ctx context.Context, categories []string, anyCategory bool) (domain.WordPair, error) {
	var row pgx.Row
	if anyCategory || len(categories) == 0 {
		row = repo.pool.QueryRow(ctx, `
			SELECT wp.majority_word, wp.imposter_word, COALESCE(c.name_ms, 'General')
			FROM word_pairs wp
			LEFT JOIN categories c ON wp.category_id = c.id
			ORDER BY RANDOM() LIMIT 1`)
	} else {
		row = repo.pool.QueryRow(ctx, `
			SELECT wp.majority_word, wp.imposter_word, c.name_ms
			FROM word_pairs wp
			JOIN categories c ON wp.category_id = c.id
			WHERE c.name = ANY($1)
			ORDER BY RANDOM() LIMIT 1`, categories)
	}

	var pair domain.WordPair
	err := row.Scan(&pair.MajorityWord, &pair.ImposterWord, &pair.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WordPair{}, domain.ErrNoWordPairs
		}
		return domain.WordPair{}, wrapDBErr(err)
	}
	return pair, nil
}

func (repo *PostgresRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := repo.pool.Query(ctx, `SELECT id, name, name_ms FROM categories ORDER BY id`)
	if err != nil {
		return nil, wrapDBErr(err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NameMS); err != nil {
			return nil, wrapDBErr(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(err)
	}
	return categories, nil
}

func (repo *PostgresRepo) SaveWordPack(ctx context.Context, id, name string, pairs []domain.WordPackPair) error {
	pairsJSON, err := json.Marshal(pairs)
	if err != nil {
		return wrapDBErr(err)
	}
	_, err = repo.pool.Exec(ctx, `
		INSERT INTO word_packs (id, name, pairs) VALUES ($1, $2, $3)`, id, name, pairsJSON)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

func touchRoom(ctx context.Context, tx pgx.Tx, roomID int64, updatedAt int64) error {
	_, err := tx.Exec(ctx, `UPDATE rooms SET updated_at = to_timestamp($1) WHERE id = $2`, updatedAt, roomID)
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}
