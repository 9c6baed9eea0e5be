package store

import (
	"database/sql"
	"fmt"
	"time"

	"chorebank/internal/model"
)

type RewardStore struct {
	q Querier
}

func NewRewardStore(db *sql.DB) *RewardStore {
	return &RewardStore{q: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *RewardStore) WithTx(tx *sql.Tx) *RewardStore {
	return &RewardStore{q: tx}
}

// --- Reward methods ---

func scanReward(scanner interface{ Scan(...any) error }) (*model.Reward, error) {
	var r model.Reward
	var active int
	var limit sql.NullInt64

	err := scanner.Scan(&r.ID, &r.Name, &r.Cost, &active, &limit, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	if limit.Valid {
		l := int(limit.Int64)
		r.LimitPerWeek = &l
	}
	return &r, nil
}

const rewardCols = `id, name, cost, is_active, limit_per_week, created_by, created_at`

func (s *RewardStore) Create(name string, cost int, active bool, limitPerWeek *int, createdBy int64) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}
	var limit sql.NullInt64
	if limitPerWeek != nil {
		limit = sql.NullInt64{Int64: int64(*limitPerWeek), Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO rewards (name, cost, is_active, limit_per_week, created_by) VALUES (?, ?, ?, ?, ?)`,
		name, cost, a, limit, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reward: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RewardStore) GetByID(id int64) (*model.Reward, error) {
	row := s.q.QueryRow(`SELECT `+rewardCols+` FROM rewards WHERE id = ?`, id)
	r, err := scanReward(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	return r, nil
}

// List returns all rewards, active first, then by name.
func (s *RewardStore) List() ([]model.Reward, error) {
	rows, err := s.q.Query(`SELECT ` + rewardCols + ` FROM rewards ORDER BY is_active DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var rewards []model.Reward
	for rows.Next() {
		r, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		rewards = append(rewards, *r)
	}
	return rewards, rows.Err()
}

// SetActive toggles a reward. Cost and name stay immutable once created so
// pending redemptions cannot be repriced.
func (s *RewardStore) SetActive(id int64, active bool) (*model.Reward, error) {
	var a int
	if active {
		a = 1
	}
	_, err := s.q.Exec(`UPDATE rewards SET is_active = ? WHERE id = ?`, a, id)
	if err != nil {
		return nil, fmt.Errorf("update reward: %w", err)
	}
	return s.GetByID(id)
}

// --- Redemption methods ---

func scanRedemption(scanner interface{ Scan(...any) error }) (*model.Redemption, error) {
	var r model.Redemption
	var handledBy sql.NullInt64
	var decidedAt sql.NullTime

	err := scanner.Scan(&r.ID, &r.RewardID, &r.UserID, &r.Status, &r.Note, &handledBy, &r.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}

	if handledBy.Valid {
		r.HandledBy = &handledBy.Int64
	}
	if decidedAt.Valid {
		r.DecidedAt = &decidedAt.Time
	}
	return &r, nil
}

const redemptionCols = `id, reward_id, user_id, status, note, handled_by, created_at, decided_at`

func (s *RewardStore) CreateRedemption(rewardID, userID int64) (*model.Redemption, error) {
	result, err := s.q.Exec(
		`INSERT INTO redemptions (reward_id, user_id) VALUES (?, ?)`,
		rewardID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetRedemptionByID(id)
}

func (s *RewardStore) GetRedemptionByID(id int64) (*model.Redemption, error) {
	row := s.q.QueryRow(`SELECT `+redemptionCols+` FROM redemptions WHERE id = ?`, id)
	r, err := scanRedemption(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return r, nil
}

// ListRedemptions returns redemptions newest first, optionally restricted to
// one requesting user.
func (s *RewardStore) ListRedemptions(userID *int64) ([]model.Redemption, error) {
	query := `SELECT ` + redemptionCols + ` FROM redemptions`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []model.Redemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redemption: %w", err)
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// DecideRedemption flips a redemption out of REQUESTED, recording who
// decided and when. It returns false if the redemption was not in the
// expected from status — the losing side of a concurrent decision.
func (s *RewardStore) DecideRedemption(id int64, from, to model.RedemptionStatus, note string, handledBy int64, decidedAt time.Time) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE redemptions SET status = ?, note = ?, handled_by = ?, decided_at = ? WHERE id = ? AND status = ?`,
		to, note, handledBy, formatTime(decidedAt), id, from,
	)
	if err != nil {
		return false, fmt.Errorf("decide redemption: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// CountApprovedSince counts a user's APPROVED redemptions of one reward
// decided at or after the given instant. Used for the fixed-week limit.
func (s *RewardStore) CountApprovedSince(userID, rewardID int64, since time.Time) (int, error) {
	var n int
	err := s.q.QueryRow(
		`SELECT COUNT(*) FROM redemptions WHERE user_id = ? AND reward_id = ? AND status = ? AND decided_at >= ?`,
		userID, rewardID, model.RedemptionApproved, formatTime(since),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count approved redemptions: %w", err)
	}
	return n, nil
}
