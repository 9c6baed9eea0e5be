package store

import (
	"database/sql"
	"fmt"
	"time"

	"chorebank/internal/model"
)

type ChoreStore struct {
	q Querier
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{q: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *ChoreStore) WithTx(tx *sql.Tx) *ChoreStore {
	return &ChoreStore{q: tx}
}

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	var dueDate sql.NullString

	err := scanner.Scan(
		&c.ID, &c.Title, &c.Description, &c.Points, &c.Recurrence,
		&dueDate, &c.Status, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dueDate.Valid && dueDate.String != "" {
		d, err := parseDate(dueDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse due date %q: %w", dueDate.String, err)
		}
		c.DueDate = &d
	}
	return &c, nil
}

const choreCols = `id, title, description, points, recurrence, due_date, status, created_by, created_at`

const choreColsPrefixed = `c.id, c.title, c.description, c.points, c.recurrence, c.due_date, c.status, c.created_by, c.created_at`

func (s *ChoreStore) Create(title, description string, points int, recurrence model.Recurrence, dueDate *time.Time, createdBy int64) (*model.Chore, error) {
	var due sql.NullString
	if dueDate != nil {
		due = sql.NullString{String: formatDate(*dueDate), Valid: true}
	}

	result, err := s.q.Exec(
		`INSERT INTO chores (title, description, points, recurrence, due_date, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		title, description, points, recurrence, due, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.q.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	c.AssigneeIDs, err = s.AssigneeIDs(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ChoreStore) AddAssignees(choreID int64, userIDs []int64) error {
	for _, uid := range userIDs {
		if _, err := s.q.Exec(
			`INSERT OR IGNORE INTO chore_assignments (chore_id, user_id) VALUES (?, ?)`,
			choreID, uid,
		); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

func (s *ChoreStore) AssigneeIDs(choreID int64) ([]int64, error) {
	rows, err := s.q.Query(
		`SELECT user_id FROM chore_assignments WHERE chore_id = ? ORDER BY user_id ASC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignees: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListFilter narrows List results. A nil field means no filtering on it.
// VisibleOn excludes chores whose due date is strictly after the given day,
// which is how upcoming recurring instances stay hidden until due.
type ListFilter struct {
	Status     *model.ChoreStatus
	AssigneeID *int64
	VisibleOn  *time.Time
}

func (s *ChoreStore) List(f ListFilter) ([]model.Chore, error) {
	query := `SELECT DISTINCT ` + choreColsPrefixed + ` FROM chores c`
	var where []string
	var args []any

	if f.AssigneeID != nil {
		query += ` JOIN chore_assignments ca ON ca.chore_id = c.id`
		where = append(where, `ca.user_id = ?`)
		args = append(args, *f.AssigneeID)
	}
	if f.Status != nil {
		where = append(where, `c.status = ?`)
		args = append(args, *f.Status)
	}
	if f.VisibleOn != nil {
		where = append(where, `(c.due_date IS NULL OR c.due_date <= ?)`)
		args = append(args, formatDate(*f.VisibleOn))
	}

	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	query += ` ORDER BY c.id DESC`

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chores: %w", err)
	}
	rows.Close()

	for i := range chores {
		ids, err := s.AssigneeIDs(chores[i].ID)
		if err != nil {
			return nil, err
		}
		chores[i].AssigneeIDs = ids
	}
	return chores, nil
}

// ListPendingApproval returns the approvals queue, oldest first.
func (s *ChoreStore) ListPendingApproval() ([]model.Chore, error) {
	rows, err := s.q.Query(
		`SELECT `+choreCols+` FROM chores WHERE status = ? ORDER BY id ASC`,
		model.ChoreDonePending,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending chores: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chores: %w", err)
	}
	rows.Close()

	for i := range chores {
		ids, err := s.AssigneeIDs(chores[i].ID)
		if err != nil {
			return nil, err
		}
		chores[i].AssigneeIDs = ids
	}
	return chores, nil
}

// UpdateStatus flips a chore from one status to another. It returns false
// when the chore was not in the expected from status, which is the
// optimistic guard against concurrent transitions: the losing writer sees
// zero rows affected.
func (s *ChoreStore) UpdateStatus(id int64, from, to model.ChoreStatus) (bool, error) {
	result, err := s.q.Exec(
		`UPDATE chores SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("update chore status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// --- Event methods ---

func scanChoreEvent(scanner interface{ Scan(...any) error }) (*model.ChoreEvent, error) {
	var e model.ChoreEvent
	var from sql.NullString

	err := scanner.Scan(&e.ID, &e.ChoreID, &from, &e.ToStatus, &e.ActorID, &e.Note, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	if from.Valid {
		st := model.ChoreStatus(from.String)
		e.FromStatus = &st
	}
	return &e, nil
}

const choreEventCols = `id, chore_id, from_status, to_status, actor_id, note, created_at`

func (s *ChoreStore) AppendEvent(choreID int64, from *model.ChoreStatus, to model.ChoreStatus, actorID int64, note string) error {
	var f sql.NullString
	if from != nil {
		f = sql.NullString{String: string(*from), Valid: true}
	}

	_, err := s.q.Exec(
		`INSERT INTO chore_events (chore_id, from_status, to_status, actor_id, note) VALUES (?, ?, ?, ?, ?)`,
		choreID, f, to, actorID, note,
	)
	if err != nil {
		return fmt.Errorf("insert chore event: %w", err)
	}
	return nil
}

// ListEvents returns a chore's transition history, newest first.
func (s *ChoreStore) ListEvents(choreID int64) ([]model.ChoreEvent, error) {
	rows, err := s.q.Query(
		`SELECT `+choreEventCols+` FROM chore_events WHERE chore_id = ? ORDER BY id DESC`,
		choreID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chore events: %w", err)
	}
	defer rows.Close()

	var events []model.ChoreEvent
	for rows.Next() {
		e, err := scanChoreEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
