package database

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Joel009brave/ref-bot/models"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// ErrNotFound is returned when a user or gift request does not exist.
var ErrNotFound = errors.New("database: not found")

// Store is the single owner of persisted ledger state. Every mutation goes
// through it and is serialized by an internal lock, so balance adjustments
// and status transitions never see lost updates.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log *zap.Logger
}

func New(dbFile string, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY
	// and keeps in-memory test databases alive.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("database initialized", zap.String("file", dbFile))
	return s, nil
}

func (s *Store) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			balance INTEGER NOT NULL DEFAULT 0,
			referrer_id INTEGER,
			join_date INTEGER NOT NULL,
			is_member INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS referral_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			referrer_id INTEGER NOT NULL,
			referred_id INTEGER NOT NULL,
			balance_added INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gift_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			username TEXT,
			bal_cost INTEGER NOT NULL,
			reward INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at INTEGER NOT NULL,
			decided_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gift_requests_pending
			ON gift_requests (status, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

// UpsertUser inserts the user if absent and reports whether a row was
// created. An existing row is left untouched, referrer included, so
// repeated /start contacts cannot reset a balance or rewrite a referrer.
func (s *Store) UpsertUser(userID int64, username, firstName string, referrerID *int64, isMember bool, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO users (user_id, username, first_name, balance, referrer_id, join_date, is_member)
		 VALUES (?, ?, ?, 0, ?, ?, ?)`,
		userID, username, firstName, referrerID, now.Unix(), isMember)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) GetUser(userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT user_id, username, first_name, balance, referrer_id, join_date, is_member
		 FROM users WHERE user_id = ?`, userID)
	return scanUser(row)
}

// AdjustBalance applies a relative delta to the user's balance and reports
// whether a row was updated. The delta may be negative; the gift-purchase
// path checks funds before calling so refunds stay symmetric.
func (s *Store) AdjustBalance(userID int64, delta int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE users SET balance = balance + ? WHERE user_id = ?`, delta, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListReferredBy returns the users referred by userID, most recent first.
func (s *Store) ListReferredBy(userID int64) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT user_id, username, first_name, balance, referrer_id, join_date, is_member
		 FROM users WHERE referrer_id = ?
		 ORDER BY join_date DESC, user_id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// TopByBalance returns up to n users ordered by balance descending.
// Ties break on join date then id, so the order is stable.
func (s *Store) TopByBalance(n int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT user_id, username, first_name, balance, referrer_id, join_date, is_member
		 FROM users ORDER BY balance DESC, join_date ASC, user_id ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// ListUsers returns up to n users, most recent signup first.
func (s *Store) ListUsers(n int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT user_id, username, first_name, balance, referrer_id, join_date, is_member
		 FROM users ORDER BY join_date DESC, user_id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// AppendReferralRecord adds an audit entry to the referral log. The log is
// append-only; nothing updates or deletes rows.
func (s *Store) AppendReferralRecord(referrerID, referredID, amount int64, status models.ReferralStatus, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO referral_logs (referrer_id, referred_id, balance_added, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		referrerID, referredID, amount, status, now.Unix())
	return err
}

// ListReferralLog returns the newest n audit entries with usernames joined in.
func (s *Store) ListReferralLog(n int) ([]models.ReferralRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT rl.id, rl.referrer_id, rl.referred_id, rl.balance_added, rl.status, rl.created_at,
		        COALESCE(u1.username, ''), COALESCE(u2.username, '')
		 FROM referral_logs rl
		 LEFT JOIN users u1 ON rl.referrer_id = u1.user_id
		 LEFT JOIN users u2 ON rl.referred_id = u2.user_id
		 ORDER BY rl.id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ReferralRecord
	for rows.Next() {
		var rec models.ReferralRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.ReferrerID, &rec.ReferredID, &rec.Amount,
			&rec.Status, &createdAt, &rec.ReferrerUsername, &rec.ReferredUsername); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CreateGiftRequest inserts a pending request and returns its id. Ids are
// assigned by the database and only grow.
func (s *Store) CreateGiftRequest(userID int64, username string, cost, reward int64, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO gift_requests (user_id, username, bal_cost, reward, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, username, cost, reward, models.GiftPending, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetGiftRequest(id int64) (*models.GiftRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		`SELECT id, user_id, username, bal_cost, reward, status, created_at, decided_at
		 FROM gift_requests WHERE id = ?`, id)
	req, err := scanGiftRequestFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return req, err
}

// TransitionGiftRequest moves a request from one status to another only if
// its current status still matches. The conditional update is the sole
// guard against an admin decision and the sweeper settling the same
// request twice.
func (s *Store) TransitionGiftRequest(id int64, from, to models.GiftStatus, decidedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE gift_requests SET status = ?, decided_at = ? WHERE id = ? AND status = ?`,
		to, decidedAt.Unix(), id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListPendingExpired returns pending requests whose decision window has
// elapsed at the given time.
func (s *Store) ListPendingExpired(now time.Time, window time.Duration) ([]models.GiftRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, user_id, username, bal_cost, reward, status, created_at, decided_at
		 FROM gift_requests
		 WHERE status = ? AND created_at + ? <= ?
		 ORDER BY id ASC`,
		models.GiftPending, int64(window.Seconds()), now.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.GiftRequest
	for rows.Next() {
		req, err := scanGiftRequestFrom(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// GetStats returns signup counts for the admin panel.
func (s *Store) GetStats(now time.Time) (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats models.Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&stats.Total); err != nil {
		return nil, err
	}

	periods := []struct {
		since time.Time
		dst   *int
	}{
		{now.Add(-24 * time.Hour), &stats.Day},
		{now.Add(-7 * 24 * time.Hour), &stats.Week},
		{now.Add(-30 * 24 * time.Hour), &stats.Month},
	}
	for _, p := range periods {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE join_date >= ?`, p.since.Unix()).Scan(p.dst); err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUserFrom(sc scanner) (*models.User, error) {
	var user models.User
	var referrerID sql.NullInt64
	var joinDate int64

	err := sc.Scan(&user.UserID, &user.Username, &user.FirstName, &user.Balance,
		&referrerID, &joinDate, &user.IsMember)
	if err != nil {
		return nil, err
	}
	if referrerID.Valid {
		user.ReferrerID = &referrerID.Int64
	}
	user.JoinDate = time.Unix(joinDate, 0)
	return &user, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user, err := scanUserFrom(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return user, err
}

func scanUsers(rows *sql.Rows) ([]models.User, error) {
	var users []models.User
	for rows.Next() {
		user, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanGiftRequestFrom(sc scanner) (*models.GiftRequest, error) {
	var req models.GiftRequest
	var createdAt int64
	var decidedAt sql.NullInt64

	err := sc.Scan(&req.ID, &req.UserID, &req.Username, &req.BalCost, &req.Reward,
		&req.Status, &createdAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	req.CreatedAt = time.Unix(createdAt, 0)
	if decidedAt.Valid {
		t := time.Unix(decidedAt.Int64, 0)
		req.DecidedAt = &t
	}
	return &req, nil
}
