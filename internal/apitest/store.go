package apitest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/billsplitter/internal/calculator"
	"github.com/mmynk/billsplitter/internal/models"
)

// ErrNotFound is wrapped by every lookup of a missing row.
var ErrNotFound = errors.New("not found")

// Store is the SQLite persistence behind the reference API.
type Store struct {
	db *sql.DB
}

// NewStore opens a store at dbPath, creating parent directories and running
// migrations. An empty dbPath opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	dsn := dbPath
	if dbPath == "" {
		dsn = fmt.Sprintf("file:%s?mode=memory", uuid.NewString())
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the in-memory database alive and makes the
	// foreign_keys pragma apply to every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, name string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read user id: %w", err)
	}
	return &models.User{ID: id, Name: name}, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, "SELECT id, name FROM users WHERE id = ?", id).
		Scan(&user.ID, &user.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

const billColumns = `
	b.id, COALESCE(b.description, ''), b.total_amount, b.tax, b.tip,
	b.tip_split_evenly, b.created_at, u.id, u.name`

const billFrom = `
	FROM bills b LEFT JOIN users u ON u.id = b.created_by`

// CreateBill persists a new bill. Amounts are truncated to cents.
func (s *Store) CreateBill(ctx context.Context, in models.BillCreate) (*models.Bill, error) {
	if _, err := s.GetUser(ctx, in.CreatedBy); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bills (description, total_amount, tax, tip, tip_split_evenly, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Description,
		calculator.Truncate2(in.TotalAmount),
		calculator.Truncate2(in.Tax),
		calculator.Truncate2(in.Tip),
		in.TipSplitEvenly,
		in.CreatedBy,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read bill id: %w", err)
	}
	return s.GetBill(ctx, id)
}

// GetBill retrieves a bill with its creator.
func (s *Store) GetBill(ctx context.Context, id int64) (*models.Bill, error) {
	bill, err := scanBill(s.db.QueryRowContext(ctx, "SELECT"+billColumns+billFrom+" WHERE b.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// ListBills returns every bill ordered by ID.
func (s *Store) ListBills(ctx context.Context) ([]models.Bill, error) {
	return s.queryBills(ctx, "SELECT"+billColumns+billFrom+" ORDER BY b.id")
}

// ListBillsByCreator returns the bills created by one user.
func (s *Store) ListBillsByCreator(ctx context.Context, userID int64) ([]models.Bill, error) {
	return s.queryBills(ctx, "SELECT"+billColumns+billFrom+" WHERE b.created_by = ? ORDER BY b.id", userID)
}

// UpdateBill replaces the scalar fields of a bill.
func (s *Store) UpdateBill(ctx context.Context, id int64, in models.BillCreate) (*models.Bill, error) {
	if _, err := s.GetUser(ctx, in.CreatedBy); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE bills SET description = ?, total_amount = ?, tax = ?, tip = ?,
		 tip_split_evenly = ?, created_by = ? WHERE id = ?`,
		in.Description,
		calculator.Truncate2(in.TotalAmount),
		calculator.Truncate2(in.Tax),
		calculator.Truncate2(in.Tip),
		in.TipSplitEvenly,
		in.CreatedBy,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}
	return s.GetBill(ctx, id)
}

// DeleteBill removes a bill and its shares.
func (s *Store) DeleteBill(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bill_shares WHERE bill_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete shares: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM bills WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bill %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReplaceShares swaps a bill's whole allocation for allocs.
func (s *Store) ReplaceShares(ctx context.Context, billID int64, allocs []calculator.Allocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bill_shares WHERE bill_id = ?", billID); err != nil {
		return fmt.Errorf("failed to clear shares: %w", err)
	}

	for _, a := range allocs {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", a.UserID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("user %d: %w", a.UserID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO bill_shares (bill_id, user_id, owes_amount) VALUES (?, ?, ?)",
			billID, a.UserID, calculator.Truncate2(a.Amount),
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListShares returns the computed shares of a bill in insertion order.
func (s *Store) ListShares(ctx context.Context, billID int64) ([]models.BillShare, error) {
	bill, err := s.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, s.owes_amount
		 FROM bill_shares s JOIN users u ON u.id = s.user_id
		 WHERE s.bill_id = ? ORDER BY s.id`,
		billID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	var (
		owners []models.User
		allocs []calculator.Allocation
	)
	for rows.Next() {
		var (
			owner  models.User
			amount float64
		)
		if err := rows.Scan(&owner.ID, &owner.Name, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		owners = append(owners, owner)
		allocs = append(allocs, calculator.Allocation{UserID: owner.ID, Amount: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	splits := calculator.CalculateShares(allocs, bill.Tax, bill.Tip, bool(bill.TipSplitEvenly))
	shares := make([]models.BillShare, len(splits))
	for i, split := range splits {
		shares[i] = models.BillShare{
			Owner:      owners[i],
			BaseAmount: split.Base,
			TaxAmount:  split.Tax,
			TipAmount:  split.Tip,
			TotalOwed:  split.Total,
		}
	}
	return shares, nil
}

func (s *Store) queryBills(ctx context.Context, query string, args ...any) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	bills := []models.Bill{}
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(row scanner) (*models.Bill, error) {
	var (
		bill        models.Bill
		tipEvenly   bool
		createdAt   string
		creatorID   sql.NullInt64
		creatorName sql.NullString
	)
	err := row.Scan(
		&bill.ID, &bill.Description, &bill.TotalAmount, &bill.Tax, &bill.Tip,
		&tipEvenly, &createdAt, &creatorID, &creatorName,
	)
	if err != nil {
		return nil, err
	}

	bill.TipSplitEvenly = models.Flag(tipEvenly)
	if creatorID.Valid {
		bill.Creator = &models.User{ID: creatorID.Int64, Name: creatorName.String}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		bill.CreatedAt = models.Timestamp{Time: t}
	}
	return &bill, nil
}
