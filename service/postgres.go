package service

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/prgrms-web-devcourse-final-project/WEB5-7-SixPeoplePlz-FE-sub001/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore persists contracts and proofs in PostgreSQL. Supervisor and
// feedback lists are stored as JSONB alongside their parent row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database, applies pending migrations, and
// returns the store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB exposes the underlying handle for lifecycle management.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) SaveContract(ctx context.Context, contract *model.Contract) error {
	supervisorsJSON, err := json.Marshal(contract.Supervisors)
	if err != nil {
		return err
	}

	contract.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contracts (id, creator_id, creator_nickname, title, goal, reward, penalty,
			one_off, start_date, end_date, target_proofs, status, supervisors, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			supervisors = EXCLUDED.supervisors,
			updated_at = EXCLUDED.updated_at`,
		contract.ID, contract.CreatorID, contract.CreatorNickname, contract.Title,
		contract.Goal, contract.Reward, contract.Penalty, contract.OneOff,
		contract.StartDate, contract.EndDate, contract.TargetProofs,
		string(contract.Status), supervisorsJSON, contract.CreatedAt, contract.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	return s.scanContract(s.db.QueryRowContext(ctx, `
		SELECT id, creator_id, creator_nickname, title, goal, reward, penalty,
			one_off, start_date, end_date, target_proofs, status, supervisors, created_at, updated_at
		FROM contracts WHERE id = $1`, id))
}

func (s *PostgresStore) ListContractsByUser(ctx context.Context, userID string) ([]*model.Contract, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, creator_id, creator_nickname, title, goal, reward, penalty,
			one_off, start_date, end_date, target_proofs, status, supervisors, created_at, updated_at
		FROM contracts
		WHERE creator_id = $1
		   OR supervisors @> $2::jsonb
		ORDER BY created_at DESC`,
		userID, fmt.Sprintf(`[{"user_id": %q}]`, userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectContracts(rows)
}

func (s *PostgresStore) ListContractsByStatus(ctx context.Context, statuses ...model.ContractStatus) ([]*model.Contract, error) {
	args := make([]string, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	statusJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, creator_id, creator_nickname, title, goal, reward, penalty,
			one_off, start_date, end_date, target_proofs, status, supervisors, created_at, updated_at
		FROM contracts
		WHERE status IN (SELECT jsonb_array_elements_text($1::jsonb))
		ORDER BY created_at ASC`, statusJSON)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectContracts(rows)
}

func (s *PostgresStore) DeleteContract(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	// proofs are removed by ON DELETE CASCADE
	return nil
}

func (s *PostgresStore) SaveProof(ctx context.Context, proof *model.Proof) error {
	feedbacksJSON, err := json.Marshal(proof.Feedbacks)
	if err != nil {
		return err
	}

	proof.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proofs (id, contract_id, user_id, object_name, image_url, comment,
			proof_date, status, feedbacks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			feedbacks = EXCLUDED.feedbacks,
			updated_at = EXCLUDED.updated_at`,
		proof.ID, proof.ContractID, proof.UserID, proof.ObjectName, proof.ImageURL,
		proof.Comment, proof.ProofDate, string(proof.Status), feedbacksJSON,
		proof.CreatedAt, proof.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) DeleteProof(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM proofs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetProof(ctx context.Context, id string) (*model.Proof, error) {
	return s.scanProof(s.db.QueryRowContext(ctx, `
		SELECT id, contract_id, user_id, object_name, image_url, comment,
			proof_date, status, feedbacks, created_at, updated_at
		FROM proofs WHERE id = $1`, id))
}

func (s *PostgresStore) ListProofsByContract(ctx context.Context, contractID string) ([]*model.Proof, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, user_id, object_name, image_url, comment,
			proof_date, status, feedbacks, created_at, updated_at
		FROM proofs WHERE contract_id = $1 ORDER BY created_at ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectProofs(rows)
}

func (s *PostgresStore) ListPendingProofs(ctx context.Context, before time.Time) ([]*model.Proof, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, contract_id, user_id, object_name, image_url, comment,
			proof_date, status, feedbacks, created_at, updated_at
		FROM proofs WHERE status = $1 AND created_at < $2`, string(model.ProofPending), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.collectProofs(rows)
}

func (s *PostgresStore) CountProofs(ctx context.Context, contractID string) (total, approved, pending int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM proofs WHERE contract_id = $1`,
		contractID, string(model.ProofApproved), string(model.ProofPending),
	).Scan(&total, &approved, &pending)
	return total, approved, pending, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanContract(row rowScanner) (*model.Contract, error) {
	var c model.Contract
	var status string
	var supervisorsJSON []byte

	err := row.Scan(&c.ID, &c.CreatorID, &c.CreatorNickname, &c.Title, &c.Goal,
		&c.Reward, &c.Penalty, &c.OneOff, &c.StartDate, &c.EndDate,
		&c.TargetProofs, &status, &supervisorsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.Status = model.ContractStatus(status)
	if len(supervisorsJSON) > 0 {
		if err := json.Unmarshal(supervisorsJSON, &c.Supervisors); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (s *PostgresStore) collectContracts(rows *sql.Rows) ([]*model.Contract, error) {
	var result []*model.Contract
	for rows.Next() {
		c, err := s.scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *PostgresStore) scanProof(row rowScanner) (*model.Proof, error) {
	var p model.Proof
	var status string
	var feedbacksJSON []byte

	err := row.Scan(&p.ID, &p.ContractID, &p.UserID, &p.ObjectName, &p.ImageURL,
		&p.Comment, &p.ProofDate, &status, &feedbacksJSON, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Status = model.ProofStatus(status)
	if len(feedbacksJSON) > 0 {
		if err := json.Unmarshal(feedbacksJSON, &p.Feedbacks); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *PostgresStore) collectProofs(rows *sql.Rows) ([]*model.Proof, error) {
	var result []*model.Proof
	for rows.Next() {
		p, err := s.scanProof(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
