package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/xaenox/readlater-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

// DSN builds a lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	return OpenPostgresStorage(config.DSN(), logger)
}

// OpenPostgresStorage connects using a raw DSN or URL and applies migrations
func OpenPostgresStorage(dsn string, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err = s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	s.logger.Debug("Database schema initialized")
	return nil
}

func (s *PostgresStorage) GetUser(ctx context.Context, userID int64) (*models.UserRegistration, error) {
	query := `
		SELECT user_id, workspace_token, database_id, delivery_time, created_at, updated_at
		FROM user_registrations
		WHERE user_id = $1`

	user := &models.UserRegistration{}
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID,
		&user.WorkspaceToken,
		&user.DatabaseID,
		&user.DeliveryTime,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}
	return user, nil
}

func (s *PostgresStorage) SaveUser(ctx context.Context, user *models.UserRegistration) error {
	query := `
		INSERT INTO user_registrations (user_id, workspace_token, database_id, delivery_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET workspace_token = EXCLUDED.workspace_token,
		    database_id = EXCLUDED.database_id,
		    updated_at = NOW()
		RETURNING delivery_time, created_at, updated_at`

	err := s.db.QueryRowContext(ctx, query,
		user.UserID,
		user.WorkspaceToken,
		user.DatabaseID,
		user.DeliveryTime,
	).Scan(&user.DeliveryTime, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) SetDeliveryTime(ctx context.Context, userID int64, deliveryTime string) error {
	query := `
		UPDATE user_registrations
		SET delivery_time = $1, updated_at = NOW()
		WHERE user_id = $2`

	result, err := s.db.ExecContext(ctx, query, deliveryTime, userID)
	if err != nil {
		return fmt.Errorf("error updating delivery time: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_registrations WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	return nil
}

func (s *PostgresStorage) ListScheduledUsers(ctx context.Context) ([]*models.UserRegistration, error) {
	query := `
		SELECT user_id, workspace_token, database_id, delivery_time, created_at, updated_at
		FROM user_registrations
		WHERE delivery_time <> ''
		ORDER BY user_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying scheduled users: %w", err)
	}
	defer rows.Close()

	var users []*models.UserRegistration
	for rows.Next() {
		user := &models.UserRegistration{}
		err := rows.Scan(
			&user.UserID,
			&user.WorkspaceToken,
			&user.DatabaseID,
			&user.DeliveryTime,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

func (s *PostgresStorage) GetPin(ctx context.Context, userID int64) (*models.PinnedContent, error) {
	pin := &models.PinnedContent{}
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, title, url FROM pinned_contents WHERE user_id = $1`, userID,
	).Scan(&pin.UserID, &pin.Title, &pin.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying pin: %w", err)
	}
	return pin, nil
}

func (s *PostgresStorage) SavePin(ctx context.Context, pin *models.PinnedContent) error {
	query := `
		INSERT INTO pinned_contents (user_id, title, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET title = EXCLUDED.title, url = EXCLUDED.url, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, pin.UserID, pin.Title, pin.URL); err != nil {
		return fmt.Errorf("error saving pin: %w", err)
	}
	return nil
}

func (s *PostgresStorage) DeletePin(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pinned_contents WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error deleting pin: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
