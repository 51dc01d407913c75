package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/types"
	"github.com/docquery/docquery-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "docquery", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	for _, ext := range []string{"uuid-ossp", "vector"} {
		if err := db.Exec(fmt.Sprintf(`CREATE EXTENSION IF NOT EXISTS "%s";`, ext)).Error; err != nil {
			serviceLog.Error("Failed to enable extension", "extension", ext, "error", err)
			return nil, fmt.Errorf("failed to enable %s extension: %w", ext, err)
		}
	}

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Project{},
		&types.ProjectUser{},
		&types.Document{},
		&types.Chunk{},
		&types.VectorEmbedding{},
		&types.UserHistory{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	fks := []struct {
		table, name, column, refTable string
	}{
		{"project_users", "fk_project_users_project_id", "project_id", "projects"},
		{"project_users", "fk_project_users_user_id", "user_id", "users"},
		{"documents", "fk_documents_project_id", "project_id", "projects"},
		{"chunks", "fk_chunks_document_id", "document_id", "documents"},
		{"vector_embeddings", "fk_vector_embeddings_project_id", "project_id", "projects"},
		{"vector_embeddings", "fk_vector_embeddings_document_id", "document_id", "documents"},
		{"vector_embeddings", "fk_vector_embeddings_chunk_id", "chunk_id", "chunks"},
		{"user_history", "fk_user_history_user_id", "user_id", "users"},
		{"user_history", "fk_user_history_project_id", "project_id", "projects"},
	}
	for _, fk := range fks {
		stmt := fmt.Sprintf(`
			ALTER TABLE %q DROP CONSTRAINT IF EXISTS %q;
			ALTER TABLE %q ADD CONSTRAINT %q
			FOREIGN KEY (%q) REFERENCES %q("id") ON DELETE CASCADE;
		`, fk.table, fk.name, fk.table, fk.name, fk.column, fk.refTable)
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add %s: %w", fk.name, err)
		}
	}

	// Approximate nearest neighbor index for project-scoped cosine search.
	if err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_vector_embeddings_embedding
		ON vector_embeddings USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100);
	`).Error; err != nil {
		return fmt.Errorf("failed to create ivfflat index: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
