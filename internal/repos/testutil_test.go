package repos

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docquery/docquery-backend/internal/logger"
)

var testDBCounter int64

// testSchema mirrors the production tables in sqlite-compatible DDL so
// repo behavior can be exercised without a postgres instance. The
// vector_embeddings table is absent: similarity search is pgvector-only
// and covered by the validation-path tests.
var testSchema = []string{
	`CREATE TABLE projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX uq_projects_name ON projects(name)`,
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX uq_users_username ON users(username)`,
	`CREATE TABLE project_users (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX uq_project_users_project_user ON project_users(project_id, user_id)`,
	`CREATE TABLE documents (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		metadata TEXT,
		is_processed BOOLEAN NOT NULL DEFAULT 0,
		is_flushed BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX uq_documents_project_filename ON documents(project_id, filename)`,
	`CREATE TABLE chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_order INTEGER NOT NULL,
		page_number INTEGER NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE user_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		history TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX uq_user_history_user_project ON user_history(user_id, project_id)`,
}

func newTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	n := atomic.AddInt64(&testDBCounter, 1)
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	for _, stmt := range testSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply test schema: %v", err)
		}
	}
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("init test logger: %v", err)
	}
	return db, log
}
