package repos

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/types"
)

func seedProject(t *testing.T, repo ProjectRepo, name string) *types.Project {
	t.Helper()
	project, err := repo.Create(context.Background(), nil, &types.Project{ID: uuid.New(), Name: name})
	if err != nil {
		t.Fatalf("seed project %s: %v", name, err)
	}
	return project
}

func TestParseDocumentFilter(t *testing.T) {
	f, err := ParseDocumentFilter("")
	if err != nil || f != FilterAll {
		t.Fatalf("empty filter: got %q, %v", f, err)
	}
	for _, raw := range []string{"all", "processed", "unprocessed", "flushed", "unflushed"} {
		if _, err := ParseDocumentFilter(raw); err != nil {
			t.Fatalf("ParseDocumentFilter(%q): %v", raw, err)
		}
	}
	if _, err := ParseDocumentFilter("deleted"); !apierr.Is(err, apierr.CodeValidation) {
		t.Fatalf("expected validation error for unknown filter, got %v", err)
	}
}

func TestDocumentRepo_CreateBatchAndGet(t *testing.T) {
	db, log := newTestDB(t)
	projects := NewProjectRepo(db, log)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, "docs1")
	batch := []*types.Document{
		{ID: uuid.New(), ProjectID: project.ID, Filename: "a.pdf"},
		{ID: uuid.New(), ProjectID: project.ID, Filename: "b.pdf"},
	}
	created, err := docs.CreateBatch(ctx, nil, batch)
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("created %d documents, want 2", len(created))
	}

	got, err := docs.GetByProjectAndFilename(ctx, nil, project.ID, "a.pdf")
	if err != nil {
		t.Fatalf("GetByProjectAndFilename: %v", err)
	}
	if got == nil || got.Filename != "a.pdf" {
		t.Fatalf("got %+v", got)
	}

	missing, err := docs.GetByProjectAndFilename(ctx, nil, project.ID, "c.pdf")
	if err != nil {
		t.Fatalf("GetByProjectAndFilename missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing document, got %+v", missing)
	}
}

func TestDocumentRepo_DuplicateFilenameInProject(t *testing.T) {
	db, log := newTestDB(t)
	projects := NewProjectRepo(db, log)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, "docs2")
	other := seedProject(t, projects, "docs2b")

	if _, err := docs.CreateBatch(ctx, nil, []*types.Document{{ID: uuid.New(), ProjectID: project.ID, Filename: "same.pdf"}}); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	_, err := docs.CreateBatch(ctx, nil, []*types.Document{{ID: uuid.New(), ProjectID: project.ID, Filename: "same.pdf"}})
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("expected conflict for duplicate filename, got %v", err)
	}

	// Same filename in a different project is fine.
	if _, err := docs.CreateBatch(ctx, nil, []*types.Document{{ID: uuid.New(), ProjectID: other.ID, Filename: "same.pdf"}}); err != nil {
		t.Fatalf("CreateBatch other project: %v", err)
	}
}

func TestDocumentRepo_ListFilters(t *testing.T) {
	db, log := newTestDB(t)
	projects := NewProjectRepo(db, log)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, "docs3")
	batch := make([]*types.Document, 4)
	for i := range batch {
		batch[i] = &types.Document{ID: uuid.New(), ProjectID: project.ID, Filename: fmt.Sprintf("f%d.pdf", i)}
	}
	if _, err := docs.CreateBatch(ctx, nil, batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if _, err := docs.MarkProcessed(ctx, nil, batch[0].ID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if _, err := docs.MarkFlushed(ctx, nil, batch[1].ID); err != nil {
		t.Fatalf("MarkFlushed: %v", err)
	}

	cases := []struct {
		filter DocumentFilter
		want   int64
	}{
		{FilterAll, 4},
		{FilterProcessed, 1},
		{FilterUnprocessed, 3},
		{FilterFlushed, 1},
		{FilterUnflushed, 3},
	}
	for _, tc := range cases {
		page, err := docs.List(ctx, nil, project.ID, tc.filter, 0, 10)
		if err != nil {
			t.Fatalf("List(%s): %v", tc.filter, err)
		}
		if page.Total != tc.want {
			t.Fatalf("List(%s) total = %d, want %d", tc.filter, page.Total, tc.want)
		}
		if int64(len(page.Items)) != tc.want {
			t.Fatalf("List(%s) items = %d, want %d", tc.filter, len(page.Items), tc.want)
		}
	}
}

func TestDocumentRepo_MarkFlagsMissingDocument(t *testing.T) {
	db, log := newTestDB(t)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	doc, err := docs.MarkProcessed(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil marking a missing document, got %+v", doc)
	}
}

func TestDocumentRepo_FlagsAreIndependent(t *testing.T) {
	db, log := newTestDB(t)
	projects := NewProjectRepo(db, log)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, "docs4")
	batch := []*types.Document{{ID: uuid.New(), ProjectID: project.ID, Filename: "both.pdf"}}
	if _, err := docs.CreateBatch(ctx, nil, batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if _, err := docs.MarkProcessed(ctx, nil, batch[0].ID); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	doc, err := docs.MarkFlushed(ctx, nil, batch[0].ID)
	if err != nil {
		t.Fatalf("MarkFlushed: %v", err)
	}
	if !doc.IsProcessed || !doc.IsFlushed {
		t.Fatalf("flags should both be set, got processed=%v flushed=%v", doc.IsProcessed, doc.IsFlushed)
	}
}

func TestDocumentRepo_Delete(t *testing.T) {
	db, log := newTestDB(t)
	projects := NewProjectRepo(db, log)
	docs := NewDocumentRepo(db, log)
	ctx := context.Background()

	project := seedProject(t, projects, "docs5")
	batch := []*types.Document{{ID: uuid.New(), ProjectID: project.ID, Filename: "gone.pdf"}}
	if _, err := docs.CreateBatch(ctx, nil, batch); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	deleted, err := docs.Delete(ctx, nil, project.ID, "gone.pdf")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted == nil || deleted.ID != batch[0].ID {
		t.Fatalf("Delete returned %+v", deleted)
	}

	again, err := docs.Delete(ctx, nil, project.ID, "gone.pdf")
	if err != nil {
		t.Fatalf("Delete second call: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nil deleting a missing document, got %+v", again)
	}
}
