package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/types"
)

func testLogger() *logger.Logger {
	log, err := logger.New("production")
	if err != nil {
		panic(err)
	}
	return log
}

// ---- project repo ----

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*types.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: map[string]*types.Project{}}
}

func (f *fakeProjectRepo) add(name string) *types.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &types.Project{ID: uuid.New(), Name: name}
	f.projects[name] = p
	return p
}

func (f *fakeProjectRepo) Create(ctx context.Context, tx *gorm.DB, project *types.Project) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	f.projects[project.Name] = project
	return project, nil
}

func (f *fakeProjectRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProjectRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.projects[name], nil
}

func (f *fakeProjectRepo) List(ctx context.Context, tx *gorm.DB, offset, limit int) (*repos.ProjectPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]*types.Project, 0, len(f.projects))
	for _, p := range f.projects {
		items = append(items, p)
	}
	return &repos.ProjectPage{Total: int64(len(items)), Offset: offset, Limit: limit, Items: items}, nil
}

func (f *fakeProjectRepo) Update(ctx context.Context, tx *gorm.DB, name string, newName, description *string) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[name]
	if !ok {
		return nil, nil
	}
	if newName != nil {
		delete(f.projects, name)
		p.Name = *newName
		f.projects[*newName] = p
	}
	if description != nil {
		p.Description = *description
	}
	return p, nil
}

func (f *fakeProjectRepo) DeleteByName(ctx context.Context, tx *gorm.DB, name string) (*types.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[name]
	if !ok {
		return nil, nil
	}
	delete(f.projects, name)
	return p, nil
}

// ---- document repo ----

type fakeDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*types.Document
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[uuid.UUID]*types.Document{}}
}

func (f *fakeDocumentRepo) add(projectID uuid.UUID, filename string, flushed bool) *types.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &types.Document{ID: uuid.New(), ProjectID: projectID, Filename: filename, IsFlushed: flushed}
	f.docs[d.ID] = d
	return d
}

func (f *fakeDocumentRepo) CreateBatch(ctx context.Context, tx *gorm.DB, documents []*types.Document) ([]*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range documents {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		for _, existing := range f.docs {
			if existing.ProjectID == d.ProjectID && existing.Filename == d.Filename {
				return nil, fmt.Errorf("duplicate document %q", d.Filename)
			}
		}
		f.docs[d.ID] = d
	}
	return documents, nil
}

func (f *fakeDocumentRepo) GetByProjectAndFilename(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ProjectID == projectID && d.Filename == filename {
			return d, nil
		}
	}
	return nil, nil
}

func (f *fakeDocumentRepo) List(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filter repos.DocumentFilter, offset, limit int) (*repos.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []*types.Document{}
	for _, d := range f.docs {
		if d.ProjectID != projectID {
			continue
		}
		switch filter {
		case repos.FilterProcessed:
			if !d.IsProcessed {
				continue
			}
		case repos.FilterUnprocessed:
			if d.IsProcessed {
				continue
			}
		case repos.FilterFlushed:
			if !d.IsFlushed {
				continue
			}
		case repos.FilterUnflushed:
			if d.IsFlushed {
				continue
			}
		}
		items = append(items, d)
	}
	return &repos.DocumentPage{Total: int64(len(items)), Offset: offset, Limit: limit, Items: items}, nil
}

func (f *fakeDocumentRepo) MarkProcessed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[documentID]
	if !ok {
		return nil, nil
	}
	d.IsProcessed = true
	return d, nil
}

func (f *fakeDocumentRepo) MarkFlushed(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[documentID]
	if !ok {
		return nil, nil
	}
	d.IsFlushed = true
	return d, nil
}

func (f *fakeDocumentRepo) Delete(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, filename string) (*types.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, d := range f.docs {
		if d.ProjectID == projectID && d.Filename == filename {
			delete(f.docs, id)
			return d, nil
		}
	}
	return nil, nil
}

// ---- chunk repo ----

type fakeChunkRepo struct {
	mu     sync.Mutex
	chunks map[uuid.UUID][]*types.Chunk
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{chunks: map[uuid.UUID][]*types.Chunk{}}
}

func (f *fakeChunkRepo) ReplaceForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID, chunks []*types.Chunk) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[documentID] = chunks
	return chunks, nil
}

func (f *fakeChunkRepo) GetByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) ([]*types.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunks[documentID], nil
}

func (f *fakeChunkRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.chunks[documentID]))
	delete(f.chunks, documentID)
	return n, nil
}

func (f *fakeChunkRepo) ExistsForDocument(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chunks[documentID]) > 0, nil
}

// ---- vector repo ----

type storedVector struct {
	projectID  uuid.UUID
	documentID uuid.UUID
	chunkID    uuid.UUID
	embedding  []float32
}

type fakeVectorRepo struct {
	mu      sync.Mutex
	vectors []storedVector
	topK    []repos.RetrievedChunk
	topKErr error
}

func newFakeVectorRepo() *fakeVectorRepo {
	return &fakeVectorRepo{}
}

func (f *fakeVectorRepo) InsertBatch(ctx context.Context, tx *gorm.DB, projectID, documentID uuid.UUID, chunkIDs []uuid.UUID, embeddings [][]float32) error {
	if len(chunkIDs) != len(embeddings) {
		return fmt.Errorf("misaligned batch: %d ids, %d embeddings", len(chunkIDs), len(embeddings))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range chunkIDs {
		f.vectors = append(f.vectors, storedVector{
			projectID:  projectID,
			documentID: documentID,
			chunkID:    id,
			embedding:  embeddings[i],
		})
	}
	return nil
}

func (f *fakeVectorRepo) DeleteByDocumentID(ctx context.Context, tx *gorm.DB, documentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.vectors[:0]
	for _, v := range f.vectors {
		if v.documentID != documentID {
			kept = append(kept, v)
		}
	}
	f.vectors = kept
	return nil
}

func (f *fakeVectorRepo) TopK(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, queryVector []float32, k int) ([]repos.RetrievedChunk, error) {
	if f.topKErr != nil {
		return nil, f.topKErr
	}
	if k <= 0 {
		return []repos.RetrievedChunk{}, nil
	}
	if len(f.topK) > k {
		return f.topK[:k], nil
	}
	return f.topK, nil
}

func (f *fakeVectorRepo) CountByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.vectors {
		if v.projectID == projectID {
			n++
		}
	}
	return n, nil
}

// ---- history repo ----

type fakeHistoryRepo struct {
	mu      sync.Mutex
	windows map[string][]types.Turn
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{windows: map[string][]types.Turn{}}
}

func historyKey(userID, projectID uuid.UUID) string {
	return userID.String() + "/" + projectID.String()
}

func (f *fakeHistoryRepo) Get(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) ([]types.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.windows[historyKey(userID, projectID)]
	out := make([]types.Turn, len(stored))
	copy(out, stored)
	return out, nil
}

func (f *fakeHistoryRepo) Upsert(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID, turns []types.Turn) ([]types.Turn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]types.Turn, len(turns))
	copy(stored, turns)
	f.windows[historyKey(userID, projectID)] = stored
	return turns, nil
}

// ---- project user repo ----

type fakeProjectUserRepo struct {
	mu     sync.Mutex
	grants map[string]bool
}

func newFakeProjectUserRepo() *fakeProjectUserRepo {
	return &fakeProjectUserRepo{grants: map[string]bool{}}
}

func (f *fakeProjectUserRepo) Grant(ctx context.Context, tx *gorm.DB, projectID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grants[projectID.String()+"/"+userID.String()] = true
	return nil
}

func (f *fakeProjectUserRepo) HasAccess(ctx context.Context, tx *gorm.DB, userID, projectID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[projectID.String()+"/"+userID.String()], nil
}

// ---- blob store ----

type fakeBlobStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	writeErr error
	writes   int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func blobKey(project, filename string) string {
	return project + "/" + filename
}

func (f *fakeBlobStore) put(project, filename string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[blobKey(project, filename)] = content
}

func (f *fakeBlobStore) Write(ctx context.Context, project, filename string, r io.Reader) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	f.blobs[blobKey(project, filename)] = content
	return nil
}

func (f *fakeBlobStore) Read(ctx context.Context, project, filename string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.blobs[blobKey(project, filename)]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", blobKey(project, filename))
	}
	return content, nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, project, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, blobKey(project, filename))
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, project, filename string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[blobKey(project, filename)]
	return ok, nil
}

func (f *fakeBlobStore) DeleteProject(ctx context.Context, project string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key := range f.blobs {
		if bytes.HasPrefix([]byte(key), []byte(project+"/")) {
			delete(f.blobs, key)
		}
	}
	return nil
}

// ---- AI client ----

type fakeAI struct {
	mu           sync.Mutex
	embedCalls   int
	embedErr     error
	embedInputs  [][]string
	generateErr  error
	answer       string
	seenMessages []types.Turn
}

func newFakeAI() *fakeAI {
	return &fakeAI{answer: "the answer"}
}

// Embed returns a deterministic vector per input: [index, len(text)].
func (f *fakeAI) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedCalls++
	recorded := make([]string, len(inputs))
	copy(recorded, inputs)
	f.embedInputs = append(f.embedInputs, recorded)
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		out[i] = []float32{float32(i), float32(len(text))}
	}
	return out, nil
}

func (f *fakeAI) Generate(ctx context.Context, messages []types.Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generateErr != nil {
		return "", f.generateErr
	}
	f.seenMessages = make([]types.Turn, len(messages))
	copy(f.seenMessages, messages)
	return f.answer, nil
}

// ---- embed cache ----

type fakeEmbedCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	hits    int
	sets    int
}

func newFakeEmbedCache() *fakeEmbedCache {
	return &fakeEmbedCache{entries: map[string][]float32{}}
}

func (f *fakeEmbedCache) Get(ctx context.Context, text string) ([]float32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.entries[text]
	if ok {
		f.hits++
	}
	return v, ok
}

func (f *fakeEmbedCache) Set(ctx context.Context, text string, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.entries[text] = vector
}

func (f *fakeEmbedCache) Close() error { return nil }

func mustJSON(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
