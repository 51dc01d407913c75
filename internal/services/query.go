package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/docquery/docquery-backend/internal/apierr"
	"github.com/docquery/docquery-backend/internal/clients/openai"
	"github.com/docquery/docquery-backend/internal/clients/redis"
	"github.com/docquery/docquery-backend/internal/logger"
	"github.com/docquery/docquery-backend/internal/repos"
	"github.com/docquery/docquery-backend/internal/types"
)

const systemPrompt = "You are a helpful assistant. Answer the user's questions based on context. " +
	"If the context does not provide enough info, respond with 'I don't know.'"

type QueryService interface {
	// Answer retrieves the top-k chunks for the query, assembles the
	// conversation and asks the model. The user and assistant turns are
	// appended to the pair's history; the injected context turn is not.
	Answer(ctx context.Context, userID uuid.UUID, projectName, query string, k int) (string, error)
}

type queryService struct {
	log         *logger.Logger
	projectRepo repos.ProjectRepo
	vectorRepo  repos.VectorRepo
	access      AccessService
	history     HistoryService
	ai          openai.Client
	embedCache  redis.EmbedCache
}

func NewQueryService(
	baseLog *logger.Logger,
	projectRepo repos.ProjectRepo,
	vectorRepo repos.VectorRepo,
	access AccessService,
	history HistoryService,
	ai openai.Client,
	embedCache redis.EmbedCache,
) QueryService {
	return &queryService{
		log:         baseLog.With("service", "QueryService"),
		projectRepo: projectRepo,
		vectorRepo:  vectorRepo,
		access:      access,
		history:     history,
		ai:          ai,
		embedCache:  embedCache,
	}
}

func (s *queryService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedCache != nil {
		if cached, ok := s.embedCache.Get(ctx, query); ok {
			return cached, nil
		}
	}
	embeddings, err := s.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, apierr.Internal(fmt.Errorf("embedding backend returned %d vectors for a single input", len(embeddings)))
	}
	if s.embedCache != nil {
		s.embedCache.Set(ctx, query, embeddings[0])
	}
	return embeddings[0], nil
}

func (s *queryService) Answer(ctx context.Context, userID uuid.UUID, projectName, query string, k int) (string, error) {
	project, err := s.projectRepo.GetByName(ctx, nil, projectName)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", apierr.InvalidState("project %q does not exist; create it and upload documents before querying", projectName)
	}

	allowed, err := s.access.UserHasAccess(ctx, userID, project.ID)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", apierr.Unauthorized("user %q has no access to project %q", userID, projectName)
	}

	embedding, err := s.embedQuery(ctx, query)
	if err != nil {
		return "", err
	}

	results, err := s.vectorRepo.TopK(ctx, nil, project.ID, embedding, k)
	if err != nil {
		return "", err
	}

	past, err := s.history.Get(ctx, userID, project.ID)
	if err != nil {
		return "", err
	}

	messages := make([]types.Turn, 0, len(past)+3)
	messages = append(messages, types.Turn{Role: types.RoleSystem, Content: systemPrompt})
	messages = append(messages, past...)
	if len(results) > 0 {
		texts := make([]string, len(results))
		for i, r := range results {
			texts[i] = r.Text
		}
		messages = append(messages, types.Turn{
			Role:    types.RoleSystem,
			Content: "Context:\n" + strings.Join(texts, "\n---\n"),
		})
	}
	userTurn := types.Turn{Role: types.RoleUser, Content: query}
	messages = append(messages, userTurn)

	answer, err := s.ai.Generate(ctx, messages)
	if err != nil {
		return "", err
	}

	if _, err := s.history.Append(ctx, userID, project.ID, userTurn, types.Turn{Role: types.RoleAssistant, Content: answer}); err != nil {
		return "", err
	}
	s.log.Info("query answered",
		"project", projectName,
		"retrieved", len(results),
	)
	return answer, nil
}
