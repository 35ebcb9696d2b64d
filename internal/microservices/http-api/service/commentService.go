package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"cinelist/internal/microservices/http-api/dto"
	"cinelist/internal/microservices/http-api/models"
	"cinelist/internal/microservices/http-api/repository"
	"cinelist/internal/microservices/realtime"
	"cinelist/internal/shared"

	"gorm.io/gorm"
)

const MaxCommentLength = 1000

type CommentService interface {
	AddComment(ctx context.Context, recID, userID, content string) (*dto.CommentResponse, error)
	// DeleteComment is allowed for the comment's author and the recommendation's receiver.
	DeleteComment(ctx context.Context, recID, commentID, userID string) error
	MarkCommentsRead(ctx context.Context, recID, userID string) (int64, error)
}

type commentService struct {
	commentRepo repository.CommentRepository
	recRepo     repository.RecommendationRepository
	publisher   realtime.Publisher
	logger      *slog.Logger
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	recRepo repository.RecommendationRepository,
	publisher realtime.Publisher,
	logger *slog.Logger,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		recRepo:     recRepo,
		publisher:   publisher,
		logger:      logger.With("component", "comment_service"),
	}
}

// visibleRecommendation loads recID and checks userID is a party whose side is not hidden.
func visibleRecommendation(ctx context.Context, repo repository.RecommendationRepository, recID, userID string) (*models.Recommendation, error) {
	if !validID(recID) {
		return nil, ErrNotFound
	}
	rec, err := repo.GetByID(ctx, recID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !rec.IsParty(userID) {
		return nil, ErrForbidden
	}
	if (rec.SenderID == userID && rec.SenderDeleted) || (rec.ReceiverID == userID && rec.ReceiverDeleted) {
		return nil, ErrNotFound
	}
	return rec, nil
}

// AddComment appends to the thread and pushes the comment to both parties.
func (s *commentService) AddComment(ctx context.Context, recID, userID, content string) (*dto.CommentResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment longer than %d characters", ErrInvalidInput, MaxCommentLength)
	}

	rec, err := visibleRecommendation(ctx, s.recRepo, recID, userID)
	if err != nil {
		return nil, err
	}

	comment := &models.RecommendationComment{
		RecommendationID: rec.ID,
		UserID:           userID,
		Content:          content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	resp := dto.FromModelToCommentResponse(comment)
	publishChange(ctx, s.publisher, s.logger, shared.TableComments, shared.ChangeInsert, resp, rec.SenderID, rec.ReceiverID)
	return &resp, nil
}

func (s *commentService) DeleteComment(ctx context.Context, recID, commentID, userID string) error {
	if !validID(commentID) {
		return ErrNotFound
	}
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if comment.RecommendationID != recID {
		return ErrNotFound
	}

	rec, err := visibleRecommendation(ctx, s.recRepo, recID, userID)
	if err != nil {
		return err
	}
	if comment.UserID != userID && rec.ReceiverID != userID {
		return ErrForbidden
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *commentService) MarkCommentsRead(ctx context.Context, recID, userID string) (int64, error) {
	if _, err := visibleRecommendation(ctx, s.recRepo, recID, userID); err != nil {
		return 0, err
	}
	return s.commentRepo.MarkReadForViewer(ctx, recID, userID)
}
