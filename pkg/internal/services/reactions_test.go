package services

import (
	"errors"
	"fmt"
	"testing"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsReactionConflict(t *testing.T) {
	conflict := &pgconn.PgError{Code: "23505", ConstraintName: models.ReactionUniqueConstraint}
	assert.True(t, IsReactionConflict(conflict))
	assert.True(t, IsReactionConflict(fmt.Errorf("insert reaction: %w", conflict)))

	assert.False(t, IsReactionConflict(&pgconn.PgError{Code: "23505", ConstraintName: "reactions_pkey"}))
	assert.False(t, IsReactionConflict(&pgconn.PgError{Code: "23503", ConstraintName: models.ReactionUniqueConstraint}))
	assert.False(t, IsReactionConflict(errors.New("duplicate key value violates unique constraint \"idx_reactions_unique\"")))
	assert.False(t, IsReactionConflict(nil))
}

func TestRemoveReactionRequiresAuthor(t *testing.T) {
	err := RemoveReaction(models.Reaction{ID: "r-1", UserID: "user-1"}, "conv-a", "user-2")
	assert.ErrorIs(t, err, ErrNotReactionAuthor)
}
