package services

import "errors"

var (
	ErrEmptyMessage     = errors.New("message must have content or an attachment")
	ErrReactionExists   = errors.New("you already reacted with this emoji")
	ErrNotMember        = errors.New("you are not a member of this conversation")
	ErrDirectMembership = errors.New("direct conversation member changes was not allowed")
	ErrRateLimited      = errors.New("you are sending messages too fast")
	ErrStorageDisabled  = errors.New("attachment storage was not configured")
)

var ErrNotReactionAuthor = errors.New("only the author can remove a reaction")
