package service

import (
	"context"
	"errors"
	"log"
	"time"

	"bhandaraboard/internal/model"
	"bhandaraboard/internal/queue"
	"bhandaraboard/internal/realtime"
	"bhandaraboard/internal/repository"
)

// VoteService enforces the one-upvote-per-user rule. The advisory Exists
// pre-check keeps the common repeat-tap cheap; the store's unique constraint
// settles every race.
type VoteService struct {
	voteRepo    repository.VoteRepository
	listingRepo repository.ListingRepository
	publisher   queue.Publisher
	feed        realtime.ChangeFeed
}

func NewVoteService(
	voteRepo repository.VoteRepository,
	listingRepo repository.ListingRepository,
	publisher queue.Publisher,
	feed realtime.ChangeFeed,
) *VoteService {
	return &VoteService{
		voteRepo:    voteRepo,
		listingRepo: listingRepo,
		publisher:   publisher,
		feed:        feed,
	}
}

// CastVote attempts an upvote for userID on the listing. A repeat vote is an
// idempotent no-op reported as StatusAlreadyVoted with the unchanged count.
// Expired listings vote like deleted ones: not found.
func (s *VoteService) CastVote(ctx context.Context, userID, listingID string) (*model.VoteResult, error) {
	start := time.Now()

	if userID == "" {
		return nil, model.ErrAuthRequired
	}

	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.Active(time.Now().UTC()) {
		return nil, model.ErrListingNotFound
	}

	voted, err := s.voteRepo.Exists(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if voted {
		log.Printf("[Vote] CastVote no-op: listing=%s user=%s (already voted)", listingID, userID)
		return &model.VoteResult{Status: model.StatusAlreadyVoted, UpvoteCount: listing.UpvoteCount}, nil
	}

	count, err := s.voteRepo.CastVote(ctx, userID, listingID)
	if errors.Is(err, model.ErrAlreadyVoted) {
		// Lost the race to a concurrent request from the same user. Same
		// outcome as the pre-check path.
		log.Printf("[Vote] CastVote no-op: listing=%s user=%s (duplicate rejected by store)", listingID, userID)
		return &model.VoteResult{Status: model.StatusAlreadyVoted, UpvoteCount: s.currentCount(ctx, listingID, listing.UpvoteCount)}, nil
	}
	if err != nil {
		log.Printf("[Vote] CastVote FAILED: listing=%s user=%s err=%v", listingID, userID, err)
		return nil, err
	}

	event := queue.NewListingUpvotedEvent(listingID, userID)
	if _, err := s.publisher.Publish(ctx, queue.StreamListings, event); err != nil {
		log.Printf("[Vote] CastVote event publish failed: listing=%s err=%v", listingID, err)
	}
	if err := s.feed.Publish(ctx); err != nil {
		log.Printf("[Vote] Change signal failed: err=%v", err)
	}

	log.Printf("[Vote] CastVote OK: listing=%s user=%s count=%d duration=%v",
		listingID, userID, count, time.Since(start))
	return &model.VoteResult{Status: model.StatusVoted, UpvoteCount: count}, nil
}

// currentCount re-reads the count after a duplicate rejection so the caller
// sees the value that includes the winning vote. Falls back to the count from
// the earlier read if the listing vanished in between.
func (s *VoteService) currentCount(ctx context.Context, listingID string, fallback int) int {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return fallback
	}
	return listing.UpvoteCount
}
