package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/host"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/models"
)

// ErrIngestion wraps unexpected failures during store. The caller
// still receives a user-facing reply: the SMS channel has no
// retry-friendly semantics for the customer, so a message is never
// left unanswered.
var ErrIngestion = errors.New("ingestion failed")

// State tracks an inbound message through the pipeline
type State string

const (
	StateReceived     State = "RECEIVED"
	StateParsed       State = "PARSED"
	StateValidated    State = "VALIDATED"
	StateDedupChecked State = "DEDUP_CHECKED"
	StateStored       State = "STORED"
	StateAcknowledged State = "ACKNOWLEDGED"
	StateRejected     State = "REJECTED"
)

// Reply texts. The customer-facing copy is Danish, matching the rest
// of the product.
const (
	replyPromptFormat = "Tak! Send venligst en rating (1-5) og kommentar.\n\nEksempel: \"5 Fantastisk!\""
	replyBadRating    = "Tak! Send venligst en rating mellem 1-5.\n\nEksempel: \"5 Fantastisk!\" eller \"3 Det var okay\""
	replyNoRequest    = "Tak for dit svar! Vi kunne desværre ikke finde en aktiv forespørgsel til dit nummer. Kontakt venligst din vært direkte."
	replyError        = "Beklager, der skete en fejl. Prøv igen senere."
)

// EvaluationAppender is the slice of the evaluation store ingestion needs
type EvaluationAppender interface {
	Append(ctx context.Context, hostID int64, rating int, comment *string, sourcePhone string, now time.Time) (int64, error)
}

// PendingRequests resolves and marks phone-to-host request mappings
type PendingRequests interface {
	ResolvePending(ctx context.Context, phone string, now time.Time) (*models.PendingRequest, error)
	ConsumePending(ctx context.Context, requestID int64, now time.Time) error
}

// Result is the outcome of handling one inbound message. Reply is
// always set.
type Result struct {
	State        State
	Reply        string
	Rating       int
	Comment      *string
	HostID       int64
	EvaluationID int64
	Duplicate    bool
	Err          error
}

// Service runs the ingestion pipeline for inbound SMS replies
type Service struct {
	store   EvaluationAppender
	pending PendingRequests
	log     zerolog.Logger
}

// NewService creates an ingestion service
func NewService(store EvaluationAppender, pending PendingRequests) *Service {
	return &Service{
		store:   store,
		pending: pending,
		log:     logging.NewLogger("ingest"),
	}
}

// HandleInbound runs one message through
// RECEIVED -> PARSED -> VALIDATED -> DEDUP_CHECKED -> STORED ->
// ACKNOWLEDGED, short-circuiting to REJECTED on a malformed body or
// unmatchable sender. It never returns an error: every path produces
// a reply for the customer.
func (s *Service) HandleInbound(ctx context.Context, fromPhone, body string, now time.Time) Result {
	rating, comment, ok := ParseMessage(body)
	if !ok {
		reply := replyBadRating
		if strings.TrimSpace(body) == "" {
			reply = replyPromptFormat
		}
		logging.LogIngestion(fromPhone, string(StateRejected), 0, rating)
		return Result{State: StateRejected, Reply: reply}
	}

	// Redundant range check behind the parse, and comment hygiene.
	if rating < 1 || rating > 5 {
		logging.LogIngestion(fromPhone, string(StateRejected), 0, rating)
		return Result{State: StateRejected, Reply: replyBadRating}
	}
	comment = sanitizeComment(comment)

	req, err := s.pending.ResolvePending(ctx, fromPhone, now)
	if err != nil {
		if errors.Is(err, host.ErrNoPendingRequest) {
			logging.LogIngestion(fromPhone, string(StateRejected), 0, rating)
			return Result{State: StateRejected, Reply: replyNoRequest, Rating: rating, Comment: comment}
		}
		s.log.Error().Err(err).Str("phone", logging.MaskPhone(fromPhone)).Msg("Pending request lookup failed")
		return Result{
			State:  StateRejected,
			Reply:  replyError,
			Rating: rating,
			Err:    fmt.Errorf("%w: %v", ErrIngestion, err),
		}
	}

	evalID, err := s.store.Append(ctx, req.HostID, rating, comment, fromPhone, now)
	if err != nil {
		if errors.Is(err, evaluation.ErrDuplicate) {
			// Success-with-notice: retried deliveries and
			// double-submissions get the normal thank-you but store
			// nothing.
			logging.LogIngestion(fromPhone, string(StateDedupChecked), req.HostID, rating)
			return Result{
				State:     StateAcknowledged,
				Reply:     ackReply(rating),
				Rating:    rating,
				Comment:   comment,
				HostID:    req.HostID,
				Duplicate: true,
			}
		}
		s.log.Error().Err(err).
			Str("phone", logging.MaskPhone(fromPhone)).
			Int64("host_id", req.HostID).
			Msg("Failed to store evaluation")
		return Result{
			State:   StateRejected,
			Reply:   replyError,
			Rating:  rating,
			Comment: comment,
			HostID:  req.HostID,
			Err:     fmt.Errorf("%w: %v", ErrIngestion, err),
		}
	}

	if err := s.pending.ConsumePending(ctx, req.ID, now); err != nil {
		// The evaluation is stored; a failed audit marker is not worth
		// an apology to the customer.
		s.log.Warn().Err(err).Int64("request_id", req.ID).Msg("Failed to mark pending request consumed")
	}

	logging.LogIngestion(fromPhone, string(StateAcknowledged), req.HostID, rating)
	return Result{
		State:        StateAcknowledged,
		Reply:        ackReply(rating),
		Rating:       rating,
		Comment:      comment,
		HostID:       req.HostID,
		EvaluationID: evalID,
	}
}

// ParseMessage extracts the rating and optional comment from a raw
// message body. The first non-whitespace character must be a digit
// 1-5; everything after it, trimmed, becomes the comment.
func ParseMessage(body string) (rating int, comment *string, ok bool) {
	text := strings.TrimSpace(body)
	if text == "" {
		return 0, nil, false
	}

	first := text[0]
	if first < '1' || first > '5' {
		return 0, nil, false
	}
	rating = int(first - '0')

	rest := strings.TrimSpace(text[1:])
	if rest != "" {
		comment = &rest
	}
	return rating, comment, true
}

func sanitizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	clean := strings.NewReplacer("<", "", ">", "").Replace(*comment)
	clean = strings.TrimSpace(clean)
	if runes := []rune(clean); len(runes) > evaluation.MaxCommentLen {
		clean = string(runes[:evaluation.MaxCommentLen])
	}
	if clean == "" {
		return nil
	}
	return &clean
}

// ackReply picks the confirmation tone by rating
func ackReply(rating int) string {
	if rating >= 4 {
		return fmt.Sprintf("Tusind tak for din %d-stjerner vurdering! 🌟", rating)
	}
	return fmt.Sprintf("Tak for din %d-stjerner vurdering. Vi sætter pris på din feedback.", rating)
}
