package splitwise

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/acanadell/splitsync/internal/config"
	"github.com/acanadell/splitsync/internal/engine"
	"github.com/acanadell/splitsync/internal/money"
)

// apiDateLayout is how Splitwise ships expense dates, always UTC.
const apiDateLayout = "2006-01-02T15:04:05Z"

// Source adapts the API client into the engine's expense source. It resolves
// the current user once at construction so share lookups never guess.
type Source struct {
	client *Client
	cfg    config.SplitwiseConfig
	loc    *time.Location
	log    zerolog.Logger
	userID int64
}

// NewSource resolves the authenticated user. An unreachable or unauthorized
// API fails here, before any ledger write.
func NewSource(ctx context.Context, client *Client, cfg config.SplitwiseConfig, loc *time.Location, log zerolog.Logger) (*Source, error) {
	user, err := client.GetCurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve current user: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Source{client: client, cfg: cfg, loc: loc, log: log, userID: user.ID}, nil
}

// FetchExpenses returns normalized snapshots for the window. Malformed API
// data fails the whole fetch: better to abort a run than to write legs from
// amounts that did not parse.
func (s *Source) FetchExpenses(ctx context.Context, since time.Time) ([]engine.Expense, error) {
	raw, err := s.client.GetExpenses(ctx, since, s.cfg.Limit)
	if err != nil {
		return nil, err
	}
	if len(raw) == s.cfg.Limit {
		s.log.Warn().
			Int("limit", s.cfg.Limit).
			Msg("expense page is exactly the configured limit, the window may be clipped; raise limit or shrink days_ago")
	}

	out := make([]engine.Expense, 0, len(raw))
	for _, e := range raw {
		if e.DeletedAt != nil {
			s.log.Debug().Int64("id", e.ID).Msg("skipping deleted expense")
			continue
		}
		exp, err := s.normalize(ctx, e)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		out = append(out, exp)
	}
	return out, nil
}

func (s *Source) normalize(ctx context.Context, e apiExpense) (engine.Expense, error) {
	occurred, err := time.Parse(apiDateLayout, e.Date)
	if err != nil {
		return engine.Expense{}, fmt.Errorf("parse date: %w", err)
	}
	total, err := money.Parse(e.Cost)
	if err != nil {
		return engine.Expense{}, fmt.Errorf("parse cost: %w", err)
	}

	// The user's own share. An expense that doesn't list the user at all is
	// source-side breakage; both shares stay zero and the engine reports it.
	paid, owed := decimal.Zero, decimal.Zero
	found := false
	for _, u := range e.Users {
		if u.User.ID != s.userID {
			continue
		}
		found = true
		if paid, err = money.Parse(u.PaidShare); err != nil {
			return engine.Expense{}, fmt.Errorf("parse paid share: %w", err)
		}
		if owed, err = money.Parse(u.OwedShare); err != nil {
			return engine.Expense{}, fmt.Errorf("parse owed share: %w", err)
		}
		break
	}
	if !found {
		s.log.Warn().Int64("id", e.ID).Msg("expense has no share entry for the current user")
	}

	isCash, err := s.hasKeyword(ctx, e, s.cfg.CashKeyword)
	if err != nil {
		return engine.Expense{}, err
	}
	ignored, err := s.hasKeyword(ctx, e, s.cfg.IgnoreKeyword)
	if err != nil {
		return engine.Expense{}, err
	}

	return engine.Expense{
		ExternalID:  strconv.FormatInt(e.ID, 10),
		Description: e.Description,
		OccurredAt:  occurred.In(s.loc),
		Total:       total,
		PaidShare:   paid,
		OwedShare:   owed,
		IsPayment:   e.Payment,
		IsCash:      isCash,
		Ignored:     ignored,
		CategoryKey: strconv.FormatInt(e.Category.ID, 10),
	}, nil
}

// hasKeyword checks the side channels the user can flag an expense through:
// the details field, or a comment written by the user themselves.
func (s *Source) hasKeyword(ctx context.Context, e apiExpense, keyword string) (bool, error) {
	if keyword == "" {
		return false, nil
	}
	if strings.TrimSpace(e.Details) == keyword {
		return true, nil
	}
	if e.CommentsCount == 0 {
		return false, nil
	}
	comments, err := s.client.GetComments(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("fetch comments: %w", err)
	}
	for _, c := range comments {
		if c.User.ID == s.userID && strings.TrimSpace(c.Content) == keyword {
			return true, nil
		}
	}
	return false, nil
}

// PrintCategories dumps the category tree in a form that can be pasted into
// the [categories] config section.
func PrintCategories(ctx context.Context, client *Client, w io.Writer) error {
	cats, err := client.GetCategories(ctx)
	if err != nil {
		return err
	}
	for _, c := range cats {
		fmt.Fprintf(w, "%d = \"\"  # %s\n", c.ID, c.Name)
		for _, sub := range c.Subcategories {
			fmt.Fprintf(w, "%d = \"\"  # %s > %s\n", sub.ID, c.Name, sub.Name)
		}
	}
	return nil
}
