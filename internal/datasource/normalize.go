package datasource

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/hilo-oracle/internal/models"
)

var roundValidator = validator.New()

// RoundRecord is one round as served by the upstream feed. Two field sets
// are in circulation; whichever is present wins, the English one first.
type RoundRecord struct {
	Session    *int64   `json:"session,omitempty"`
	Result     *string  `json:"result,omitempty"`
	TotalScore *float64 `json:"totalScore,omitempty"`

	Phien  *int64   `json:"Phien,omitempty"`
	KetQua *string  `json:"Ket_qua,omitempty"`
	Tong   *float64 `json:"Tong,omitempty"`
}

// ToRound converts the record into a validated round
func (r RoundRecord) ToRound() (models.Round, error) {
	var round models.Round

	switch {
	case r.Session != nil:
		round.ID = *r.Session
	case r.Phien != nil:
		round.ID = *r.Phien
	}

	var label string
	switch {
	case r.Result != nil:
		label = *r.Result
	case r.KetQua != nil:
		label = *r.KetQua
	}
	outcome, err := models.ParseOutcome(label)
	if err != nil {
		return round, fmt.Errorf("round %d: %w: %q", round.ID, err, label)
	}
	round.Outcome = outcome

	switch {
	case r.TotalScore != nil:
		round.Score = *r.TotalScore
	case r.Tong != nil:
		round.Score = *r.Tong
	}

	if err := roundValidator.Struct(round); err != nil {
		return round, fmt.Errorf("round %d: %w", round.ID, err)
	}
	return round, nil
}

// NormalizeResult carries the history together with bookkeeping counts
type NormalizeResult struct {
	History    models.History
	Rejected   int
	Duplicates int
	Errors     []error
}

// Normalize turns upstream records into a chronological history. Malformed
// rounds are rejected, rounds are sorted by id, duplicate ids keep their
// first occurrence and at most maxRounds trailing rounds are retained
// (0 keeps everything). An ErrInvalidData error is returned only when
// records were supplied and none of them survived.
func Normalize(source string, records []RoundRecord, maxRounds int) (NormalizeResult, error) {
	result := NormalizeResult{History: make(models.History, 0, len(records))}

	for _, rec := range records {
		round, err := rec.ToRound()
		if err != nil {
			result.Rejected++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.History = append(result.History, round)
	}

	if len(records) > 0 && len(result.History) == 0 {
		return result, NewDataSourceError(source, ErrCodeInvalidData,
			fmt.Sprintf("all %d rounds were malformed", len(records)), result.Errors[0])
	}

	sort.SliceStable(result.History, func(i, j int) bool {
		return result.History[i].ID < result.History[j].ID
	})

	deduped := result.History[:0]
	for _, round := range result.History {
		if n := len(deduped); n > 0 && deduped[n-1].ID == round.ID {
			result.Duplicates++
			continue
		}
		deduped = append(deduped, round)
	}
	result.History = deduped

	if maxRounds > 0 {
		result.History = result.History.Tail(maxRounds)
	}

	return result, nil
}
