package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/savingsgroup/internal/models"
)

// twoThirds is the pass mark of a TWO_THIRDS_MAJORITY vote.
var twoThirds = decimal.RequireFromString("0.67")

// TallyVotes counts vote rows and decides the result of one voting session.
// Only VERIFIED rows belonging to votingID are counted.
//
// Rules:
// - SIMPLE_MAJORITY: yes > no passes, no > yes fails, otherwise a tie
// - TWO_THIRDS_MAJORITY: yes / (yes + no + abstain) >= 0.67 passes
// - ABSENT rows are reported but never part of the denominator
func TallyVotes(votingID string, voteType models.VoteType, rows []models.LedgerEntry) models.VoteTally {
	tally := models.VoteTally{VotingID: votingID, VoteType: voteType, YesShare: decimal.Zero}

	for _, row := range rows {
		if row.Kind != models.KindVote || row.ParentID != votingID || row.Vote == nil || !row.Counts() {
			continue
		}
		switch row.Vote.Choice {
		case models.ChoiceYes:
			tally.Yes++
		case models.ChoiceNo:
			tally.No++
		case models.ChoiceAbstain:
			tally.Abstain++
		case models.ChoiceAbsent:
			tally.Absent++
		}
	}

	cast := tally.Yes + tally.No + tally.Abstain
	if cast > 0 {
		tally.YesShare = decimal.NewFromInt(int64(tally.Yes)).
			Div(decimal.NewFromInt(int64(cast))).
			Round(4)
	}

	switch voteType {
	case models.VoteTwoThirdsMajority:
		if cast > 0 && tally.YesShare.GreaterThanOrEqual(twoThirds) {
			tally.Result = models.VotePassed
		} else {
			tally.Result = models.VoteFailed
		}
	default:
		switch {
		case tally.Yes > tally.No:
			tally.Result = models.VotePassed
		case tally.No > tally.Yes:
			tally.Result = models.VoteFailed
		default:
			tally.Result = models.VoteTie
		}
	}
	return tally
}
