package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/types"
)

func (d *Database) Election(ctx context.Context, electionID uuid.UUID) (*types.Election, error) {
	var election types.Election
	selectElection := `SELECT id, info, election_type, counting_method, seats_to_fill,
							votes_per_ballot, max_cumulative_votes, start, "end"
						FROM elections WHERE id = $1`
	row := d.db.QueryRowxContext(ctx, selectElection, electionID)
	if err := row.StructScan(&election); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: election %s", database.ErrNotFound, electionID)
		}
		return nil, fmt.Errorf("error getting election: %w", err)
	}
	return &election, nil
}

// AggregatedVotes reads the anonymised tallies. Referendums join the option
// list with its ballot votes so options nobody picked still come back with
// zero votes; everything else reads the pre-aggregated counting view.
func (d *Database) AggregatedVotes(ctx context.Context, election *types.Election) ([]types.AggregatedVote, error) {
	var votes []types.AggregatedVote
	var query string
	if election.ElectionType == types.TypeReferendum {
		query = `SELECT ec.listnum AS listnum, c.keyword AS firstname, '' AS lastname,
					COALESCE(SUM(b.votes), 0)::bigint AS votes
				FROM electioncandidates ec
				JOIN candidates c ON c.id = ec.candidateid
				LEFT JOIN ballotvotes b ON b.election = ec.electionid AND b.listnum = ec.listnum
				WHERE ec.electionid = $1
				GROUP BY ec.listnum, c.keyword
				ORDER BY ec.listnum`
	} else {
		query = `SELECT listnum, firstname, lastname, votes
				FROM counting WHERE electionid = $1 ORDER BY listnum`
	}
	if err := d.db.SelectContext(ctx, &votes, query, election.ID); err != nil {
		return nil, fmt.Errorf("error getting aggregated votes: %w", err)
	}
	return votes, nil
}

func (d *Database) BallotStatistics(ctx context.Context, electionID uuid.UUID) (*types.BallotStatistics, error) {
	var stats types.BallotStatistics
	selectStats := `SELECT election, total_ballots, valid_ballots, invalid_ballots
					FROM ballot_statistics WHERE election = $1`
	row := d.db.QueryRowxContext(ctx, selectStats, electionID)
	if err := row.StructScan(&stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no statistics row yet, every field defaults to zero
			return &types.BallotStatistics{Election: electionID}, nil
		}
		return nil, fmt.Errorf("error getting ballot statistics: %w", err)
	}
	return &stats, nil
}
