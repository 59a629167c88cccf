package pgsql

import (
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/database"
)

// Migrations available
var Migrations = migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id:   "1",
			Up:   []string{migration1up},
			Down: []string{migration1down},
		},
	},
}

const migration1up = `
-- NOTES
-- 1. pgcrypto is assumed to be enabled in public needing superuser access
--    CREATE EXTENSION IF NOT EXISTS pgcrypto WITH SCHEMA public;
-- 2. Elections and ballots are written by the import and voting
--    collaborators; the counting core only reads them.

CREATE EXTENSION IF NOT EXISTS pgcrypto SCHEMA public;

--------------------------- Elections

CREATE TABLE elections (
    id uuid DEFAULT gen_random_uuid() NOT NULL,
    info text NOT NULL,
    election_type text NOT NULL,
    counting_method text NOT NULL,
    seats_to_fill integer NOT NULL DEFAULT 1,
    votes_per_ballot integer NOT NULL DEFAULT 1,
    max_cumulative_votes integer NOT NULL DEFAULT 1,
    start timestamp with time zone NOT NULL,
    "end" timestamp with time zone NOT NULL
);

ALTER TABLE ONLY elections
    ADD CONSTRAINT elections_pkey PRIMARY KEY (id);

--------------------------- Candidates and ballot votes (referendum shape)

CREATE TABLE candidates (
    id uuid DEFAULT gen_random_uuid() NOT NULL,
    keyword text NOT NULL
);

ALTER TABLE ONLY candidates
    ADD CONSTRAINT candidates_pkey PRIMARY KEY (id);

CREATE TABLE electioncandidates (
    electionid uuid NOT NULL REFERENCES elections (id),
    listnum integer NOT NULL,
    candidateid uuid NOT NULL REFERENCES candidates (id),
    firstname text NOT NULL DEFAULT '',
    lastname text NOT NULL DEFAULT ''
);

ALTER TABLE ONLY electioncandidates
    ADD CONSTRAINT electioncandidates_pkey PRIMARY KEY (electionid, listnum);

CREATE TABLE ballotvotes (
    election uuid NOT NULL REFERENCES elections (id),
    listnum integer NOT NULL,
    votes integer NOT NULL DEFAULT 0
);

CREATE INDEX ballotvotes_election_idx ON ballotvotes (election, listnum);

--------------------------- Aggregated counting view (non-referendum shape)

CREATE VIEW counting AS
    SELECT b.election AS electionid,
           b.listnum AS listnum,
           ec.firstname AS firstname,
           ec.lastname AS lastname,
           SUM(b.votes)::bigint AS votes
    FROM ballotvotes b
    JOIN electioncandidates ec
        ON ec.electionid = b.election AND ec.listnum = b.listnum
    GROUP BY b.election, b.listnum, ec.firstname, ec.lastname;

--------------------------- Ballot statistics

CREATE TABLE ballot_statistics (
    election uuid NOT NULL REFERENCES elections (id),
    total_ballots bigint NOT NULL DEFAULT 0,
    valid_ballots bigint NOT NULL DEFAULT 0,
    invalid_ballots bigint NOT NULL DEFAULT 0
);

ALTER TABLE ONLY ballot_statistics
    ADD CONSTRAINT ballot_statistics_pkey PRIMARY KEY (election);

--------------------------- Election results

CREATE TABLE election_results (
    id bigserial NOT NULL,
    election_id uuid NOT NULL REFERENCES elections (id),
    version integer NOT NULL,
    result_data jsonb NOT NULL,
    is_final boolean NOT NULL DEFAULT false,
    test_election boolean NOT NULL DEFAULT false,
    counted_by text NOT NULL,
    counted_at timestamp with time zone NOT NULL DEFAULT CURRENT_TIMESTAMP
);

ALTER TABLE ONLY election_results
    ADD CONSTRAINT election_results_pkey PRIMARY KEY (id);

ALTER TABLE ONLY election_results
    ADD CONSTRAINT election_results_version_unique UNIQUE (election_id, version);

-- at most one final result per election
CREATE UNIQUE INDEX election_results_final_unique
    ON election_results (election_id) WHERE is_final;

--------------------------- Audit log

CREATE TABLE audit_log (
    id bigserial NOT NULL,
    timestamp timestamp with time zone NOT NULL,
    actor_id_hash text,
    actor_role text,
    ip_hash text,
    session_hash text,
    action_type text NOT NULL,
    level text NOT NULL,
    details jsonb NOT NULL DEFAULT '{}',
    prev_hash text NOT NULL,
    entry_hash text NOT NULL,
    signature text NOT NULL
);

ALTER TABLE ONLY audit_log
    ADD CONSTRAINT audit_log_pkey PRIMARY KEY (id);

CREATE INDEX audit_log_timestamp_idx ON audit_log (timestamp);
`

const migration1down = `
DROP TABLE audit_log;
DROP TABLE election_results;
DROP TABLE ballot_statistics;
DROP VIEW counting;
DROP TABLE ballotvotes;
DROP TABLE electioncandidates;
DROP TABLE candidates;
DROP TABLE elections;
DROP EXTENSION IF EXISTS pgcrypto;
`

func Migrator(action string, db database.Database) error {
	switch action {
	case "upSync":
		log.Infof("checking if DB is up to date")
		mTotal, mApplied, _, err := db.MigrateStatus()
		if err != nil {
			return fmt.Errorf("could not retrieve migrations status: (%v)", err)
		}
		if mTotal > mApplied {
			log.Infof("applying missing %d migrations to DB", mTotal-mApplied)
			n, err := db.MigrationUpSync()
			if err != nil {
				return fmt.Errorf("could not apply necessary migrations (%v)", err)
			}
			if n != mTotal-mApplied {
				return fmt.Errorf("could not apply all necessary migrations (%v)", err)
			}
		} else if mTotal < mApplied {
			return fmt.Errorf("something goes terribly wrong with the DB migrations")
		}
	case "up", "down":
		log.Info("applying migration")
		op := migrate.Up
		if action == "down" {
			op = migrate.Down
		}
		n, err := db.Migrate(op)
		if err != nil {
			return fmt.Errorf("error applying migration: (%v)", err)
		}
		if n != 1 {
			return fmt.Errorf("reported applied migrations !=1")
		}
		log.Infof("%q migration complete", action)
	case "status":
		break
	default:
		return fmt.Errorf("unknown migrate command")
	}

	total, actual, record, err := db.MigrateStatus()
	if err != nil {
		return fmt.Errorf("could not retrieve migrations status: (%v)", err)
	}
	log.Infof("Total Migrations: %d\nApplied migrations: %d (%s)", total, actual, record)
	return nil
}
