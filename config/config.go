package config

import (
	"fmt"
)

type DB struct {
	Host     string
	Port     int
	User     string
	Password string
	Dbname   string
	Sslmode  string
}

// Audit holds the configuration of the tamper-evident audit ledger.
type Audit struct {
	// PrivateKeyPath is the PEM RSA private key used to sign ledger entries.
	// If empty, a fallback file below DataDir is tried; with no key at all
	// entries are written with the literal signature "NO_KEY".
	PrivateKeyPath string
	// PublicKeyPath is the PEM public key the offline verifier checks against
	PublicKeyPath string
	// Salt is mixed into the SHA-256 digests of actor ids and IP addresses
	Salt string
}

type Error struct {
	// Critical indicates if the error encountered is critical and the app must be stopped
	Critical bool
	// Message error message
	Message string
}

// MetricsCfg initializes the metrics config
type MetricsCfg struct {
	Enabled    bool
	ListenPort int
}

type Electiond struct {
	// Database connection options
	DB *DB
	// Audit ledger options
	Audit *Audit
	// LogLevel logging level
	LogLevel string
	// LogOutput logging output
	LogOutput string
	// ErrorLogFile for logging warning, error and fatal messages
	LogErrorFile string
	// Metrics config options
	Metrics *MetricsCfg
	// DataDir path where local files (config, fallback key) are stored
	DataDir string
	// SaveConfig overwrites the config file with the CLI provided flags
	SaveConfig bool
	// Action is the operation to perform (migrate, count, finalize, results, watch)
	Action string
	// Election is the election id for count/finalize/results actions
	Election string
	// User is the acting user id recorded with countings and finalisations
	User string
	// Version selects a result version for finalize/results (0 = latest)
	Version int
	// Migration options
	Migrate *Migrate
}

func (e *Electiond) String() string {
	return fmt.Sprintf("DB: %+v, Audit: {PrivateKeyPath: %s, PublicKeyPath: %s}, LogLevel: %s, LogOutput: %s, LogErrorFile: %s, Metrics: %+v, DataDir: %s, SaveConfig: %v, Action: %s, Election: %s, Version: %d, Migrate: %+v",
		*e.DB, e.Audit.PrivateKeyPath, e.Audit.PublicKeyPath, e.LogLevel, e.LogOutput, e.LogErrorFile, *e.Metrics, e.DataDir, e.SaveConfig, e.Action, e.Election, e.Version, *e.Migrate)
}

// NewElectiondConfig initializes the fields in the config struct
func NewElectiondConfig() *Electiond {
	return &Electiond{
		DB:      new(DB),
		Audit:   new(Audit),
		Migrate: new(Migrate),
		Metrics: new(MetricsCfg),
	}
}

type Migrate struct {
	// Action defines the migration action to be taken (up, down, status)
	Action string
}
