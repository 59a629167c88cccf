package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	log "go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/audit"
	"github.com/rneumann/election-sub003/config"
	"github.com/rneumann/election-sub003/counting"
	"github.com/rneumann/election-sub003/database"
	"github.com/rneumann/election-sub003/database/pgsql"
)

func newConfig() (*config.Electiond, config.Error) {
	var err error
	var cfgError config.Error
	cfg := config.NewElectiondConfig()
	home, err := os.UserHomeDir()
	if err != nil {
		cfgError = config.Error{
			Critical: true,
			Message:  fmt.Sprintf("cannot get user home directory with error: %s", err),
		}
		return nil, cfgError
	}
	// flags
	flag.StringVar(&cfg.DataDir, "dataDir", home+"/.electiond", "directory where data is stored")
	cfg.LogLevel = *flag.String("logLevel", "info", "Log level (debug, info, warn, error, fatal)")
	cfg.LogOutput = *flag.String("logOutput", "stdout", "Log output (stdout, stderr or filepath)")
	cfg.LogErrorFile = *flag.String("logErrorFile", "", "Log errors and warnings to a file")
	cfg.SaveConfig = *flag.Bool("saveConfig", false,
		"overwrites an existing config file with the CLI provided flags")
	cfg.Action = *flag.String("action", "",
		"operation to perform (migrate, count, finalize, results, watch)")
	cfg.Election = *flag.String("election", "", "election id for count/finalize/results")
	cfg.User = *flag.String("user", "", "acting user id recorded with countings")
	cfg.Version = *flag.Int("version", 0, "result version for finalize/results (0 = latest)")
	cfg.Audit.PrivateKeyPath = *flag.String("privateKeyPath", "",
		"PEM RSA private key for signing audit entries "+
			"(falls back to <dataDir>/audit_rsa.pem)")
	cfg.Audit.PublicKeyPath = *flag.String("publicKeyPath", "",
		"PEM RSA public key of the audit ledger")
	cfg.Audit.Salt = *flag.String("auditSalt", "",
		"salt mixed into hashed actor identifiers in the audit log")
	cfg.DB.Host = *flag.String("dbHost", "127.0.0.1", "DB server address")
	cfg.DB.Port = *flag.Int("dbPort", 5432, "DB server port")
	cfg.DB.User = *flag.String("dbUser", "user", "DB Username")
	cfg.DB.Password = *flag.String("dbPassword", "password", "DB password")
	cfg.DB.Dbname = *flag.String("dbName", "database", "DB database name")
	cfg.DB.Sslmode = *flag.String("dbSslmode", "prefer", "DB postgres sslmode")
	cfg.Migrate.Action = *flag.String("migrateAction", "", "Migration action (up,down,status)")
	// metrics
	cfg.Metrics.Enabled = *flag.Bool("metricsEnabled", true, "enable prometheus metrics")
	cfg.Metrics.ListenPort = *flag.Int("metricsPort", 9090, "prometheus metrics port")

	// parse flags
	flag.Parse()

	// setting up viper
	viper := viper.New()
	viper.AddConfigPath(cfg.DataDir)
	viper.SetConfigName("electiond")
	viper.SetConfigType("yml")
	viper.SetEnvPrefix("ELECTIOND")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// the audit contract names these two without the prefix
	viper.BindEnv("audit.privateKeyPath", "PRIVATE_KEY_PATH")
	viper.BindEnv("audit.salt", "AUDIT_SALT")

	// binding flags to viper

	// global
	viper.BindPFlag("dataDir", flag.Lookup("dataDir"))
	viper.BindPFlag("logLevel", flag.Lookup("logLevel"))
	viper.BindPFlag("logErrorFile", flag.Lookup("logErrorFile"))
	viper.BindPFlag("logOutput", flag.Lookup("logOutput"))
	viper.BindPFlag("action", flag.Lookup("action"))
	viper.BindPFlag("election", flag.Lookup("election"))
	viper.BindPFlag("user", flag.Lookup("user"))
	viper.BindPFlag("version", flag.Lookup("version"))
	viper.BindPFlag("audit.privateKeyPath", flag.Lookup("privateKeyPath"))
	viper.BindPFlag("audit.publicKeyPath", flag.Lookup("publicKeyPath"))
	viper.BindPFlag("audit.salt", flag.Lookup("auditSalt"))
	viper.BindPFlag("db.host", flag.Lookup("dbHost"))
	viper.BindPFlag("db.port", flag.Lookup("dbPort"))
	viper.BindPFlag("db.user", flag.Lookup("dbUser"))
	viper.BindPFlag("db.password", flag.Lookup("dbPassword"))
	viper.BindPFlag("db.dbName", flag.Lookup("dbName"))
	viper.BindPFlag("db.sslMode", flag.Lookup("dbSslmode"))
	viper.BindPFlag("migrate.action", flag.Lookup("migrateAction"))
	// metrics
	viper.BindPFlag("metrics.enabled", flag.Lookup("metricsEnabled"))
	viper.BindPFlag("metrics.listenPort", flag.Lookup("metricsPort"))

	// check if config file exists
	_, err = os.Stat(cfg.DataDir + "/electiond.yml")
	if os.IsNotExist(err) {
		cfgError = config.Error{
			Message: fmt.Sprintf("creating new config file in %s", cfg.DataDir),
		}
		// creating config folder if not exists
		err = os.MkdirAll(cfg.DataDir, os.ModePerm)
		if err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot create data directory: %s", err),
			}
		}
		// create config file if not exists
		if err := viper.SafeWriteConfig(); err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot write config file into config dir: %s", err),
			}
		}
	} else {
		// read config file
		err = viper.ReadInConfig()
		if err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot read loaded config file in %s: %s", cfg.DataDir, err),
			}
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		cfgError = config.Error{
			Message: fmt.Sprintf("cannot unmarshal loaded config file: %s", err),
		}
	}

	if cfg.SaveConfig {
		viper.Set("saveConfig", false)
		if err := viper.WriteConfig(); err != nil {
			cfgError = config.Error{
				Message: fmt.Sprintf("cannot overwrite config file into config dir: %s", err),
			}
		}
	}
	return cfg, cfgError
}

func main() {
	// setup config and init logger
	cfg, cfgerr := newConfig()
	if cfgerr.Critical {
		panic(cfgerr.Message)
	}
	if cfg == nil {
		panic("cannot read configuration")
	}
	log.Init(cfg.LogLevel, cfg.LogOutput)
	if path := cfg.LogErrorFile; path != "" {
		if err := log.SetFileErrorLog(path); err != nil {
			log.Fatal(err)
		}
	}
	log.Debugf("initializing config: %s", cfg.String())

	// Database Interface
	var db database.Database

	// Postgres with sqlx
	db, err := pgsql.New(cfg.DB)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Standalone Migrations
	if cfg.Action == "migrate" || cfg.Migrate.Action != "" {
		action := cfg.Migrate.Action
		if action == "" {
			action = "upSync"
		}
		if err := pgsql.Migrator(action, db); err != nil {
			log.Fatal(err)
		}
		return
	}

	// Check that all migrations are applied before proceeding
	// and if not apply them
	if err := pgsql.Migrator("upSync", db); err != nil {
		log.Fatal(err)
	}

	// Audit ledger signer
	signer, err := audit.NewSigner(cfg.Audit.PrivateKeyPath, cfg.DataDir+"/audit_rsa.pem")
	if err != nil {
		log.Fatal(err)
	}
	auditor := audit.NewLogger(db, signer, cfg.Audit.Salt)
	service := counting.NewService(db, auditor)

	ctx := context.Background()
	switch cfg.Action {
	case "count":
		summary, err := service.PerformCounting(ctx, parseElectionID(cfg.Election), cfg.User)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(summary)
	case "finalize":
		if err := service.FinalizeResults(ctx, parseElectionID(cfg.Election),
			cfg.Version, cfg.User); err != nil {
			log.Fatal(err)
		}
		printJSON(map[string]bool{"success": true})
	case "results":
		result, err := service.GetResults(ctx, parseElectionID(cfg.Election), cfg.Version)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(result)
	case "watch":
		watch(cfg)
	default:
		log.Fatalf("unknown action %q (migrate, count, finalize, results, watch)", cfg.Action)
	}
}

// watch follows the finalized-results channel until interrupted, so result
// consumers (cache invalidation, publication) get pushed updates.
func watch(cfg *config.Electiond) {
	if cfg.Metrics.Enabled {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			log.Infof("serving prometheus metrics on :%d/metrics", cfg.Metrics.ListenPort)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Metrics.ListenPort), nil); err != nil {
				log.Error(err)
			}
		}()
	}

	resultsNotifier, err := pgsql.NewNotifier(cfg.DB, pgsql.ResultsChannel)
	if err != nil {
		log.Fatal(err)
	}
	defer resultsNotifier.Close()
	finalized := make(chan pgsql.FinalizedResult)
	go resultsNotifier.FetchFinalizedResults(finalized)
	go func() {
		for f := range finalized {
			log.Infof("election %s finalized result version %d", f.ElectionID, f.Version)
		}
	}()

	log.Info("startup complete")
	// close if interrupt received
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Warnf("received SIGTERM, exiting at %s", time.Now().Format(time.RFC850))
}

func parseElectionID(s string) uuid.UUID {
	if s == "" {
		log.Fatal("missing --election")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		log.Fatalf("invalid election id %q: %v", s, err)
	}
	return id
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
