// auditverify is the offline audit-ledger verifier. It scans the ledger in
// ascending id order, re-derives every entry hash, checks the chain links
// and the RSA signatures, and exits nonzero listing every violating entry.
//
// The ledger is assumed to carry a single signing key for its whole
// lifetime; verifying a rotated ledger means running once per epoch against
// a copy of each.
package main

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	log "go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/audit"
	"github.com/rneumann/election-sub003/config"
	"github.com/rneumann/election-sub003/database/pgsql"
)

func main() {
	dbc := new(config.DB)
	var publicKeyPath, logLevel string
	flag.StringVar(&publicKeyPath, "publicKey", "", "PEM RSA public key of the audit ledger")
	flag.StringVar(&logLevel, "logLevel", "error", "Log level (debug, info, warn, error, fatal)")
	flag.StringVar(&dbc.Host, "dbHost", "127.0.0.1", "DB server address")
	flag.IntVar(&dbc.Port, "dbPort", 5432, "DB server port")
	flag.StringVar(&dbc.User, "dbUser", "user", "DB Username")
	flag.StringVar(&dbc.Password, "dbPassword", "password", "DB password")
	flag.StringVar(&dbc.Dbname, "dbName", "database", "DB database name")
	flag.StringVar(&dbc.Sslmode, "dbSslmode", "prefer", "DB postgres sslmode")
	flag.Parse()
	log.Init(logLevel, "stderr")

	if publicKeyPath == "" {
		log.Fatal("missing --publicKey")
	}
	publicKey, err := os.ReadFile(publicKeyPath)
	if err != nil {
		log.Fatalf("cannot read public key: %v", err)
	}

	db, err := pgsql.New(dbc)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	violations, err := audit.NewVerifier(db, publicKey).Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}
	if len(violations) == 0 {
		fmt.Println("audit ledger valid")
		return
	}
	for _, v := range violations {
		fmt.Println(v)
	}
	os.Exit(1)
}
