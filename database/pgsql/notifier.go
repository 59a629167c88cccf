package pgsql

import (
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"go.vocdoni.io/dvote/log"

	"github.com/rneumann/election-sub003/config"
)

// ResultsChannel is the LISTEN/NOTIFY channel FinalizeResult announces
// finalised result versions on.
const ResultsChannel = "election_results_update"

// notifier encapsulates the state of the listener connection.
type notifier struct {
	listener *pq.Listener
	failed   chan error
}

// FinalizedResult is one notification payload: which election got an
// official result, and which version it is.
type FinalizedResult struct {
	ElectionID string
	Version    int
}

func NewNotifier(dbc *config.DB, channelName string) (*notifier, error) {
	notifier := &notifier{failed: make(chan error, 2)}
	listener := pq.NewListener(fmt.Sprintf("host=%s port=%d user=%s password=%s"+
		" dbname=%s sslmode=%s client_encoding=%s",
		dbc.Host, dbc.Port, dbc.User, dbc.Password, dbc.Dbname,
		dbc.Sslmode, "UTF8"), 2*time.Second, time.Minute, notifier.logListener)
	if err := listener.Listen(channelName); err != nil {
		listener.Close()
		log.Errorf("could not start results listener: %v", err)
		return nil, err
	}
	notifier.listener = listener
	return notifier, nil
}

// FetchFinalizedResults is the main loop of the notifier: it receives
// finalisation events from the database and sends them down the given
// channel so the web collaborators can publish or invalidate caches.
func (n *notifier) FetchFinalizedResults(out chan<- FinalizedResult) {
	for {
		select {
		case e := <-n.listener.Notify:
			if e == nil {
				continue
			}
			result, err := parseNotification(e.Extra)
			if err != nil {
				log.Warnf("cannot parse result notification %q: %v", e.Extra, err)
				continue
			}
			log.Debug("pgsql notified: ", e.Extra)
			out <- result
		case err := <-n.failed:
			log.Error(err)
		case <-time.After(time.Minute):
			go func() {
				if err := n.listener.Ping(); err != nil {
					log.Error(err)
				}
			}()
		}
	}
}

var notificationRe = regexp.MustCompile(`^(\S+) VERSION=(\d+)$`)

func parseNotification(payload string) (FinalizedResult, error) {
	m := notificationRe.FindStringSubmatch(payload)
	if m == nil {
		return FinalizedResult{}, fmt.Errorf("unexpected payload format")
	}
	var version int
	if _, err := fmt.Sscanf(m[2], "%d", &version); err != nil {
		return FinalizedResult{}, err
	}
	return FinalizedResult{ElectionID: m[1], Version: version}, nil
}

func (n *notifier) Close() {
	if err := n.listener.Close(); err != nil {
		log.Warnf("error closing results listener: %v", err)
	}
}

func (n *notifier) logListener(event pq.ListenerEventType, err error) {
	if err != nil {
		log.Errorf("pgsql listener error: %s\n", err)
	}
	if event == pq.ListenerEventConnectionAttemptFailed {
		n.failed <- err
	}
}
