// Package credentials implements the profile-file-backed credential vendor:
// cached AWS-style credentials, refreshed on a schedule, with staleness
// warnings.
package credentials

import (
	"os"
	"sync"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/agenterrors"
	"github.com/cloudshuttle/logshuttle/internal/logging"
)

// Options configures one credential provider instance, bound from the
// configuration tree's per-entry options in internal/agent/build.go.
type Options struct {
	Profile         string
	FilePath        string
	RefreshInterval time.Duration
	WarningInterval time.Duration
}

// Credentials is the minimal AWS-style credential triple.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// RefreshState pairs credentials with their expiration instant, which must
// be strictly after the construction instant by the configured refresh
// interval.
type RefreshState struct {
	Credentials Credentials
	Expiration  time.Time
}

// Provider vends cached credentials from a shared-credentials file,
// re-reading the profile lazily once the refresh interval has elapsed
// rather than owning a dedicated background thread; the housekeeping
// scheduler drives Refresh on its own cadence.
type Provider struct {
	opts Options
	log  *logging.Logger

	mu    sync.Mutex
	state RefreshState
}

// New constructs a Provider, verifying the file exists up front.
func New(opts Options, log *logging.Logger) (*Provider, error) {
	path := expandHome(opts.FilePath)
	if _, err := os.Stat(path); err != nil {
		return nil, agenterrors.CredentialsNotFoundErr(opts.Profile, err)
	}
	opts.FilePath = path
	return &Provider{opts: opts, log: log}, nil
}

// Get returns the current credentials, refreshing them if the refresh
// interval has elapsed since the last successful load.
func (p *Provider) Get() (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Now().Before(p.state.Expiration) {
		return p.state.Credentials, nil
	}
	return p.refreshLocked()
}

// Refresh forces a re-read regardless of expiration, emitting the staleness
// warning if applicable. Exposed for the housekeeping scheduler.
func (p *Provider) Refresh() (RefreshState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.refreshLocked(); err != nil {
		return RefreshState{}, err
	}
	return p.state, nil
}

func (p *Provider) refreshLocked() (Credentials, error) {
	f, err := os.Open(p.opts.FilePath)
	if err != nil {
		return Credentials{}, agenterrors.CredentialsNotFoundErr(p.opts.Profile, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Credentials{}, agenterrors.CredentialsNotFoundErr(p.opts.Profile, err)
	}

	profiles, err := parseProfiles(f)
	if err != nil {
		return Credentials{}, agenterrors.ParseErr(p.opts.FilePath, err)
	}
	section, ok := profiles[p.opts.Profile]
	if !ok {
		return Credentials{}, agenterrors.CredentialsNotFoundErr(p.opts.Profile, nil)
	}

	creds := Credentials{
		AccessKeyID:     section["aws_access_key_id"],
		SecretAccessKey: section["aws_secret_access_key"],
		SessionToken:    section["aws_session_token"],
	}

	now := time.Now()
	p.state = RefreshState{Credentials: creds, Expiration: now.Add(p.opts.RefreshInterval)}

	if p.opts.WarningInterval > 0 && p.log != nil {
		age := now.Sub(info.ModTime())
		if age > p.opts.WarningInterval {
			p.log.CredentialsStale(p.opts.FilePath, age)
		}
	}

	return creds, nil
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return home + path[1:]
		}
	}
	return path
}
