package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudshuttle/logshuttle/internal/bookmark"
	"github.com/cloudshuttle/logshuttle/internal/config"
	"github.com/cloudshuttle/logshuttle/internal/credentials"
	"github.com/cloudshuttle/logshuttle/internal/dependency"
	"github.com/cloudshuttle/logshuttle/internal/exprlang"
	"github.com/cloudshuttle/logshuttle/internal/logging"
	"github.com/cloudshuttle/logshuttle/internal/metrics"
	"github.com/cloudshuttle/logshuttle/internal/parse/exchange"
	"github.com/cloudshuttle/logshuttle/internal/parse/iis"
	"github.com/cloudshuttle/logshuttle/internal/parse/uls"
	"github.com/cloudshuttle/logshuttle/internal/sink"
	"github.com/cloudshuttle/logshuttle/internal/sink/blobsink"
	"github.com/cloudshuttle/logshuttle/internal/sink/streamsink"
	"github.com/cloudshuttle/logshuttle/internal/source"
	"github.com/cloudshuttle/logshuttle/internal/source/filewatch"
)

// Catalogs groups the factory catalogs bound to configuration type tags.
// NewDefaultCatalogs wires up every concrete implementation this repo
// provides; callers may register additional tags before Build.
type Catalogs struct {
	Credentials *config.Catalog[*credentials.Provider]
	Sinks       *config.Catalog[sink.Sink]
	Sources     *config.Catalog[source.Source]
}

func NewDefaultCatalogs(log *logging.Logger, bookmarks *bookmark.Store) *Catalogs {
	c := &Catalogs{
		Credentials: config.NewCatalog[*credentials.Provider](),
		Sinks:       config.NewCatalog[sink.Sink](),
		Sources:     config.NewCatalog[source.Source](),
	}

	c.Credentials.Register("profilerefreshingawscredentialprovider", func(sec config.Section) (*credentials.Provider, error) {
		opts := credentials.Options{
			Profile:         sec.StringOption("profile", "default"),
			FilePath:        sec.StringOption("filepath", "~/.aws/credentials"),
			RefreshInterval: durationOption(sec, "refreshinterval", 300*time.Second),
			WarningInterval: durationOption(sec, "warninginterval", 0),
		}
		return credentials.New(opts, log)
	})

	c.Sinks.Register("streamsink", func(sec config.Section) (sink.Sink, error) {
		return buildFailoverSink(sec, log, func(prefix string) (sink.RegionalClient, error) {
			return streamsink.New(streamsink.Options{
				Addr:       sec.StringOption(prefix+"addr", ""),
				StreamKey:  sec.StringOption(prefix+"streamkey", ""),
				RatePerSec: floatOption(sec, prefix+"rateperSec", 200),
			}), nil
		})
	})

	c.Sinks.Register("blobsink", func(sec config.Section) (sink.Sink, error) {
		return buildFailoverSink(sec, log, func(prefix string) (sink.RegionalClient, error) {
			return blobsink.New(blobsink.Options{
				AccountName:   sec.StringOption(prefix+"accountname", ""),
				AccountKey:    sec.StringOption(prefix+"accountkey", ""),
				ContainerName: sec.StringOption(prefix+"containername", ""),
				RatePerSec:    floatOption(sec, prefix+"rateperSec", 20),
			})
		})
	})

	c.Sources.Register("filewatch", func(sec config.Section) (source.Source, error) {
		newParser := parserFactoryFor(sec.StringOption("format", "exchange"))
		fw := filewatch.New(sec.ID, filewatch.Options{
			Directory:    sec.StringOption("directory", ""),
			Glob:         sec.StringOption("glob", "*.log"),
			PollInterval: durationOption(sec, "pollinterval", 5*time.Second),
		}, newParser, bookmarks, log)

		dep := dependency.NewDirectoryAvailable(sec.ID+"-directory", sec.StringOption("directory", ""))
		ds := source.NewDependentSource(fw, dep, log)
		return ds, nil
	})

	return c
}

func buildFailoverSink(sec config.Section, log *logging.Logger, newClient func(prefix string) (sink.RegionalClient, error)) (sink.Sink, error) {
	primary, err := newClient("primary.")
	if err != nil {
		return nil, err
	}
	var secondary sink.RegionalClient
	if sec.StringOption("secondary.addr", "") != "" || sec.StringOption("secondary.accountname", "") != "" {
		secondary, err = newClient("secondary.")
		if err != nil {
			return nil, err
		}
	}

	strategy := newStaticTwoRegionStrategy(primary, secondary, sec.ID+"-primary", sec.ID+"-secondary")
	opts := sink.FailoverOptions{
		MaxErrorsBeforeFailover: sec.IntOption("MAX_ERRORS_COUNT_BEFORE_FAILOVER", 3),
		MaxFailoverInterval:     minutesOption(sec, "MAX_FAILOVER_INTERVAL_IN_MINUTES", 10*time.Minute),
	}
	return sink.NewRegionalFailoverSink(sec.ID, opts, strategy, log)
}

func parserFactoryFor(format string) filewatch.ParserFactory {
	switch strings.ToLower(format) {
	case "uls":
		return uls.NewParser
	case "iis":
		return iis.NewParser
	default:
		return exchange.NewParser
	}
}

func durationOption(sec config.Section, key string, def time.Duration) time.Duration {
	if v, ok := sec.Options[key]; ok {
		switch n := v.(type) {
		case string:
			if d, err := time.ParseDuration(n); err == nil {
				return d
			}
		case int:
			return time.Duration(n) * time.Second
		}
	}
	return def
}

// minutesOption reads a duration option expressed in whole minutes when
// given as a bare integer (e.g. MAX_FAILOVER_INTERVAL_IN_MINUTES), unlike
// durationOption's seconds convention.
func minutesOption(sec config.Section, key string, def time.Duration) time.Duration {
	if v, ok := sec.Options[key]; ok {
		switch n := v.(type) {
		case string:
			if d, err := time.ParseDuration(n); err == nil {
				return d
			}
		case int:
			return time.Duration(n) * time.Minute
		}
	}
	return def
}

func floatOption(sec config.Section, key string, def float64) float64 {
	if v, ok := sec.Options[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

// Built is the fully instantiated set of runtime objects a configuration
// tree resolves to.
type Built struct {
	Sinks       map[string]sink.Sink
	Sources     map[string]source.Source
	Credentials map[string]*credentials.Provider
	Pipes       []*Pipe
}

// Build instantiates sinks first, then sources, then credentials, then
// binds Pipes sections to them.
func Build(tree *config.Tree, catalogs *Catalogs, log *logging.Logger, m *metrics.Metrics) (*Built, error) {
	built := &Built{
		Sinks:       map[string]sink.Sink{},
		Sources:     map[string]source.Source{},
		Credentials: map[string]*credentials.Provider{},
	}

	for _, sec := range tree.Sinks {
		s, err := catalogs.Sinks.Create(sec)
		if err != nil {
			return nil, err
		}
		built.Sinks[sec.ID] = s
	}

	for _, sec := range tree.Sources {
		s, err := catalogs.Sources.Create(sec)
		if err != nil {
			return nil, err
		}
		built.Sources[sec.ID] = s
	}

	for _, sec := range tree.Credentials {
		p, err := catalogs.Credentials.Create(sec)
		if err != nil {
			return nil, err
		}
		built.Credentials[sec.ID] = p
	}

	for _, sec := range tree.Pipes {
		src, ok := built.Sources[sec.StringOption("source", "")]
		if !ok {
			return nil, fmt.Errorf("pipe %q references unknown source", sec.ID)
		}
		sinkIDs, _ := sec.Options["sinks"].([]interface{})
		var pipeSinks []sink.Sink
		for _, raw := range sinkIDs {
			id, _ := raw.(string)
			if s, ok := built.Sinks[id]; ok {
				pipeSinks = append(pipeSinks, s)
			}
		}
		p := NewPipe(sec.ID, src, pipeSinks, log, m)

		if keys, templates := sec.DecorationTemplates(); len(keys) > 0 {
			dec, err := exprlang.ParseDecoration(keys, templates)
			if err != nil {
				return nil, fmt.Errorf("pipe %q: %w", sec.ID, err)
			}
			p.SetDecoration(dec, sec.StringMapOption("globals"))
		}

		built.Pipes = append(built.Pipes, p)
	}

	return built, nil
}

// Components adapts the built sinks and sources into the lifecycle
// manager's Component slices, preserving sinks-first start ordering.
func (b *Built) Components() (sinks, sources []Component) {
	for _, s := range b.Sinks {
		sinks = append(sinks, s)
	}
	for _, s := range b.Sources {
		sources = append(sources, s)
	}
	return sinks, sources
}

// RunPipes starts every pipe's fan-out loop; call after StartCompleted.
func (b *Built) RunPipes(ctx context.Context) {
	for _, p := range b.Pipes {
		p.Run(ctx)
	}
}

// StopPipes cancels and drains every pipe; call before Stop.
func (b *Built) StopPipes(ctx context.Context) {
	for _, p := range b.Pipes {
		p.Stop(ctx)
	}
}
