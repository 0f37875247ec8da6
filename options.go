package kamerwatch

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/kamerwatch/kamerwatch/pkg/sources"
)

// Default directories, relative to the working directory.
const (
	DefaultSnapshotDir = "data"
	DefaultResultsDir  = "results"
	DefaultConfigFile  = "dossiers.yaml"

	// OverviewFile is the CSV summary overview written into the results
	// directory whenever any summary changes.
	OverviewFile = "overview.csv"
)

// config holds the assembled configuration of a Kamerwatch instance.
type config struct {
	configPath   string
	dossiers     *Config
	snapshotDir  string
	resultsDir   string
	overviewFile string
	webhookURL   string

	httpClient *http.Client
	primary    sources.PrimarySource
	secondary  sources.SecondarySource
	downloader PDFDownloader
	notifier   Notifier

	now func() time.Time
}

func defaultConfig() *config {
	return &config{
		configPath:  DefaultConfigFile,
		snapshotDir: DefaultSnapshotDir,
		resultsDir:  DefaultResultsDir,
		now:         time.Now,
	}
}

func (c *config) overviewPath() string {
	if c.overviewFile != "" {
		return c.overviewFile
	}
	return filepath.Join(c.resultsDir, OverviewFile)
}

// Option is a function that configures a Kamerwatch instance.
type Option func(*config) error

// WithConfigFile sets the dossier configuration file read at the start of
// every run.
func WithConfigFile(path string) Option {
	return func(c *config) error {
		c.configPath = path
		return nil
	}
}

// WithConfig supplies the dossier configuration directly, bypassing the
// configuration file.
func WithConfig(cfg *Config) Option {
	return func(c *config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.dossiers = cfg
		return nil
	}
}

// WithSnapshotDir sets the directory holding the persisted stores.
func WithSnapshotDir(dir string) Option {
	return func(c *config) error {
		c.snapshotDir = dir
		return nil
	}
}

// WithResultsDir sets the directory receiving downloads, reports and
// archives, one subdirectory per dossier.
func WithResultsDir(dir string) Option {
	return func(c *config) error {
		c.resultsDir = dir
		return nil
	}
}

// WithOverviewFile overrides where the CSV summary overview is written.
func WithOverviewFile(path string) Option {
	return func(c *config) error {
		c.overviewFile = path
		return nil
	}
}

// WithWebhook enables change notifications through the given webhook
// endpoint.
func WithWebhook(endpoint string) Option {
	return func(c *config) error {
		c.webhookURL = endpoint
		return nil
	}
}

// WithHTTPClient overrides the HTTP client behind the registry transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) error {
		c.httpClient = client
		return nil
	}
}

// WithPrimarySource overrides the repository adapter.
func WithPrimarySource(src sources.PrimarySource) Option {
	return func(c *config) error {
		c.primary = src
		return nil
	}
}

// WithSecondarySource overrides the gazette adapter.
func WithSecondarySource(src sources.SecondarySource) Option {
	return func(c *config) error {
		c.secondary = src
		return nil
	}
}

// WithDownloader overrides the PDF downloader.
func WithDownloader(d PDFDownloader) Option {
	return func(c *config) error {
		c.downloader = d
		return nil
	}
}

// WithNotifier overrides the notifier.
func WithNotifier(n Notifier) Option {
	return func(c *config) error {
		c.notifier = n
		return nil
	}
}

// WithClock overrides the run timestamp source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		c.now = now
		return nil
	}
}
