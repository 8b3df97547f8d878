// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "repurposing-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on HTTP 429. Zero uses the httputil default.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// SourcesConfig holds settings for the external evidence sources.
type SourcesConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the per-source result limit (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	EnablePubMed          bool `json:"enable_pubmed" yaml:"enable_pubmed" mapstructure:"enable_pubmed"`
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`
	EnableEuropePMC       bool `json:"enable_europe_pmc" yaml:"enable_europe_pmc" mapstructure:"enable_europe_pmc"`
	EnableOpenAlex        bool `json:"enable_openalex" yaml:"enable_openalex" mapstructure:"enable_openalex"`
	EnableArxiv           bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// PubMedAPIKey raises the E-utilities rate limit from 3 to 10 requests/s.
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty" mapstructure:"pubmed_api_key"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	// PatentsViewAPIKey is required by the PatentsView search API.
	PatentsViewAPIKey string `json:"patentsview_api_key,omitempty" yaml:"patentsview_api_key,omitempty" mapstructure:"patentsview_api_key"`

	// OpenAlexEmail opts into the OpenAlex polite pool.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty" mapstructure:"openalex_email"`
}

// CacheConfig configures the worker outcome cache.
type CacheConfig struct {
	Enabled bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MaxSize int           `json:"max_size" yaml:"max_size" mapstructure:"max_size"`
	TTL     time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// EngineConfig holds settings for the orchestration pipeline.
type EngineConfig struct {
	// WorkerTimeout bounds a single worker invocation. Zero disables the bound.
	WorkerTimeout time.Duration `json:"worker_timeout" yaml:"worker_timeout" mapstructure:"worker_timeout"`

	// MaxEvidencePerWorker caps the evidence list each built-in worker returns (default 20).
	MaxEvidencePerWorker int `json:"max_evidence_per_worker" yaml:"max_evidence_per_worker" mapstructure:"max_evidence_per_worker"`
}

// KnowledgeConfig holds settings for the internal knowledge base.
type KnowledgeConfig struct {
	// DocumentsDir holds the internal R&D documents (*.yaml) to ingest.
	DocumentsDir string `json:"documents_dir" yaml:"documents_dir" mapstructure:"documents_dir"`

	// IndexDir holds the SQLite database and exports.
	IndexDir string `json:"index_dir" yaml:"index_dir" mapstructure:"index_dir"`

	// MaxResults is the default maximum number of search hits (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// AuditConfig holds settings for the audit trail database.
type AuditConfig struct {
	// DBPath is the SQLite file for audit records.
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// ReportConfig holds settings for background report generation.
type ReportConfig struct {
	// QueueSize is the number of pending report jobs buffered before Enqueue blocks.
	QueueSize int `json:"queue_size" yaml:"queue_size" mapstructure:"queue_size"`

	// OutputDir receives exported report files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "json" or "console".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// TelemetryConfig toggles metrics collection.
type TelemetryConfig struct {
	Metrics bool `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

// AppConfig groups every component configuration.
type AppConfig struct {
	Sources   SourcesConfig   `json:"sources" yaml:"sources" mapstructure:"sources"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Engine    EngineConfig    `json:"engine" yaml:"engine" mapstructure:"engine"`
	Knowledge KnowledgeConfig `json:"knowledge" yaml:"knowledge" mapstructure:"knowledge"`
	Audit     AuditConfig     `json:"audit" yaml:"audit" mapstructure:"audit"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry" mapstructure:"telemetry"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() AppConfig {
	return AppConfig{
		Sources: SourcesConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "repurposing-engine/0.1",
			},
			MaxResults:            20,
			EnablePubMed:          true,
			EnableSemanticScholar: true,
			EnableEuropePMC:       true,
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 256,
			TTL:     15 * time.Minute,
		},
		Engine: EngineConfig{
			WorkerTimeout:        60 * time.Second,
			MaxEvidencePerWorker: 20,
		},
		Knowledge: KnowledgeConfig{
			DocumentsDir: "knowledge/documents",
			IndexDir:     "knowledge/index",
			MaxResults:   20,
		},
		Audit: AuditConfig{
			DBPath: "data/audit.db",
		},
		Report: ReportConfig{
			QueueSize: 16,
			OutputDir: "output/reports",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
