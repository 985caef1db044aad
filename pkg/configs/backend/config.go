package backend

import (
	"time"
)

type BackendConfig struct {
	port         int32
	database     string
	specStore    *SpecStoreConfig
	orchestrator *OrchestratorConfig
	sync         *SyncConfig
}

func (c *BackendConfig) Port() int32 {
	return c.port
}

// Connection string for database.
func (c *BackendConfig) Database() string {
	return c.database
}

func (c *BackendConfig) SpecStore() *SpecStoreConfig {
	return c.specStore
}

func (c *BackendConfig) Orchestrator() *OrchestratorConfig {
	return c.orchestrator
}

func (c *BackendConfig) Sync() *SyncConfig {
	return c.sync
}

// Configuration for the spec store.
//
// to get `SpecStoreConfig` instance, use `BackendConfigMarshall.TrySeal()` .
type SpecStoreConfig struct {
	root string
}

// directory holding declarative workflow documents.
func (c *SpecStoreConfig) Root() string {
	return c.root
}

type OrchestratorConfig struct {
	defaultCluster string
	clusters       map[string]*ClusterConfig
}

// cluster id used when a Workflow or Run does not name one.
func (c *OrchestratorConfig) DefaultCluster() string {
	return c.defaultCluster
}

func (c *OrchestratorConfig) Clusters() map[string]*ClusterConfig {
	return c.clusters
}

// Connection settings for one orchestrator cluster.
type ClusterConfig struct {
	endpoint string
	username string
	password string
	timeout  time.Duration
	attempts int
}

func (c *ClusterConfig) Endpoint() string {
	return c.endpoint
}

func (c *ClusterConfig) Username() string {
	return c.username
}

func (c *ClusterConfig) Password() string {
	return c.password
}

// per-request timeout. default = 30s
func (c *ClusterConfig) Timeout() time.Duration {
	return c.timeout
}

// how many times a failed request is tried. default = 3
func (c *ClusterConfig) Attempts() int {
	return c.attempts
}

type SyncConfig struct {
	specReconcileInterval time.Duration
	runSyncInterval       time.Duration
	cycleTimeout          time.Duration
	stalenessThreshold    time.Duration
	concurrency           int
}

// cooldown between spec reconciliation passes. default = 5m
func (c *SyncConfig) SpecReconcileInterval() time.Duration {
	return c.specReconcileInterval
}

// cooldown between run state sync passes. default = 1m
func (c *SyncConfig) RunSyncInterval() time.Duration {
	return c.runSyncInterval
}

// deadline for a single reconciliation pass. default = 10m
func (c *SyncConfig) CycleTimeout() time.Duration {
	return c.cycleTimeout
}

// age of lastSyncedAt beyond which a tracked Run counts as stale. default = 60m
func (c *SyncConfig) StalenessThreshold() time.Duration {
	return c.stalenessThreshold
}

// upper bound of concurrent orchestrator fetches in one sync pass. default = 8
func (c *SyncConfig) Concurrency() int {
	return c.concurrency
}
