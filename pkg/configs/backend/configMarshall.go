package backend

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/backend.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type BackendConfigMarshall struct {
	Port         int32                       `yaml:"port"`
	Database     string                      `yaml:"database"`
	SpecStore    *SpecStoreConfigMarshall    `yaml:"specStore"`
	Orchestrator *OrchestratorConfigMarshall `yaml:"orchestrator"`
	Sync         *SyncConfigMarshall         `yaml:"sync,omitempty"`
}

var _ Marshalled[*BackendConfig] = &BackendConfigMarshall{}

func (b *BackendConfigMarshall) trySeal(path string) *BackendConfig {
	sync := b.Sync
	if sync == nil {
		sync = &SyncConfigMarshall{}
	}
	return &BackendConfig{
		port:         required(b.Port, path+".port"),
		database:     required(b.Database, path+".database"),
		specStore:    nonnil(b.SpecStore, path+".specStore").trySeal(path + ".specStore"),
		orchestrator: nonnil(b.Orchestrator, path+".orchestrator").trySeal(path + ".orchestrator"),
		sync:         sync.trySeal(path + ".sync"),
	}
}

type SpecStoreConfigMarshall struct {
	Root string `yaml:"root"`
}

func (s *SpecStoreConfigMarshall) trySeal(path string) *SpecStoreConfig {
	return &SpecStoreConfig{
		root: required(s.Root, path+".root"),
	}
}

type OrchestratorConfigMarshall struct {
	DefaultCluster string                            `yaml:"defaultCluster"`
	Clusters       map[string]*ClusterConfigMarshall `yaml:"clusters"`
}

func (o *OrchestratorConfigMarshall) trySeal(path string) *OrchestratorConfig {
	if len(o.Clusters) == 0 {
		panic(path + ".clusters is required")
	}
	clusters := map[string]*ClusterConfig{}
	for id, c := range o.Clusters {
		clusters[id] = nonnil(c, path+".clusters."+id).trySeal(path + ".clusters." + id)
	}
	defaultCluster := required(o.DefaultCluster, path+".defaultCluster")
	if _, ok := clusters[defaultCluster]; !ok {
		panic(fmt.Sprintf(
			"%s.defaultCluster points at unknown cluster: %s", path, defaultCluster,
		))
	}
	return &OrchestratorConfig{
		defaultCluster: defaultCluster,
		clusters:       clusters,
	}
}

type ClusterConfigMarshall struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
	Attempts int    `yaml:"attempts,omitempty"`
}

func (c *ClusterConfigMarshall) trySeal(path string) *ClusterConfig {
	return &ClusterConfig{
		endpoint: required(c.Endpoint, path+".endpoint"),
		username: c.Username,
		password: c.Password,
		timeout:  duration(c.Timeout, 30*time.Second, path+".timeout"),
		attempts: fallback(c.Attempts, 3),
	}
}

type SyncConfigMarshall struct {
	SpecReconcileInterval string `yaml:"specReconcileInterval,omitempty"`
	RunSyncInterval       string `yaml:"runSyncInterval,omitempty"`
	CycleTimeout          string `yaml:"cycleTimeout,omitempty"`
	StalenessThreshold    string `yaml:"stalenessThreshold,omitempty"`
	Concurrency           int    `yaml:"concurrency,omitempty"`
}

func (s *SyncConfigMarshall) trySeal(path string) *SyncConfig {
	return &SyncConfig{
		specReconcileInterval: duration(s.SpecReconcileInterval, 5*time.Minute, path+".specReconcileInterval"),
		runSyncInterval:       duration(s.RunSyncInterval, 1*time.Minute, path+".runSyncInterval"),
		cycleTimeout:          duration(s.CycleTimeout, 10*time.Minute, path+".cycleTimeout"),
		stalenessThreshold:    duration(s.StalenessThreshold, 60*time.Minute, path+".stalenessThreshold"),
		concurrency:           fallback(s.Concurrency, 8),
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}

func fallback[T comparable](v T, def T) T {
	if v == *new(T) {
		return def
	}
	return v
}

func duration(v string, def time.Duration, path string) time.Duration {
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s can not be parsed: %w", path, err))
	}
	return d
}
