package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.TaxonomyDir == "" {
		cfg.Storage.TaxonomyDir = "/usr/local/var/mindcast/data/taxonomies"
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "/usr/local/var/mindcast/data/indices"
	}
	if cfg.Storage.CacheBackend == "" {
		cfg.Storage.CacheBackend = CacheBackendDisk
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/mindcast/data/db/mindcast.db"
	}
	if cfg.Encoder.Backend == "" {
		cfg.Encoder.Backend = EncoderBackendONNX
	}
	if cfg.Encoder.ModelPath == "" {
		cfg.Encoder.ModelPath = "/usr/local/var/mindcast/data/models/ko-sroberta-multitask.onnx"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 768
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 64
	}
	if cfg.Encoder.CacheSize == 0 {
		cfg.Encoder.CacheSize = 10000
	}
	if cfg.Encoder.BatchSize == 0 {
		cfg.Encoder.BatchSize = 64
	}
	w := &cfg.Classifier.Weights
	if w.TokenSubtag == 0 && w.SentSubtag == 0 && w.TokenCentroid == 0 && w.SentCentroid == 0 {
		*w = WeightsConfig{TokenSubtag: 0.5, SentSubtag: 0.2, TokenCentroid: 0.2, SentCentroid: 0.1}
	}
	if cfg.Classifier.LowRelevanceThreshold == 0 {
		cfg.Classifier.LowRelevanceThreshold = 0.5
	}
	if cfg.Classifier.CentroidThreshold == 0 {
		cfg.Classifier.CentroidThreshold = 0.40
	}
	if cfg.Classifier.EncodeTimeout == 0 {
		cfg.Classifier.EncodeTimeout = 60 * time.Second
	}
	if cfg.Classifier.BuildTimeout == 0 {
		cfg.Classifier.BuildTimeout = 10 * time.Minute
	}
	if cfg.Resilience.RetryMaxAttempts == 0 {
		cfg.Resilience.RetryMaxAttempts = 3
	}
	if cfg.Resilience.RetryInitialBackoff == 0 {
		cfg.Resilience.RetryInitialBackoff = 100 * time.Millisecond
	}
	if cfg.Resilience.RetryMaxBackoff == 0 {
		cfg.Resilience.RetryMaxBackoff = 400 * time.Millisecond
	}
	if cfg.Resilience.BreakerEnabled == nil {
		t := true
		cfg.Resilience.BreakerEnabled = &t
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
