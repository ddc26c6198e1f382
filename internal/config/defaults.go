package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8050
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/usr/local/var/fuda/datasets"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/fuda/indexes"
	}
	if cfg.Storage.EmbeddingDir == "" {
		cfg.Storage.EmbeddingDir = "/usr/local/var/fuda/embeddings"
	}
	if cfg.Storage.FilterIndexDir == "" {
		cfg.Storage.FilterIndexDir = "/usr/local/var/fuda/filter-indexes"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/fuda/models/paraphrase-mpnet-base-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.SimilarityK == 0 {
		cfg.Search.SimilarityK = 10
	}
	if cfg.Search.SliceSize == 0 {
		cfg.Search.SliceSize = 50
	}
	if cfg.Search.FilterLimit == 0 {
		cfg.Search.FilterLimit = 100
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 400
	}
}
