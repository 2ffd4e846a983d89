package config

type Redis struct {
	Enabled  bool   `mapstructure:"ENABLED" json:"enabled" yaml:"enabled"`
	Host     string `mapstructure:"HOST" json:"host" yaml:"host"`
	Port     int    `mapstructure:"PORT" json:"port" yaml:"port"`
	Password string `mapstructure:"PASSWORD" json:"password" yaml:"password"`
	DB       int    `mapstructure:"DB" json:"db" yaml:"db"`
	// TTL of cached bearer token lookups.
	CacheTTLSeconds int `mapstructure:"CACHE_TTL_SECONDS" json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
}
